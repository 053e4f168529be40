package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/api/option"

	"portal-project/backend/dashboard-service/cache"
	"portal-project/backend/dashboard-service/classify"
	"portal-project/backend/dashboard-service/config"
	"portal-project/backend/dashboard-service/fetchers"
	"portal-project/backend/dashboard-service/handlers"
	"portal-project/backend/dashboard-service/logging"
	"portal-project/backend/dashboard-service/repositories"
	"portal-project/backend/dashboard-service/services"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

func newCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "file":
		return cache.NewFileStore(cfg.CacheDir)
	case "cassandra":
		return cache.NewCassandraStore(cfg.CassandraHost)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.CacheBackend)
	}
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Dashboard Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	if err := mongoClient.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", cfg.MongoURI)

	db := mongoClient.Database(cfg.MongoDBName)
	taskLinkRepo := repositories.NewTaskLinkRepo(db.Collection("task_links"))
	projectRepo := repositories.NewProjectRepo(db.Collection("projects"), db.Collection("teams"), db.Collection("team_project_links"))
	commentRepo := repositories.NewCommentRepo(db.Collection("comments"))

	store, err := newCacheStore(cfg)
	if err != nil {
		logging.Logger.Fatalf("Event ID: CACHE_INIT_FAILED, Description: Failed to initialize cache backend: %v", err)
	}
	sharedCache := cache.New(store)
	logging.Logger.Infof("Event ID: CACHE_INITIALIZED, Description: Cache backend '%s' ready", cfg.CacheBackend)

	rules := classify.DefaultRules()
	if cfg.StatusRulesFile != "" {
		rules, err = classify.LoadRules(cfg.StatusRulesFile)
		if err != nil {
			logging.Logger.Fatalf("Event ID: RULES_LOAD_FAILED, Description: Failed to load status rules: %v", err)
		}
		logging.Logger.Infof("Event ID: RULES_LOADED, Description: Status rules loaded from %s", cfg.StatusRulesFile)
	}

	trackerBreaker := newBreaker("IssueTrackerCB")
	sheetsBreaker := newBreaker("SheetsCB")

	trackerClient := fetchers.NewIssueTrackerClient(context.Background(), cfg.TrackerUsername, cfg.TrackerToken, trackerBreaker)

	var sheetOpts []option.ClientOption
	if cfg.SheetsAPIKey != "" {
		sheetOpts = append(sheetOpts, option.WithAPIKey(cfg.SheetsAPIKey))
	} else if cfg.SheetsCredentialsFile != "" {
		sheetOpts = append(sheetOpts, option.WithCredentialsFile(cfg.SheetsCredentialsFile))
	}
	sheetClient, err := fetchers.NewSheetClient(context.Background(), sheetsBreaker, sheetOpts...)
	if err != nil {
		logging.Logger.Fatalf("Event ID: SHEETS_INIT_FAILED, Description: Failed to initialize Sheets client: %v", err)
	}

	aggregationService := services.NewAggregationService(taskLinkRepo, trackerClient, sheetClient, sharedCache, rules)
	dashboardService := services.NewDashboardService(projectRepo, taskLinkRepo, commentRepo, sharedCache, aggregationService)

	dashboardHandler := handlers.NewDashboardHandler(aggregationService, dashboardService)
	projectHandler := handlers.NewProjectHandler(dashboardService)

	r := mux.NewRouter()

	r.HandleFunc("/api/dashboard/refresh", dashboardHandler.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/dashboard/state", dashboardHandler.GetState).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/cache", dashboardHandler.ClearCache).Methods(http.MethodDelete)
	r.HandleFunc("/api/dashboard/projects/{projectId}/progress", dashboardHandler.GetProjectProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/projects/{projectId}/teams/{teamId}/progress", dashboardHandler.GetTeamProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/projects/{projectId}/tasks", dashboardHandler.GetTasksByProject).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/projects/{projectId}/teams/{teamId}/tasks", dashboardHandler.GetTasksByTeam).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/projects/{projectId}/teams/{teamId}/tasks/not-done", dashboardHandler.GetNotDoneTasksByTeam).Methods(http.MethodGet)

	r.HandleFunc("/api/projects", projectHandler.CreateProject).Methods(http.MethodPost)
	r.HandleFunc("/api/projects", projectHandler.GetAllProjects).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{projectId}", projectHandler.GetProjectByID).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{projectId}/status", projectHandler.GetProjectStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{projectId}/teams", projectHandler.LinkTeamToProject).Methods(http.MethodPost)
	r.HandleFunc("/api/teams", projectHandler.CreateTeam).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks", projectHandler.AddTaskLink).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{taskId}/comments", projectHandler.AddComment).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{taskId}/comments", projectHandler.GetComments).Methods(http.MethodGet)

	corsRouter := enableCORS(r)

	// Warm the aggregation before serving so the first page load does not
	// block on the external systems.
	go func() {
		if err := aggregationService.Refresh(context.Background(), false); err != nil {
			logging.Logger.Warnf("Event ID: INITIAL_REFRESH_FAILED, Description: Initial task refresh failed: %v", err)
		}
	}()

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
