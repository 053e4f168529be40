package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"portal-project/backend/dashboard-service/services"
)

type DashboardHandler struct {
	aggregation *services.AggregationService
	dashboard   *services.DashboardService
}

func NewDashboardHandler(aggregation *services.AggregationService, dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{aggregation: aggregation, dashboard: dashboard}
}

// Refresh forces a rebuild of the aggregated task snapshot.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") != "false"
	if err := h.aggregation.Refresh(r.Context(), force); err != nil {
		if errors.Is(err, services.ErrRefreshFailed) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	state, _ := h.aggregation.State()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"state": state})
}

// GetState reports the store state machine plus the fatal error, if any,
// so the UI can show partial-data and full-error screens apart.
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, lastErr := h.aggregation.State()
	response := map[string]any{"state": state}
	if lastErr != nil {
		response["error"] = lastErr.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *DashboardHandler) GetProjectProgress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	progress := h.aggregation.GetProjectProgress(vars["projectId"])
	if progress == nil {
		// No tasks is "no data", not "0% done".
		http.Error(w, "no tasks found for project", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(progress)
}

func (h *DashboardHandler) GetTeamProgress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	progress := h.aggregation.GetTeamProgress(vars["projectId"], vars["teamId"])
	if progress == nil {
		http.Error(w, "no tasks found for team", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(progress)
}

func (h *DashboardHandler) GetTasksByProject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tasks := h.aggregation.GetTasksByProject(vars["projectId"])
	writeTaskList(w, tasks)
}

func (h *DashboardHandler) GetTasksByTeam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tasks := h.dashboard.GetTeamTasks(vars["projectId"], vars["teamId"])
	writeTaskList(w, tasks)
}

func (h *DashboardHandler) GetNotDoneTasksByTeam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tasks := h.aggregation.GetNotDoneTasksByTeam(vars["projectId"], vars["teamId"])
	writeTaskList(w, tasks)
}

func (h *DashboardHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.aggregation.ClearCache(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "Cache cleared successfully"}`))
}

func writeTaskList(w http.ResponseWriter, tasks any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}
