package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"portal-project/backend/dashboard-service/models"
	"portal-project/backend/dashboard-service/repositories"
	"portal-project/backend/dashboard-service/services"
)

type ProjectHandler struct {
	service *services.DashboardService
}

func NewProjectHandler(service *services.DashboardService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name        string    `json:"name"`
		Description string    `json:"description"`
		StartDate   time.Time `json:"startDate"`
		EndDate     time.Time `json:"endDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	project, err := h.service.CreateProject(r.Context(), request.Name, request.Description, request.StartDate, request.EndDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(project)
}

func (h *ProjectHandler) GetAllProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projects)
}

func (h *ProjectHandler) GetProjectByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	detail, err := h.service.GetProject(r.Context(), vars["projectId"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

func (h *ProjectHandler) GetProjectStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, err := h.service.GetProjectStatus(r.Context(), vars["projectId"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]models.ProjectStatus{"status": status})
}

func (h *ProjectHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name       string            `json:"name"`
		POUsername string            `json:"poUsername"`
		SourceType models.SourceType `json:"sourceType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	team, err := h.service.CreateTeam(r.Context(), request.Name, request.POUsername, request.SourceType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(team)
}

func (h *ProjectHandler) LinkTeamToProject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var request struct {
		TeamID string `json:"teamId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	link, err := h.service.LinkTeamToProject(r.Context(), vars["projectId"], request.TeamID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(link)
}

func (h *ProjectHandler) AddTaskLink(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ProjectID string `json:"projectId"`
		TeamID    string `json:"teamId"`
		SourceURL string `json:"sourceUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	link, err := h.service.AddTaskLink(r.Context(), request.ProjectID, request.TeamID, request.SourceURL)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateTaskLink) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(link)
}

func (h *ProjectHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var request struct {
		Author string `json:"author"`
		Body   string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	comment, err := h.service.AddComment(r.Context(), vars["taskId"], request.Author, request.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(comment)
}

func (h *ProjectHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	comments, err := h.service.ListComments(r.Context(), vars["taskId"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}
