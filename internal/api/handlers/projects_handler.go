package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/designwheel/engine/internal/api/middleware"
	"github.com/designwheel/engine/internal/api/types"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/services"
	"github.com/designwheel/engine/internal/workflow"
)

type ProjectsHandler struct {
	projects services.ProjectService
	auth     services.AuthService
	guard    projectGuard
}

func NewProjectsHandler(projects services.ProjectService, auth services.AuthService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, auth: auth, guard: projectGuard{projects: projects}}
}

// Setup onboards an allow-listed student: it upserts the profile, opens a
// new project and returns a student token.
func (h *ProjectsHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req types.SetupRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, user, err := h.projects.CreateProject(r.Context(), &services.CreateProjectInput{
		StudentID: req.StudentID,
		Name:      req.Name,
		Email:     req.Email,
		Title:     req.Title,
		GroupName: req.GroupName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.auth.IssueStudentToken(user.StudentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{
		"project":      p,
		"user":         user,
		"access_token": token,
		"token_type":   "Bearer",
	})
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ProjectFilter{StudentID: q.Get("student_id")}
	filter.ActiveOnly, _ = strconv.ParseBool(q.Get("active"))
	items, err := h.projects.ListProjects(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	summaries := make([]workflow.Summary, 0, end-start)
	for _, p := range items[start:end] {
		summaries = append(summaries, p.Summarize())
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    summaries,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context()), Page: page, PageSize: size, Total: int64(len(items))},
	})
}

// Mine lists the caller's own projects.
func (h *ProjectsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.ListProjects(r.Context(), repository.ProjectFilter{StudentID: middleware.GetClaims(r.Context()).StudentID()})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.guard.check(r.Context(), id, ownerOrInstructor); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProjectsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req types.ActiveRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.SetActive(r.Context(), chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Stages returns the fixed stage registry.
func (h *ProjectsHandler) Stages(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, workflow.Registry())
}
