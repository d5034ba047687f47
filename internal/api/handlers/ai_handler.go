package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/designwheel/engine/internal/render"
	"github.com/designwheel/engine/internal/services"
)

type AIHandler struct {
	analysis services.AnalysisService
	guard    projectGuard
}

func NewAIHandler(analysis services.AnalysisService, projects services.ProjectService) *AIHandler {
	return &AIHandler{analysis: analysis, guard: projectGuard{projects: projects}}
}

func (h *AIHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stage, err := stageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guard.check(r.Context(), id, ownerOnly); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.analysis.Suggest(r.Context(), id, stage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, s)
}

// Analysis returns the latest feedback summary of a judged stage.
func (h *AIHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stage, err := stageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guard.check(r.Context(), id, ownerOrInstructor); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.analysis.GetAnalysis(r.Context(), id, stage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"analysis":     a,
		"summary_html": render.Markdown(a.Summary),
	})
}
