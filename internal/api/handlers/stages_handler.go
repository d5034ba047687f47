package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/designwheel/engine/internal/api/types"
	"github.com/designwheel/engine/internal/services"
	"github.com/designwheel/engine/internal/workflow"
)

// StagesHandler serves the stage state machine and option editing.
type StagesHandler struct {
	projects services.ProjectService
	guard    projectGuard
}

func NewStagesHandler(projects services.ProjectService) *StagesHandler {
	return &StagesHandler{projects: projects, guard: projectGuard{projects: projects}}
}

type stageOp func(ctx context.Context, projectID string, stage workflow.StageType) (*workflow.Project, error)

// run resolves the project and stage, applies the access rule and answers
// with the updated project.
func (h *StagesHandler) run(w http.ResponseWriter, r *http.Request, a access, op stageOp) {
	id := chi.URLParam(r, "id")
	stage, err := stageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.guard.check(r.Context(), id, a); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := op(r.Context(), id, stage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *StagesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, ownerOnly, h.projects.Submit)
}

func (h *StagesHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, ownerOnly, h.projects.Reopen)
}

func (h *StagesHandler) Verdict(w http.ResponseWriter, r *http.Request) {
	var req types.VerdictRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.run(w, r, ownerOrInstructor, func(ctx context.Context, id string, stage workflow.StageType) (*workflow.Project, error) {
		return h.projects.ApplyVerdict(ctx, id, stage, *req.Approved)
	})
}

func (h *StagesHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req types.ScoreRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.run(w, r, ownerOrInstructor, func(ctx context.Context, id string, stage workflow.StageType) (*workflow.Project, error) {
		return h.projects.UpdateScore(ctx, id, stage, *req.Score)
	})
}

func (h *StagesHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req types.FeedbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.run(w, r, ownerOrInstructor, func(ctx context.Context, id string, stage workflow.StageType) (*workflow.Project, error) {
		return h.projects.UpdateFeedback(ctx, id, stage, req.Text)
	})
}

func (h *StagesHandler) ToggleChecklist(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	h.run(w, r, ownerOrInstructor, func(ctx context.Context, id string, stage workflow.StageType) (*workflow.Project, error) {
		return h.projects.ToggleChecklistItem(ctx, id, stage, itemID)
	})
}

func (h *StagesHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, ownerOnly, h.projects.AddOption)
}

func (h *StagesHandler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	var req types.OptionPatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	optionID := chi.URLParam(r, "optionID")
	h.run(w, r, ownerOnly, func(ctx context.Context, id string, stage workflow.StageType) (*workflow.Project, error) {
		return h.projects.UpdateOption(ctx, id, stage, optionID, req.Patch())
	})
}
