package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/api/middleware"
	"github.com/designwheel/engine/internal/api/types"
	"github.com/designwheel/engine/internal/api/validators"
	"github.com/designwheel/engine/internal/services"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data})
}

// writeError answers with the status mapped from the error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErr.HTTPStatus(appErr.CodeOf(err))
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed", zap.String("id", middleware.GetRequestID(r.Context())), zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
	}
	return validators.Struct(dst)
}

func stageParam(r *http.Request) (workflow.StageType, error) {
	return workflow.ParseStage(chi.URLParam(r, "stage"))
}

type access int

const (
	ownerOnly access = iota
	ownerOrInstructor
)

// projectGuard checks that the caller may act on a project.
type projectGuard struct {
	projects services.ProjectService
}

func (g projectGuard) check(ctx context.Context, projectID string, a access) error {
	c := middleware.GetClaims(ctx)
	if c == nil {
		return appErr.New(appErr.CodeUnauthorized, "not authenticated")
	}
	if c.Role == services.RoleInstructor {
		if a == ownerOrInstructor {
			return nil
		}
		return appErr.New(appErr.CodeForbidden, "only the owning student may do this")
	}
	p, err := g.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.StudentID != c.StudentID() {
		return appErr.New(appErr.CodeForbidden, "project belongs to another student").WithMeta("project_id", projectID)
	}
	return nil
}
