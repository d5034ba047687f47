package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// Pinger checks one backing dependency.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler takes the named dependencies readiness depends on.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			logger.L().Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, name+" unavailable").WithMeta("dependency", name))
			return
		}
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ready"})
}
