package handlers

import (
	"net/http"

	"github.com/docuflow/docuflow/agent"
	"go.uber.org/zap"
)

// StatusHandler reports aggregated system health.
type StatusHandler struct {
	orchestrator *agent.Orchestrator
	logger       *zap.Logger
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(orchestrator *agent.Orchestrator, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		orchestrator: orchestrator,
		logger:       logger.With(zap.String("handler", "status")),
	}
}

// HandleStatus returns provider, integration, and cache health plus
// recent operation and error summaries.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.orchestrator.Status(r.Context())
	WriteSuccess(w, r, status)
}
