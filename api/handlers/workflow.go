package handlers

import (
	"net/http"
	"time"

	"github.com/docuflow/docuflow/agent"
	"github.com/docuflow/docuflow/types"
	"go.uber.org/zap"
)

// WorkflowHandler serves content workflow requests.
type WorkflowHandler struct {
	orchestrator *agent.Orchestrator
	logger       *zap.Logger
}

// NewWorkflowHandler creates a workflow handler.
func NewWorkflowHandler(orchestrator *agent.Orchestrator, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		orchestrator: orchestrator,
		logger:       logger.With(zap.String("handler", "workflow")),
	}
}

// HandleRun executes a content workflow.
func (h *WorkflowHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req types.WorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	start := time.Now()
	result, err := h.orchestrator.RunWorkflow(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("workflow completed",
		zap.String("id", result.ID),
		zap.String("type", string(req.Type)),
		zap.Duration("duration", time.Since(start)),
	)

	WriteSuccess(w, r, result)
}

// HandleStatus returns a previously executed workflow by id.
func (h *WorkflowHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "workflow id is required", h.logger)
		return
	}

	result, err := h.orchestrator.WorkflowStatus(r.Context(), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, result)
}
