package handlers

import (
	"net/http"
	"time"

	"github.com/docuflow/docuflow/agent"
	"github.com/docuflow/docuflow/types"
	"go.uber.org/zap"
)

// QueryHandler serves documentation query requests.
type QueryHandler struct {
	orchestrator *agent.Orchestrator
	logger       *zap.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(orchestrator *agent.Orchestrator, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		orchestrator: orchestrator,
		logger:       logger.With(zap.String("handler", "query")),
	}
}

// HandleQuery answers a documentation question.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req types.QueryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	start := time.Now()
	resp, err := h.orchestrator.Query(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("query completed",
		zap.String("type", string(resp.Metadata.QueryType)),
		zap.String("session_id", req.SessionID),
		zap.Duration("duration", time.Since(start)),
	)

	WriteSuccess(w, r, resp)
}

// HandleHistory returns the conversation history for a session.
func (h *QueryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "session_id is required", h.logger)
		return
	}

	history := h.orchestrator.QueryHistory(r.Context(), sessionID)
	WriteSuccess(w, r, map[string]any{
		"session_id": sessionID,
		"exchanges":  history,
	})
}
