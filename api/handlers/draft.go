package handlers

import (
	"net/http"
	"time"

	"github.com/docuflow/docuflow/agent"
	"github.com/docuflow/docuflow/types"
	"go.uber.org/zap"
)

// DraftHandler serves draft generation requests.
type DraftHandler struct {
	orchestrator *agent.Orchestrator
	logger       *zap.Logger
}

// NewDraftHandler creates a draft handler.
func NewDraftHandler(orchestrator *agent.Orchestrator, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{
		orchestrator: orchestrator,
		logger:       logger.With(zap.String("handler", "draft")),
	}
}

// HandleDraft generates a draft from the submitted requirements.
func (h *DraftHandler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req types.DraftRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	start := time.Now()
	draft, err := h.orchestrator.Draft(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("draft completed",
		zap.String("title", req.Title),
		zap.String("doc_type", req.DocType),
		zap.Int("words", draft.Analysis.Readability.WordCount),
		zap.Duration("duration", time.Since(start)),
	)

	WriteSuccess(w, r, draft)
}
