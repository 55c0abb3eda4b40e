package handlers

import (
	"net/http"
	"time"

	"github.com/docuflow/docuflow/agent"
	"github.com/docuflow/docuflow/types"
	"go.uber.org/zap"
)

// ReviewHandler serves content review requests.
type ReviewHandler struct {
	orchestrator *agent.Orchestrator
	logger       *zap.Logger
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(orchestrator *agent.Orchestrator, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		orchestrator: orchestrator,
		logger:       logger.With(zap.String("handler", "review")),
	}
}

// HandleReview runs a review over the submitted content.
func (h *ReviewHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req types.ReviewRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	start := time.Now()
	result, err := h.orchestrator.Review(r.Context(), &req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("review completed",
		zap.String("content_type", req.ContentType),
		zap.Int("issues", len(result.Issues)),
		zap.Duration("duration", time.Since(start)),
	)

	WriteSuccess(w, r, result)
}
