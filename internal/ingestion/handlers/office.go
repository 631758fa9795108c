package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/knoxfield/corpusflow/internal/platform/gcp"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// OfficeHandler covers word-processor documents, spreadsheets, and
// presentations through the Document AI processor.
type OfficeHandler struct {
	doc gcp.Document
	log *logger.Logger
}

func NewOfficeHandler(doc gcp.Document, baseLog *logger.Logger) *OfficeHandler {
	return &OfficeHandler{doc: doc, log: baseLog.With("handler", "office")}
}

func (h *OfficeHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if h.doc == nil {
			yield(types.PhaseEvent{}, fmt.Errorf("office handler: document processor unavailable"))
			return
		}
		text, err := h.doc.ProcessBytes(ctx, req.MimeType, req.Content)
		if err != nil {
			yield(types.PhaseEvent{}, fmt.Errorf("office extraction: %w", err))
			return
		}
		if strings.TrimSpace(text) == "" {
			h.log.Info("office document produced no text", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}
