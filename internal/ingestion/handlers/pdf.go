package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/knoxfield/corpusflow/internal/platform/gcp"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// StructuredPDFHandler extracts digital PDFs through the Document AI
// layout processor. A processor failure is reported in-band as the
// distinguished handler_failed event rather than a stream error, so the
// dispatcher can fall back to optical recognition exactly once. Only
// this handler uses the in-band signal.
type StructuredPDFHandler struct {
	doc gcp.Document
	log *logger.Logger
}

func NewStructuredPDFHandler(doc gcp.Document, baseLog *logger.Logger) *StructuredPDFHandler {
	return &StructuredPDFHandler{doc: doc, log: baseLog.With("handler", "pdf_structured")}
}

func (h *StructuredPDFHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if h.doc == nil {
			yield(types.NewPhaseEvent(types.PhaseHandlerFailed, req.RecordID), nil)
			return
		}
		text, err := h.doc.ProcessBytes(ctx, "application/pdf", req.Content)
		if err != nil {
			h.log.Warn("structured pdf extraction failed, signaling fallback",
				"record_id", req.RecordID, "error", err)
			yield(types.NewPhaseEvent(types.PhaseHandlerFailed, req.RecordID), nil)
			return
		}
		if strings.TrimSpace(text) == "" {
			h.log.Info("structured pdf produced no text", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}

// OCRPDFHandler extracts scanned PDFs through Vision document text
// detection. It has no fallback of its own; failures propagate.
type OCRPDFHandler struct {
	vision gcp.Vision
	log    *logger.Logger
}

func NewOCRPDFHandler(vision gcp.Vision, baseLog *logger.Logger) *OCRPDFHandler {
	return &OCRPDFHandler{vision: vision, log: baseLog.With("handler", "pdf_ocr")}
}

func (h *OCRPDFHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if h.vision == nil {
			yield(types.PhaseEvent{}, fmt.Errorf("ocr handler: vision client unavailable"))
			return
		}
		text, err := h.vision.OCRPDFBytes(ctx, req.Content)
		if err != nil {
			yield(types.PhaseEvent{}, fmt.Errorf("pdf ocr: %w", err))
			return
		}
		if strings.TrimSpace(text) == "" {
			h.log.Info("pdf ocr produced no text", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}
