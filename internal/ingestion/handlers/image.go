package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/knoxfield/corpusflow/internal/platform/gcp"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// ImageHandler runs optical recognition over image records.
type ImageHandler struct {
	vision gcp.Vision
	log    *logger.Logger
}

func NewImageHandler(vision gcp.Vision, baseLog *logger.Logger) *ImageHandler {
	return &ImageHandler{vision: vision, log: baseLog.With("handler", "image")}
}

func (h *ImageHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if h.vision == nil {
			yield(types.PhaseEvent{}, fmt.Errorf("image handler: vision client unavailable"))
			return
		}
		text, err := h.vision.OCRImageBytes(ctx, req.Content)
		if err != nil {
			yield(types.PhaseEvent{}, fmt.Errorf("image ocr: %w", err))
			return
		}
		if strings.TrimSpace(text) == "" {
			h.log.Info("image produced no text", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}
