package handlers

import (
	"context"
	"strings"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// PlainTextHandler covers plain text and markdown. There is nothing to
// parse; a revision with no visible characters produces no milestones,
// which the coordinator records as EMPTY.
type PlainTextHandler struct {
	log *logger.Logger
}

func NewPlainTextHandler(baseLog *logger.Logger) *PlainTextHandler {
	return &PlainTextHandler{log: baseLog.With("handler", "plain_text")}
}

func (h *PlainTextHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(types.PhaseEvent{}, err)
			return
		}
		if strings.TrimSpace(string(req.Content)) == "" {
			h.log.Info("no extractable text", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}
