package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// WebHandler covers html/markup pages: wiki pages, crawled pages, and
// the rendered bodies of tickets and comments.
type WebHandler struct {
	log *logger.Logger
}

func NewWebHandler(baseLog *logger.Logger) *WebHandler {
	return &WebHandler{log: baseLog.With("handler", "web")}
}

func (h *WebHandler) Extract(ctx context.Context, req Request) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(types.PhaseEvent{}, err)
			return
		}

		root, err := html.Parse(bytes.NewReader(req.Content))
		if err != nil {
			yield(types.PhaseEvent{}, fmt.Errorf("parse markup: %w", err))
			return
		}
		if strings.TrimSpace(visibleText(root)) == "" {
			h.log.Info("markup has no visible text", "record_id", req.RecordID)
			return
		}
		milestones(req.RecordID, yield)
	}
}

func visibleText(n *html.Node) string {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(visibleText(c))
		b.WriteString(" ")
	}
	return b.String()
}
