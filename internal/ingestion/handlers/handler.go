package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/knoxfield/corpusflow/internal/types"
)

// Request carries everything a content handler needs for one revision.
// Both the chosen virtual record identity and, when the reconciler kept
// it, the previous identity are threaded through so handlers can pass
// them along for relationship and diff bookkeeping.
type Request struct {
	RecordID   uuid.UUID
	RecordName string
	OrgID      uuid.UUID
	Version    int
	Origin     string
	MimeType   string
	Extension  string
	EventType  types.EventType

	Content []byte

	VirtualRecordID         uuid.UUID
	PreviousVirtualRecordID *uuid.UUID
}

// Handler extracts content for one family of formats. The returned
// stream is lazy, finite, and non-restartable; a normal run ends with
// parsing_complete then indexing_complete. The structured PDF handler
// may instead yield the in-band handler_failed signal, which the
// dispatcher turns into a one-shot OCR fallback.
type Handler interface {
	Extract(ctx context.Context, req Request) types.PhaseSeq
}

// milestones yields the standard pair that closes a successful run.
func milestones(recordID uuid.UUID, yield func(types.PhaseEvent, error) bool) {
	if !yield(types.NewPhaseEvent(types.PhaseParsingComplete, recordID), nil) {
		return
	}
	yield(types.NewPhaseEvent(types.PhaseIndexingComplete, recordID), nil)
}
