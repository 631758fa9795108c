package types

import (
	"iter"
	"time"

	"github.com/google/uuid"
)

// PhaseName is a milestone marker consumed by the downstream indexing stage.
type PhaseName string

const (
	PhaseParsingComplete  PhaseName = "parsing_complete"
	PhaseIndexingComplete PhaseName = "indexing_complete"

	// PhaseHandlerFailed is an in-band signal, not a milestone. Only the
	// structured PDF handler emits it; the dispatcher consumes it to drive
	// the one-shot OCR fallback and it never reaches the caller.
	PhaseHandlerFailed PhaseName = "handler_failed"
)

// PhaseEvent is an immutable milestone. It is produced, never persisted;
// the downstream stage owns persistence of outcomes.
type PhaseEvent struct {
	Name     PhaseName `json:"event"`
	RecordID uuid.UUID `json:"record_id"`
	At       time.Time `json:"at"`
}

// PhaseSeq is a lazy, finite, non-restartable stream of milestones. An
// error terminates the stream; no milestone follows an error.
type PhaseSeq = iter.Seq2[PhaseEvent, error]

func NewPhaseEvent(name PhaseName, recordID uuid.UUID) PhaseEvent {
	return PhaseEvent{Name: name, RecordID: recordID, At: time.Now().UTC()}
}

// EmptyPhaseSeq yields nothing. Used for the queue outcome.
func EmptyPhaseSeq() PhaseSeq {
	return func(yield func(PhaseEvent, error) bool) {}
}

// PhaseSeqOf yields the given events in order.
func PhaseSeqOf(events ...PhaseEvent) PhaseSeq {
	return func(yield func(PhaseEvent, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// PhaseSeqError yields a single terminal error.
func PhaseSeqError(err error) PhaseSeq {
	return func(yield func(PhaseEvent, error) bool) {
		yield(PhaseEvent{}, err)
	}
}
