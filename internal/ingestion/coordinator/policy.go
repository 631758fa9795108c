package coordinator

import (
	"github.com/knoxfield/corpusflow/internal/types"
)

type decisionKind int

const (
	decideProceed decisionKind = iota
	decideReuse
	decideQueue
)

type decision struct {
	kind      decisionKind
	candidate *types.Record
}

// resolveDuplicates applies the duplicate-resolution policy to the
// candidate list. Priority: a COMPLETED candidate carrying an identity,
// then an EMPTY candidate, then an IN_PROGRESS candidate; the first
// satisfying candidate per tier wins. Anything else proceeds.
func resolveDuplicates(candidates []*types.Record) decision {
	if len(candidates) == 0 {
		return decision{kind: decideProceed}
	}

	for _, c := range candidates {
		if c.IndexingStatus == types.StatusCompleted && c.VirtualRecordID != nil {
			return decision{kind: decideReuse, candidate: c}
		}
	}
	for _, c := range candidates {
		if c.IndexingStatus == types.StatusEmpty {
			return decision{kind: decideReuse, candidate: c}
		}
	}
	for _, c := range candidates {
		if c.IndexingStatus == types.StatusInProgress {
			return decision{kind: decideQueue, candidate: c}
		}
	}
	return decision{kind: decideProceed}
}
