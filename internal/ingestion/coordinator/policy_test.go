package coordinator

import (
	"testing"

	"github.com/google/uuid"

	"github.com/knoxfield/corpusflow/internal/types"
)

func recWithStatus(status types.ProcessingStatus, withIdentity bool) *types.Record {
	r := &types.Record{ID: uuid.New(), IndexingStatus: status}
	if withIdentity {
		vrid := uuid.New()
		r.VirtualRecordID = &vrid
	}
	return r
}

func TestResolveDuplicates(t *testing.T) {
	completed := recWithStatus(types.StatusCompleted, true)
	completedNoIdentity := recWithStatus(types.StatusCompleted, false)
	empty := recWithStatus(types.StatusEmpty, false)
	inProgress := recWithStatus(types.StatusInProgress, false)
	queued := recWithStatus(types.StatusQueued, false)

	cases := []struct {
		name       string
		candidates []*types.Record
		wantKind   decisionKind
		wantCand   *types.Record
	}{
		{name: "no_candidates", candidates: nil, wantKind: decideProceed},
		{
			name:       "completed_wins_over_empty_and_in_progress",
			candidates: []*types.Record{inProgress, empty, completed},
			wantKind:   decideReuse,
			wantCand:   completed,
		},
		{
			name:       "empty_wins_over_in_progress",
			candidates: []*types.Record{inProgress, empty},
			wantKind:   decideReuse,
			wantCand:   empty,
		},
		{
			name:       "in_progress_queues",
			candidates: []*types.Record{queued, inProgress},
			wantKind:   decideQueue,
			wantCand:   inProgress,
		},
		{
			name:       "completed_without_identity_not_reusable",
			candidates: []*types.Record{completedNoIdentity},
			wantKind:   decideProceed,
		},
		{
			name:       "only_queued_candidates_proceed",
			candidates: []*types.Record{queued},
			wantKind:   decideProceed,
		},
		{
			name:       "first_satisfying_candidate_per_tier",
			candidates: []*types.Record{empty, completed},
			wantKind:   decideReuse,
			wantCand:   completed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveDuplicates(tc.candidates)
			if got.kind != tc.wantKind {
				t.Fatalf("kind=%v, want %v", got.kind, tc.wantKind)
			}
			if tc.wantCand != nil && got.candidate != tc.wantCand {
				t.Fatalf("candidate=%v, want %v", got.candidate, tc.wantCand)
			}
		})
	}
}
