package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/knoxfield/corpusflow/internal/data/repos"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// statusTracker persists lifecycle transitions. Allowed moves:
// IN_PROGRESS at pipeline start, IN_PROGRESS -> COMPLETED/EMPTY driven
// by the handler outcome, QUEUED behind an in-flight duplicate, and the
// direct COMPLETED/EMPTY assignment on duplicate reuse.
type statusTracker struct {
	repo repos.RecordRepo
	log  *logger.Logger
}

func newStatusTracker(repo repos.RecordRepo, baseLog *logger.Logger) *statusTracker {
	return &statusTracker{repo: repo, log: baseLog.With("component", "StatusTracker")}
}

func (t *statusTracker) markInProgress(ctx context.Context, id uuid.UUID) error {
	if err := t.repo.UpdateStatus(ctx, nil, id, types.StatusInProgress); err != nil {
		t.log.Error("failed to mark record in progress", "record_id", id, "error", err)
		return storeErr("mark in_progress", err)
	}
	return nil
}

func (t *statusTracker) markQueued(ctx context.Context, id uuid.UUID) error {
	if err := t.repo.UpdateStatus(ctx, nil, id, types.StatusQueued); err != nil {
		t.log.Error("failed to park record behind in-flight duplicate", "record_id", id, "error", err)
		return storeErr("mark queued", err)
	}
	return nil
}

func (t *statusTracker) markCompleted(ctx context.Context, id uuid.UUID) error {
	if err := t.repo.UpdateStatus(ctx, nil, id, types.StatusCompleted); err != nil {
		t.log.Error("failed to mark record completed", "record_id", id, "error", err)
		return storeErr("mark completed", err)
	}
	return nil
}

// markEmpty persists the terminal no-content state. Persist failure
// here is always fatal; a record stuck outside EMPTY would be retried
// forever against content that produces nothing.
func (t *statusTracker) markEmpty(ctx context.Context, id uuid.UUID) error {
	if err := t.repo.UpdateStatus(ctx, nil, id, types.StatusEmpty); err != nil {
		return fmt.Errorf("fatal: persist EMPTY status for %s: %w", id, storeErr("mark empty", err))
	}
	return nil
}
