package coordinator

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/knoxfield/corpusflow/internal/data/repos"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// identityReconciler decides which virtual record identity a revision
// gets. It is the only component that mints identities.
type identityReconciler struct {
	repo           repos.RecordRepo
	reconcileTypes map[string]bool
	log            *logger.Logger
}

func newIdentityReconciler(repo repos.RecordRepo, reconcileTypes map[string]bool, baseLog *logger.Logger) *identityReconciler {
	return &identityReconciler{
		repo:           repo,
		reconcileTypes: reconcileTypes,
		log:            baseLog.With("component", "IdentityReconciler"),
	}
}

func (r *identityReconciler) enabled(mimeType string) bool {
	return r.reconcileTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// reconcile returns the identity for this revision plus the previous
// identity when it was kept, so handlers can thread both through for
// relationship and diff bookkeeping. prev is passed explicitly; it is
// never stashed on the reconciler, concurrent units would race on it.
func (r *identityReconciler) reconcile(ctx context.Context, eventType types.EventType, prev *uuid.UUID, mimeType string) (chosen uuid.UUID, kept *uuid.UUID, err error) {
	if eventType == types.EventCreate && prev == nil {
		return uuid.New(), nil, nil
	}

	if (eventType == types.EventUpdate || eventType == types.EventReindex) && r.enabled(mimeType) {
		if prev == nil {
			// First time we see this logical record.
			return uuid.New(), nil, nil
		}
		n, err := r.repo.CountLiveByVirtualRecordID(ctx, nil, *prev)
		if err != nil {
			return uuid.Nil, nil, storeErr("count virtual record owners", err)
		}
		if n > 1 {
			// Fan-out: siblings share this identity. Mint a fresh one so
			// this revision's diff history stays isolated from theirs.
			r.log.Debug("identity fan-out detected, minting new identity",
				"previous", *prev, "owners", n)
			return uuid.New(), nil, nil
		}
		return *prev, prev, nil
	}

	if eventType == types.EventUpdate || eventType == types.EventReindex {
		// Full-replace semantics for non-reconciled types.
		return uuid.New(), nil, nil
	}

	// Safeguard: no rule above assigned an identity (e.g. a create event
	// arriving with a stale identity attached).
	return uuid.New(), nil, nil
}
