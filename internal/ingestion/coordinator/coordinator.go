package coordinator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/knoxfield/corpusflow/internal/data/graph"
	"github.com/knoxfield/corpusflow/internal/data/repos"
	"github.com/knoxfield/corpusflow/internal/ingestion/fingerprint"
	"github.com/knoxfield/corpusflow/internal/ingestion/handlers"
	"github.com/knoxfield/corpusflow/internal/platform/gcp"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// Dispatcher routes an accepted revision to its content handler.
type Dispatcher interface {
	Dispatch(ctx context.Context, req handlers.Request) (types.PhaseSeq, error)
}

// Normalizer canonicalizes raw content for fingerprinting.
type Normalizer func(raw []byte, mimeType string) []byte

// ContentLease is a best-effort per-fingerprint exclusion that keeps
// two workers from extracting identical content at the same time. It
// gates only the proceed path; reuse and queue outcomes run no handler
// and never need it.
type ContentLease interface {
	Acquire(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

// Coordinator is the event-coordination and deduplication core: one
// Process call per inbound change event. It holds no per-event state;
// the host may run many Process calls concurrently.
type Coordinator struct {
	repo       repos.RecordRepo
	graph      graph.Store
	bucket     gcp.Bucket
	locator    *fingerprint.Locator
	status     *statusTracker
	identity   *identityReconciler
	dispatcher Dispatcher
	normalize  Normalizer
	lease      ContentLease
	log        *logger.Logger
	tracer     trace.Tracer
}

type Deps struct {
	Repo           repos.RecordRepo
	Graph          graph.Store  // optional
	Bucket         gcp.Bucket   // optional
	Lease          ContentLease // optional
	Dispatcher     Dispatcher
	Normalize      Normalizer
	ReconcileTypes map[string]bool
	Log            *logger.Logger
}

func New(d Deps) *Coordinator {
	return &Coordinator{
		repo:       d.Repo,
		graph:      d.Graph,
		bucket:     d.Bucket,
		locator:    fingerprint.NewLocator(d.Repo, d.Log),
		status:     newStatusTracker(d.Repo, d.Log),
		identity:   newIdentityReconciler(d.Repo, d.ReconcileTypes, d.Log),
		dispatcher: d.Dispatcher,
		normalize:  d.Normalize,
		lease:      d.Lease,
		log:        d.Log.With("component", "Coordinator"),
		tracer:     otel.Tracer("corpusflow/ingestion/coordinator"),
	}
}

// Process handles one change event end to end and returns the phase
// stream the downstream indexer consumes. Re-invoking Process for the
// same event re-runs its side effects; idempotency comes from the
// duplicate check, not from the call itself.
func (c *Coordinator) Process(ctx context.Context, ev types.ChangeEvent) (types.PhaseSeq, error) {
	if !ev.EventType.Valid() {
		return nil, fmt.Errorf("invalid event type %q", ev.EventType)
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.process",
		trace.WithAttributes(
			attribute.String("record.id", ev.Payload.RecordID.String()),
			attribute.String("event.type", string(ev.EventType)),
		))
	defer span.End()

	rec, err := c.repo.GetByID(ctx, nil, ev.Payload.RecordID)
	if err != nil {
		return nil, storeErr("get record", err)
	}
	applyPayload(rec, ev.Payload)

	content, err := c.loadContent(ctx, ev.Payload)
	if err != nil {
		return nil, err
	}

	canonical := c.normalize(content, rec.MimeType)
	fp := c.locator.EnsureFingerprint(ctx, rec, canonical)

	candidates, err := c.locator.FindDuplicates(ctx, rec)
	if err != nil {
		return nil, storeErr("find duplicates", err)
	}

	dec := resolveDuplicates(candidates)
	switch dec.kind {
	case decideReuse:
		span.SetAttributes(attribute.String("decision", "reuse"))
		return c.reuse(ctx, rec, dec.candidate)

	case decideQueue:
		span.SetAttributes(attribute.String("decision", "queue"))
		c.log.Info("duplicate in flight, queueing record",
			"record_id", rec.ID, "duplicate_id", dec.candidate.ID)
		if err := c.status.markQueued(ctx, rec.ID); err != nil {
			return nil, err
		}
		return types.EmptyPhaseSeq(), nil
	}

	// Only extraction needs exclusion. A reusable candidate is adopted
	// above whether or not another worker holds the lease.
	if c.lease != nil && !c.lease.Acquire(ctx, fp) {
		span.SetAttributes(attribute.String("decision", "queue_lease"))
		if err := c.status.markQueued(ctx, rec.ID); err != nil {
			return nil, err
		}
		return types.EmptyPhaseSeq(), nil
	}
	releaseLease := func() {
		if c.lease != nil {
			c.lease.Release(context.WithoutCancel(ctx), fp)
		}
	}

	span.SetAttributes(attribute.String("decision", "proceed"))
	seq, err := c.proceed(ctx, ev, rec, content)
	if err != nil {
		releaseLease()
		return nil, err
	}
	return c.supervise(ctx, rec, seq, releaseLease), nil
}

func applyPayload(rec *types.Record, p types.ChangePayload) {
	if p.Version > rec.Version {
		// The stored fingerprint was computed over the stored revision's
		// content; a newer revision must be re-fingerprinted or duplicate
		// resolution would match against content this record no longer
		// carries.
		rec.ContentFingerprint = nil
	}
	if p.Version > 0 {
		rec.Version = p.Version
	}
	if p.MimeType != "" {
		rec.MimeType = p.MimeType
	}
	if p.Extension != "" {
		rec.Extension = p.Extension
	}
	if p.VirtualRecordID != nil {
		rec.VirtualRecordID = p.VirtualRecordID
	}
}

func (c *Coordinator) loadContent(ctx context.Context, p types.ChangePayload) ([]byte, error) {
	if len(p.Buffer) > 0 {
		return p.Buffer, nil
	}
	if c.bucket == nil {
		return nil, fmt.Errorf("event for record %s carries no buffer and no origin bucket is configured", p.RecordID)
	}
	key := fmt.Sprintf("%s/%s", p.OrgID, p.RecordID)
	content, err := c.bucket.Download(ctx, key)
	if err != nil {
		return nil, storeErr("download origin content", err)
	}
	return content, nil
}

// reuse adopts the candidate's results: identity, status, and terminal
// completion fields are copied onto the current record, relationships
// are mirrored in the graph, and the milestone pair is synthesized
// immediately. No handler runs.
func (c *Coordinator) reuse(ctx context.Context, rec *types.Record, cand *types.Record) (types.PhaseSeq, error) {
	if cand.IndexingStatus == types.StatusCompleted && cand.VirtualRecordID == nil {
		return nil, &ResolutionError{Reason: fmt.Sprintf("completed candidate %s has no identity", cand.ID)}
	}

	rec.VirtualRecordID = cand.VirtualRecordID
	rec.IndexingStatus = cand.IndexingStatus
	rec.SummaryKey = cand.SummaryKey

	if err := c.repo.BatchUpsert(ctx, nil, []*types.Record{rec}); err != nil {
		if rec.IndexingStatus == types.StatusEmpty {
			return nil, fmt.Errorf("fatal: persist EMPTY status for %s: %w", rec.ID, storeErr("reuse upsert", err))
		}
		return nil, storeErr("reuse upsert", err)
	}

	if c.graph != nil {
		if err := c.graph.CopyDocumentRelationships(ctx, cand.ID, rec.ID); err != nil {
			return nil, storeErr("copy relationships", err)
		}
		if rec.VirtualRecordID != nil {
			if err := c.graph.LinkVirtualRecord(ctx, rec.ID, *rec.VirtualRecordID); err != nil {
				return nil, storeErr("link virtual record", err)
			}
		}
	}

	c.log.Info("reused duplicate extraction",
		"record_id", rec.ID, "duplicate_id", cand.ID, "status", rec.IndexingStatus)

	return types.PhaseSeqOf(
		types.NewPhaseEvent(types.PhaseParsingComplete, rec.ID),
		types.NewPhaseEvent(types.PhaseIndexingComplete, rec.ID),
	), nil
}

// proceed marks the record started, reconciles its identity, and hands
// it to the dispatcher. The returned stream has not started running.
func (c *Coordinator) proceed(ctx context.Context, ev types.ChangeEvent, rec *types.Record, content []byte) (types.PhaseSeq, error) {
	if err := c.status.markInProgress(ctx, rec.ID); err != nil {
		return nil, err
	}

	prev := rec.VirtualRecordID
	chosen, kept, err := c.identity.reconcile(ctx, ev.EventType, prev, rec.MimeType)
	if err != nil {
		return nil, err
	}

	rec.VirtualRecordID = &chosen
	rec.IndexingStatus = types.StatusInProgress
	if err := c.repo.BatchUpsert(ctx, nil, []*types.Record{rec}); err != nil {
		return nil, storeErr("persist identity", err)
	}
	if c.graph != nil {
		if err := c.graph.LinkVirtualRecord(ctx, rec.ID, chosen); err != nil {
			return nil, storeErr("link virtual record", err)
		}
	}

	req := handlers.Request{
		RecordID:                rec.ID,
		RecordName:              rec.RecordName,
		OrgID:                   rec.OrgID,
		Version:                 rec.Version,
		Origin:                  rec.Origin,
		MimeType:                rec.MimeType,
		Extension:               rec.Extension,
		EventType:               ev.EventType,
		Content:                 content,
		VirtualRecordID:         chosen,
		PreviousVirtualRecordID: kept,
	}
	return c.dispatcher.Dispatch(ctx, req)
}

// supervise relays the handler's stream and applies the terminal status
// the handler outcome implies: indexing_complete marks COMPLETED, a
// stream that finishes without producing anything marks EMPTY. Handlers
// emit the milestone pair atomically at the end of a successful run, so
// an error never follows a lone parsing_complete.
func (c *Coordinator) supervise(ctx context.Context, rec *types.Record, seq types.PhaseSeq, release func()) types.PhaseSeq {
	return func(yield func(types.PhaseEvent, error) bool) {
		defer release()

		sawAny := false
		sawIndexing := false
		for ev, err := range seq {
			if err != nil {
				c.log.Error("extraction aborted", "record_id", rec.ID, "error", err)
				yield(types.PhaseEvent{}, err)
				return
			}
			sawAny = true
			if ev.Name == types.PhaseIndexingComplete {
				sawIndexing = true
			}
			if !yield(ev, nil) {
				return
			}
		}

		switch {
		case sawIndexing:
			if err := c.status.markCompleted(ctx, rec.ID); err != nil {
				yield(types.PhaseEvent{}, err)
			}
		case !sawAny:
			// The handler volunteered nothing for this revision.
			if err := c.status.markEmpty(ctx, rec.ID); err != nil {
				yield(types.PhaseEvent{}, err)
			}
		}
	}
}
