package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

var errFake = errors.New("store failure")

// fakeRepo is an in-memory RecordRepo good enough for coordinator
// tests: records keyed by id, duplicate search by fingerprint triple.
type fakeRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*types.Record

	updateStatusErr error
	countErr        error
	findErr         error
	upsertErr       error
}

func newFakeRepo(recs ...*types.Record) *fakeRepo {
	r := &fakeRepo{records: map[uuid.UUID]*types.Record{}}
	for _, rec := range recs {
		cp := *rec
		r.records[rec.ID] = &cp
	}
	return r
}

func (r *fakeRepo) get(id uuid.UUID) *types.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id]
}

func (r *fakeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) BatchUpsert(ctx context.Context, tx *gorm.DB, recs []*types.Record) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		cp := *rec
		r.records[rec.ID] = &cp
	}
	return nil
}

func (r *fakeRepo) SetFingerprint(ctx context.Context, tx *gorm.DB, id uuid.UUID, fp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.ContentFingerprint = &fp
	}
	return nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ProcessingStatus) error {
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.IndexingStatus = status
	}
	return nil
}

func (r *fakeRepo) FindDuplicates(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, fp string, mime string, size int64, exclude uuid.UUID) ([]*types.Record, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Record
	for _, rec := range r.records {
		if rec.ID == exclude || rec.OrgID != orgID {
			continue
		}
		if rec.ContentFingerprint == nil || *rec.ContentFingerprint != fp {
			continue
		}
		if rec.MimeType != mime || rec.SizeBytes != size {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) GetByVirtualRecordID(ctx context.Context, tx *gorm.DB, vrid uuid.UUID) ([]*types.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Record
	for _, rec := range r.records {
		if rec.VirtualRecordID != nil && *rec.VirtualRecordID == vrid {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountLiveByVirtualRecordID(ctx context.Context, tx *gorm.DB, vrid uuid.UUID) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	recs, _ := r.GetByVirtualRecordID(ctx, tx, vrid)
	return int64(len(recs)), nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}
