package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/knoxfield/corpusflow/internal/data/repos/testutil"
	"github.com/knoxfield/corpusflow/internal/types"
)

func seedRecord(orgID uuid.UUID) *types.Record {
	return &types.Record{
		ID:             uuid.New(),
		OrgID:          orgID,
		RecordName:     "notes.txt",
		ConnectorName:  "drive",
		Origin:         "connector",
		MimeType:       "text/plain",
		Extension:      "txt",
		SizeBytes:      128,
		IndexingStatus: types.StatusQueued,
		Version:        1,
		Metadata:       datatypes.JSON([]byte("{}")),
	}
}

func ptrStr(s string) *string { return &s }

func TestRecordRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewRecordRepo(db, testutil.Logger(t))

	orgID := uuid.New()
	rec := seedRecord(orgID)

	if err := repo.BatchUpsert(ctx, tx, []*types.Record{rec}); err != nil {
		t.Fatalf("BatchUpsert: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RecordName != rec.RecordName || got.IndexingStatus != types.StatusQueued {
		t.Fatalf("GetByID: unexpected row %+v", got)
	}

	if _, err := repo.GetByID(ctx, tx, uuid.New()); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("GetByID missing: expected ErrRecordNotFound, got %v", err)
	}

	// BatchUpsert on an existing id updates in place.
	rec.IndexingStatus = types.StatusInProgress
	rec.SummaryKey = ptrStr("summaries/abc")
	if err := repo.BatchUpsert(ctx, tx, []*types.Record{rec}); err != nil {
		t.Fatalf("BatchUpsert update: %v", err)
	}
	got, err = repo.GetByID(ctx, tx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID after upsert: %v", err)
	}
	if got.IndexingStatus != types.StatusInProgress || got.SummaryKey == nil || *got.SummaryKey != "summaries/abc" {
		t.Fatalf("BatchUpsert did not update row: %+v", got)
	}

	if err := repo.SetFingerprint(ctx, tx, rec.ID, "deadbeef"); err != nil {
		t.Fatalf("SetFingerprint: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, rec.ID)
	if got.ContentFingerprint == nil || *got.ContentFingerprint != "deadbeef" {
		t.Fatalf("SetFingerprint not persisted: %+v", got)
	}

	if err := repo.UpdateStatus(ctx, tx, rec.ID, types.StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, rec.ID)
	if got.IndexingStatus != types.StatusCompleted {
		t.Fatalf("UpdateStatus not persisted: %+v", got)
	}

	if err := repo.UpdateStatus(ctx, tx, uuid.New(), types.StatusCompleted); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("UpdateStatus missing: expected ErrRecordNotFound, got %v", err)
	}
}

func TestRecordRepoFindDuplicates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewRecordRepo(db, testutil.Logger(t))

	orgID := uuid.New()
	fp := "cafebabe"

	subject := seedRecord(orgID)
	subject.ContentFingerprint = &fp

	match := seedRecord(orgID)
	match.ContentFingerprint = &fp

	otherOrg := seedRecord(uuid.New())
	otherOrg.ContentFingerprint = &fp

	otherMime := seedRecord(orgID)
	otherMime.ContentFingerprint = &fp
	otherMime.MimeType = "text/csv"

	otherSize := seedRecord(orgID)
	otherSize.ContentFingerprint = &fp
	otherSize.SizeBytes = 999

	if err := repo.BatchUpsert(ctx, tx, []*types.Record{subject, match, otherOrg, otherMime, otherSize}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dups, err := repo.FindDuplicates(ctx, tx, orgID, fp, subject.MimeType, subject.SizeBytes, subject.ID)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if len(dups) != 1 || dups[0].ID != match.ID {
		t.Fatalf("FindDuplicates: expected only the same-org same-shape sibling, got %d rows", len(dups))
	}

	// An empty fingerprint never matches anything.
	dups, err = repo.FindDuplicates(ctx, tx, orgID, "", subject.MimeType, subject.SizeBytes, subject.ID)
	if err != nil {
		t.Fatalf("FindDuplicates empty fp: %v", err)
	}
	if len(dups) != 0 {
		t.Fatalf("FindDuplicates empty fp: expected no rows, got %d", len(dups))
	}
}

func TestRecordRepoVirtualRecordQueries(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewRecordRepo(db, testutil.Logger(t))

	orgID := uuid.New()
	vrid := uuid.New()

	a := seedRecord(orgID)
	a.VirtualRecordID = &vrid
	b := seedRecord(orgID)
	b.VirtualRecordID = &vrid
	c := seedRecord(orgID)

	if err := repo.BatchUpsert(ctx, tx, []*types.Record{a, b, c}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := repo.GetByVirtualRecordID(ctx, tx, vrid)
	if err != nil {
		t.Fatalf("GetByVirtualRecordID: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("GetByVirtualRecordID: expected 2 rows, got %d", len(rows))
	}

	n, err := repo.CountLiveByVirtualRecordID(ctx, tx, vrid)
	if err != nil {
		t.Fatalf("CountLiveByVirtualRecordID: %v", err)
	}
	if n != 2 {
		t.Fatalf("CountLiveByVirtualRecordID: expected 2, got %d", n)
	}

	// Soft-deleted rows leave the live count.
	if err := tx.Delete(&types.Record{}, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	n, err = repo.CountLiveByVirtualRecordID(ctx, tx, vrid)
	if err != nil {
		t.Fatalf("CountLiveByVirtualRecordID after delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("CountLiveByVirtualRecordID after delete: expected 1, got %d", n)
	}
}
