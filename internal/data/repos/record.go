package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

var ErrRecordNotFound = errors.New("record not found")

type RecordRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Record, error)
	BatchUpsert(ctx context.Context, tx *gorm.DB, recs []*types.Record) error
	SetFingerprint(ctx context.Context, tx *gorm.DB, id uuid.UUID, fingerprint string) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ProcessingStatus) error
	FindDuplicates(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, fingerprint string, mimeType string, sizeBytes int64, excludeID uuid.UUID) ([]*types.Record, error)
	GetByVirtualRecordID(ctx context.Context, tx *gorm.DB, vrid uuid.UUID) ([]*types.Record, error)
	CountLiveByVirtualRecordID(ctx context.Context, tx *gorm.DB, vrid uuid.UUID) (int64, error)
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{db: db, log: baseLog.With("repo", "RecordRepo")}
}

func (r *recordRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rec types.Record
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *recordRepo) BatchUpsert(ctx context.Context, tx *gorm.DB, recs []*types.Record) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(recs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&recs).Error; err != nil {
		return err
	}
	return nil
}

func (r *recordRepo) SetFingerprint(ctx context.Context, tx *gorm.DB, id uuid.UUID, fingerprint string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Record{}).
		Where("id = ?", id).
		Update("content_fingerprint", fingerprint).Error
}

func (r *recordRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ProcessingStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Record{}).
		Where("id = ?", id).
		Update("indexing_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *recordRepo) FindDuplicates(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, fingerprint string, mimeType string, sizeBytes int64, excludeID uuid.UUID) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Record
	if fingerprint == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("org_id = ?", orgID).
		Where("content_fingerprint = ?", fingerprint).
		Where("mime_type = ?", mimeType).
		Where("size_bytes = ?", sizeBytes).
		Where("id <> ?", excludeID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) GetByVirtualRecordID(ctx context.Context, tx *gorm.DB, vrid uuid.UUID) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Record
	if err := transaction.WithContext(ctx).
		Where("virtual_record_id = ?", vrid).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) CountLiveByVirtualRecordID(ctx context.Context, tx *gorm.DB, vrid uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.Record{}).
		Where("virtual_record_id = ?", vrid).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
