package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProcessingStatus tracks where a record revision sits in the extraction
// lifecycle. QUEUED is a parking state behind an in-flight duplicate;
// EMPTY is the terminal no-content/failure state.
type ProcessingStatus string

const (
	StatusQueued     ProcessingStatus = "QUEUED"
	StatusInProgress ProcessingStatus = "IN_PROGRESS"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusEmpty      ProcessingStatus = "EMPTY"
)

func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusEmpty
}

type Record struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID         uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`
	RecordName    string    `gorm:"column:record_name;not null" json:"record_name"`
	ConnectorName string    `gorm:"column:connector_name" json:"connector_name"`
	Origin        string    `gorm:"column:origin" json:"origin"`

	MimeType  string `gorm:"column:mime_type" json:"mime_type"`
	Extension string `gorm:"column:extension" json:"extension"`
	SizeBytes int64  `gorm:"column:size_bytes" json:"size_bytes"`

	// ContentFingerprint is nil until computed for this revision and
	// immutable afterwards.
	ContentFingerprint *string `gorm:"column:content_fingerprint;index" json:"content_fingerprint,omitempty"`

	// VirtualRecordID groups every revision/copy that represents the same
	// logical content. Minted only by the identity reconciler.
	VirtualRecordID *uuid.UUID `gorm:"column:virtual_record_id;type:uuid;index" json:"virtual_record_id,omitempty"`

	IndexingStatus ProcessingStatus `gorm:"column:indexing_status;not null;default:'QUEUED'" json:"indexing_status"`
	Version        int              `gorm:"column:version;not null;default:1" json:"version"`

	// SummaryKey points at the extraction summary object produced for a
	// completed revision; copied verbatim on duplicate reuse.
	SummaryKey *string        `gorm:"column:summary_key" json:"summary_key,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Record) TableName() string { return "record" }
