package types

import (
	"github.com/google/uuid"
)

// EventType classifies an inbound change event.
type EventType string

const (
	EventCreate  EventType = "create"
	EventUpdate  EventType = "update"
	EventReindex EventType = "reindex"
)

func (e EventType) Valid() bool {
	switch e {
	case EventCreate, EventUpdate, EventReindex:
		return true
	}
	return false
}

// ChangeEvent is the unit of work delivered by the upstream transport.
// Buffer may be empty, in which case the content is fetched from the
// origin bucket by storage key.
type ChangeEvent struct {
	EventType EventType     `json:"event_type"`
	Payload   ChangePayload `json:"payload"`
}

type ChangePayload struct {
	RecordID        uuid.UUID  `json:"record_id"`
	OrgID           uuid.UUID  `json:"org_id"`
	VirtualRecordID *uuid.UUID `json:"virtual_record_id,omitempty"`
	Version         int        `json:"version"`
	ConnectorName   string     `json:"connector_name"`
	Extension       string     `json:"extension"`
	MimeType        string     `json:"mime_type"`
	Origin          string     `json:"origin"`
	RecordName      string     `json:"record_name"`
	Buffer          []byte     `json:"buffer,omitempty"`
}
