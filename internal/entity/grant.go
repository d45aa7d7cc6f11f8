package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source identifies the origin system a grant was ingested from.
type Source string

const (
	SourceJGrants Source = "jgrants"
	SourceERad    Source = "erad"
)

// AllSources lists every source in pipeline order.
var AllSources = []Source{SourceJGrants, SourceERad}

// ParseSource validates a source name.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceJGrants, SourceERad:
		return Source(s), true
	}
	return "", false
}

type Category string

const (
	CategoryResearch      Category = "research"
	CategoryStartup       Category = "startup"
	CategoryEquipment     Category = "equipment"
	CategoryInternational Category = "international"
	CategoryOther         Category = "other"
)

// GrantStatus is derived from the application deadline, never taken from a source.
type GrantStatus string

const (
	StatusOpen        GrantStatus = "open"
	StatusClosingSoon GrantStatus = "closing_soon"
	StatusClosed      GrantStatus = "closed"
)

// Grant mirrors the `grants` PostgreSQL table schema.
// Dates are civil dates held at midnight UTC.
type Grant struct {
	ID                  uuid.UUID
	Source              Source
	SourceID            string
	Title               string
	Organization        string
	Category            Category
	Summary             *string
	TargetAudience      *string
	AmountMin           *int64
	AmountMax           *int64
	ApplicationStart    *time.Time
	ApplicationDeadline *time.Time
	DetailURL           *string
	Status              GrantStatus
	RawPayload          json.RawMessage // Stored as JSONB in PostgreSQL
	LastSyncedAt        time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
