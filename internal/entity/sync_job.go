package entity

import (
	"time"

	"github.com/google/uuid"
)

// SyncJob is a queued request to run one source pipeline.
// RunID is assigned at submission so callers can poll before the worker picks it up.
type SyncJob struct {
	RunID       uuid.UUID `json:"run_id"`
	Source      Source    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

// SyncStatus is what a caller sees when polling a submitted run.
type SyncStatus struct {
	RunID         uuid.UUID
	CurrentStatus string // "queued", or a RunStatus once the worker opened the run log
	Run           *RunLog
}
