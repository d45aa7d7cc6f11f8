package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RunStats are the counters one scraper invocation reports.
type RunStats struct {
	Found   int `json:"records_found"`
	Created int `json:"records_created"`
	Updated int `json:"records_updated"`
}

// RunLog mirrors the `scrape_logs` PostgreSQL table schema.
// FinishedAt and ErrorMessage stay nil until the run is terminal.
type RunLog struct {
	ID           uuid.UUID
	SourceRef    Source
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       RunStatus
	Stats        RunStats
	ErrorMessage *string
}

// Terminal reports whether the run has finished, successfully or not.
func (l *RunLog) Terminal() bool {
	return l.Status == RunSuccess || l.Status == RunFailed
}
