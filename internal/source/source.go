// Package source defines the contract every grant source pipeline implements.
package source

import (
	"context"
	"encoding/json"
	"time"

	"github.com/user/grant-aggregator/internal/entity"
)

// RawPayload is what a source fetched, before extraction.
// API sources fill Items, HTML sources fill Documents.
type RawPayload struct {
	Items     []json.RawMessage
	Documents []string
}

// Source fetches one origin system and turns its payload into canonical grants.
type Source interface {
	Name() entity.Source
	// Fetch performs all network I/O, including pagination and rate-limit waits.
	Fetch(ctx context.Context) (*RawPayload, error)
	// Extract performs no I/O; ctx only carries the trace. Malformed items are
	// logged and skipped; an error means the payload as a whole is unusable.
	Extract(ctx context.Context, raw *RawPayload, today time.Time) ([]*entity.Grant, error)
}

// UserAgent identifies the aggregator to upstream sites.
const UserAgent = "GrantDraft/1.0 (research-grant-aggregator)"

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
