package response

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/user/grant-aggregator/internal/entity"
)

type GrantResponse struct {
	ID                  uuid.UUID `json:"id"`
	Source              string    `json:"source"`
	Title               string    `json:"title"`
	Organization        string    `json:"organization"`
	Category            string    `json:"category"`
	Summary             *string   `json:"summary"`
	TargetAudience      *string   `json:"target_audience"`
	AmountMin           *int64    `json:"amount_min"`
	AmountMax           *int64    `json:"amount_max"`
	ApplicationStart    *string   `json:"application_start"`    // YYYY-MM-DD
	ApplicationDeadline *string   `json:"application_deadline"` // YYYY-MM-DD
	DetailURL           *string   `json:"detail_url"`
	Status              string    `json:"status"`
	LastSyncedAt        time.Time `json:"last_synced_at"`
}

type GrantDetailResponse struct {
	GrantResponse
	RawData   json.RawMessage `json:"raw_data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type PaginationMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

type SourcesMeta struct {
	Sources    map[string]int `json:"sources"`
	LastSynced *time.Time     `json:"last_synced"`
}

type GrantListResponse struct {
	Data       []GrantResponse `json:"data"`
	Pagination PaginationMeta  `json:"pagination"`
	Meta       SourcesMeta     `json:"meta"`
}

type SyncJobResponse struct {
	ScrapeLogID uuid.UUID `json:"scrape_log_id"`
	Source      string    `json:"source"`
}

// SyncResponse keeps scrape_log_id for the first job so single-source callers can poll directly.
type SyncResponse struct {
	ScrapeLogID uuid.UUID         `json:"scrape_log_id"`
	Jobs        []SyncJobResponse `json:"jobs"`
	Message     string            `json:"message"`
}

// ScrapeLogResponse is a DTO for a sync run; status is "queued" until the worker opens the run log.
type ScrapeLogResponse struct {
	ID             uuid.UUID  `json:"id"`
	Source         string     `json:"source,omitempty"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	RecordsFound   int        `json:"records_found"`
	RecordsCreated int        `json:"records_created"`
	RecordsUpdated int        `json:"records_updated"`
	ErrorMessage   *string    `json:"error_message"`
}

func NewGrant(g *entity.Grant) GrantResponse {
	return GrantResponse{
		ID:                  g.ID,
		Source:              string(g.Source),
		Title:               g.Title,
		Organization:        g.Organization,
		Category:            string(g.Category),
		Summary:             g.Summary,
		TargetAudience:      g.TargetAudience,
		AmountMin:           g.AmountMin,
		AmountMax:           g.AmountMax,
		ApplicationStart:    formatDate(g.ApplicationStart),
		ApplicationDeadline: formatDate(g.ApplicationDeadline),
		DetailURL:           g.DetailURL,
		Status:              string(g.Status),
		LastSyncedAt:        g.LastSyncedAt,
	}
}

func NewGrantDetail(g *entity.Grant) GrantDetailResponse {
	raw := g.RawPayload
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return GrantDetailResponse{
		GrantResponse: NewGrant(g),
		RawData:       raw,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

func NewGrantList(p *entity.GrantPage) GrantListResponse {
	data := make([]GrantResponse, 0, len(p.Grants))
	for _, g := range p.Grants {
		data = append(data, NewGrant(g))
	}
	sources := make(map[string]int, len(p.SourceCounts))
	for s, n := range p.SourceCounts {
		sources[string(s)] = n
	}
	return GrantListResponse{
		Data: data,
		Pagination: PaginationMeta{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages,
		},
		Meta: SourcesMeta{Sources: sources, LastSynced: p.LastSynced},
	}
}

func NewScrapeLog(st *entity.SyncStatus) ScrapeLogResponse {
	resp := ScrapeLogResponse{ID: st.RunID, Status: st.CurrentStatus}
	if run := st.Run; run != nil {
		started := run.StartedAt
		resp.Source = string(run.SourceRef)
		resp.StartedAt = &started
		resp.FinishedAt = run.FinishedAt
		resp.RecordsFound = run.Stats.Found
		resp.RecordsCreated = run.Stats.Created
		resp.RecordsUpdated = run.Stats.Updated
		resp.ErrorMessage = run.ErrorMessage
	}
	return resp
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
