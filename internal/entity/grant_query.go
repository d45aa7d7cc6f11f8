package entity

import "time"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// GrantFilter selects a page of grants for the listing API.
type GrantFilter struct {
	Status  GrantStatus
	Source  Source
	Keyword string // case-insensitive title substring
	Sort    string // "deadline", "created", "amount", "title"
	Order   string // "asc" or "desc"
	Page    int
	Limit   int
}

// Normalize clamps page to at least 1 and limit to [1, MaxPageLimit], and
// replaces unknown sort keys with their defaults. Callers apply
// DefaultPageLimit when no limit was given.
func (f GrantFilter) Normalize() GrantFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 1
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	switch f.Sort {
	case "deadline", "created", "amount", "title":
	default:
		f.Sort = "deadline"
	}
	if f.Order != "desc" {
		f.Order = "asc"
	}
	return f
}

// Offset is the number of rows skipped before the requested page.
func (f GrantFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// GrantPage is one page of listing results plus collection-wide metadata.
type GrantPage struct {
	Grants       []*Grant
	Total        int
	Page         int
	Limit        int
	TotalPages   int
	SourceCounts map[Source]int
	LastSynced   *time.Time
}

// TotalPagesFor returns ceil(total/limit), or 0 for an empty collection.
func TotalPagesFor(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
