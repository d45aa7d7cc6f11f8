package jgrants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/normalize"
	"github.com/user/grant-aggregator/internal/source"
)

// unknownOrganization is stored when a subsidy names no organization at all.
const unknownOrganization = "不明"

var errMissingField = errors.New("missing required field")

type subsidy struct {
	ID                 json.RawMessage `json:"id"`
	Title              string          `json:"title"`
	ExecutingOrgName   string          `json:"subsidy_executing_organization_name"`
	TargetOrgName      string          `json:"target_org_name"`
	Outline            string          `json:"outline"`
	Target             string          `json:"target"`
	SubsidyMinLimit    any             `json:"subsidy_min_limit"`
	SubsidyMaxLimit    any             `json:"subsidy_max_limit"`
	AcceptanceStart    string          `json:"acceptance_start_datetime"`
	AcceptanceDeadline string          `json:"acceptance_end_datetime"`
}

// Extract maps raw subsidies onto grants. Malformed items are logged and skipped.
func (s *Source) Extract(ctx context.Context, raw *source.RawPayload, today time.Time) ([]*entity.Grant, error) {
	if raw == nil {
		return nil, nil
	}
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	grants := make([]*entity.Grant, 0, len(raw.Items))
	for i, item := range raw.Items {
		g, err := s.parseItem(item, today)
		if err != nil {
			slog.Warn("Skipping malformed JGrants item", "source", entity.SourceJGrants, "index", i, "error", err)
			continue
		}
		grants = append(grants, g)
	}
	return grants, nil
}

func (s *Source) parseItem(item json.RawMessage, today time.Time) (*entity.Grant, error) {
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	var sub subsidy
	if err := dec.Decode(&sub); err != nil {
		return nil, fmt.Errorf("decode subsidy: %w", err)
	}

	id := idString(sub.ID)
	title := normalize.CleanText(sub.Title)
	if id == "" {
		return nil, fmt.Errorf("%w: id", errMissingField)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title", errMissingField)
	}

	deadline := normalize.ParseDate(sub.AcceptanceDeadline)
	detailURL := s.detailURL(id)

	return &entity.Grant{
		Source:              entity.SourceJGrants,
		SourceID:            "jgrants_" + id,
		Title:               title,
		Organization:        organization(sub),
		Category:            normalize.Classify(sub.Title, sub.Outline),
		Summary:             normalize.OptionalText(sub.Outline),
		TargetAudience:      normalize.OptionalText(sub.Target),
		AmountMin:           normalize.ParseAmount(sub.SubsidyMinLimit),
		AmountMax:           normalize.ParseAmount(sub.SubsidyMaxLimit),
		ApplicationStart:    normalize.ParseDate(sub.AcceptanceStart),
		ApplicationDeadline: deadline,
		DetailURL:           &detailURL,
		Status:              normalize.DeriveStatus(deadline, today),
		RawPayload:          item,
	}, nil
}

// organization prefers the executing organization, then the target organization.
func organization(sub subsidy) string {
	for _, name := range []string{sub.ExecutingOrgName, sub.TargetOrgName} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return unknownOrganization
}
