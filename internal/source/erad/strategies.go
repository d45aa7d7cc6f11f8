package erad

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/normalize"
	"github.com/user/grant-aggregator/pkg/utils"
)

const (
	minTitleRunes     = 5  // table rows and list entries
	minLinkTextRunes  = 11 // link scan needs more than 10
	listedOrgFallback = "e-Rad掲載機関"
	unknownOrg        = "不明"
	offerSelectors    = ".offer-item, .koubo-item, dl.offer, .offerList li, .offer_list li"
	titleSelectors    = "dt, h3, h4, a"
)

var (
	offerLinkPattern = regexp.MustCompile(`(?i)(offer|koubo|detail)`)
	linkIDPattern    = regexp.MustCompile(`/(\d+)`)
)

// Env carries what every strategy needs besides the document.
type Env struct {
	Base  *url.URL
	Today time.Time
}

// Strategy is one way of reading offers out of the list page.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document, env Env) []*entity.Grant
}

// DefaultStrategies are tried in order; the first one that yields anything wins.
var DefaultStrategies = []Strategy{
	{Name: "table", Extract: extractTables},
	{Name: "list", Extract: extractOfferList},
	{Name: "links", Extract: extractOfferLinks},
}

func runStrategies(doc *goquery.Document, env Env, strategies []Strategy) (string, []*entity.Grant) {
	for _, st := range strategies {
		if grants := st.Extract(doc, env); len(grants) > 0 {
			slog.Debug("e-Rad strategy matched", "source", entity.SourceERad, "strategy", st.Name, "count", len(grants))
			return st.Name, grants
		}
	}
	return "", nil
}

// extractTables reads organization, title and period from the first three cells of every data row.
func extractTables(doc *goquery.Document, env Env) []*entity.Grant {
	var grants []*entity.Grant
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}
		rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cols := row.Find("td, th")
			if cols.Length() < 3 {
				return
			}
			titleCol := cols.Eq(1)
			title := normalize.CleanText(titleCol.Text())
			if utf8.RuneCountInString(title) < minTitleRunes {
				return
			}

			href := attr(titleCol.Find("a").First(), "href")
			org := normalize.CleanText(cols.Eq(0).Text())
			if org == "" {
				org = unknownOrg
			}
			start, deadline := normalize.ParsePeriod(cols.Eq(2).Text())

			g := newGrant(env, title, org, href)
			g.ApplicationStart = start
			g.ApplicationDeadline = deadline
			g.Status = normalize.DeriveStatus(deadline, env.Today)
			g.RawPayload = rawPayload(normalize.CleanText(row.Text()), href)
			grants = append(grants, g)
		})
	})
	return grants
}

// extractOfferList reads entries laid out as lists or definition lists.
func extractOfferList(doc *goquery.Document, env Env) []*entity.Grant {
	var grants []*entity.Grant
	doc.Find(offerSelectors).Each(func(_ int, el *goquery.Selection) {
		titleEl := el.Find(titleSelectors).First()
		if titleEl.Length() == 0 {
			return
		}
		title := normalize.CleanText(titleEl.Text())
		if utf8.RuneCountInString(title) < minTitleRunes {
			return
		}

		href := attr(el.Find("a").First(), "href")
		g := newGrant(env, title, listedOrgFallback, href)
		g.RawPayload = rawPayload(normalize.CleanText(el.Text()), href)
		grants = append(grants, g)
	})
	return grants
}

// extractOfferLinks keeps any link that looks like an offer detail page.
func extractOfferLinks(doc *goquery.Document, env Env) []*entity.Grant {
	var grants []*entity.Grant
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := attr(link, "href")
		if !offerLinkPattern.MatchString(href) {
			return
		}
		text := normalize.CleanText(link.Text())
		if utf8.RuneCountInString(text) < minLinkTextRunes {
			return
		}

		g := newGrant(env, text, listedOrgFallback, href)
		g.RawPayload = rawPayload(text, href)
		grants = append(grants, g)
	})
	return grants
}

// newGrant fills the fields every strategy derives the same way. Status
// defaults to open; only the table strategy knows a deadline.
func newGrant(env Env, title, org, href string) *entity.Grant {
	category := normalize.Classify(title, "")
	if category == entity.CategoryOther {
		category = entity.CategoryResearch
	}
	return &entity.Grant{
		Source:       entity.SourceERad,
		SourceID:     sourceID(href, title),
		Title:        title,
		Organization: org,
		Category:     category,
		DetailURL:    detailURL(env.Base, href),
		Status:       entity.StatusOpen,
	}
}

// sourceID prefers the numeric id in the detail link and falls back to a
// hash of the title, which changes whenever the title is edited.
func sourceID(href, title string) string {
	if id := extractSourceID(href); id != "" {
		return "erad_" + id
	}
	return "erad_" + utils.HashText(title, 16)
}

func extractSourceID(href string) string {
	if m := linkIDPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

func detailURL(base *url.URL, href string) *string {
	if href == "" {
		return nil
	}
	abs, err := utils.ToAbsoluteURL(base, href)
	if err != nil {
		return nil
	}
	return &abs
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

func rawPayload(text, href string) json.RawMessage {
	b, _ := json.Marshal(struct {
		HTMLText string `json:"html_text"`
		Href     string `json:"href,omitempty"`
	}{text, href})
	return b
}
