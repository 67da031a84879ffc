package usecase

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"HangarWatch/internal/domain"
)

// Normalizer converts heterogeneous raw records into canonical candidates.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer builds a normalizer; logger may be nil.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize trims fields, strips markup from free text, maps empty values to absent and
// drops records without a URL or repeating an earlier URL.
func (n *Normalizer) Normalize(records []domain.RawRecord) []domain.Candidate {
	seen := make(map[string]struct{}, len(records))
	out := make([]domain.Candidate, 0, len(records))
	var missingURL, repeated int

	for _, rec := range records {
		u := strings.TrimSpace(rec.URL)
		if u == "" {
			missingURL++
			continue
		}
		if _, ok := seen[u]; ok {
			repeated++
			continue
		}
		seen[u] = struct{}{}
		out = append(out, n.NormalizeOne(rec))
	}

	if n.logger != nil {
		n.logger.Debug("normalized records",
			"in", len(records), "out", len(out), "missing_url", missingURL, "repeated_url", repeated)
	}
	return out
}

// NormalizeOne maps a single record without filtering it.
func (n *Normalizer) NormalizeOne(rec domain.RawRecord) domain.Candidate {
	return domain.Candidate{
		Title:       collapse(stripMarkup(rec.Title)),
		URL:         strings.TrimSpace(rec.URL),
		Source:      domain.Optional(rec.Source),
		Author:      domain.Optional(rec.Author),
		PublishedAt: domain.Optional(rec.PublishedAt),
		Description: domain.Optional(stripMarkup(rec.Description)),
		Content:     domain.Optional(stripMarkup(rec.Content)),
		Location:    domain.Optional(rec.Location),
	}
}

// stripMarkup returns the text content of HTML snippets some providers return.
func stripMarkup(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
