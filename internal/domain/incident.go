package domain

import (
	"fmt"
	"slices"
	"time"
)

// Batch tags written to Incident.CollectedAt.
const (
	TagBackfill = "backfill"
	TagArchive  = "doc"
)

// Incident is a persisted, deduplicated real-world hangar fire event.
type Incident struct {
	ID                int64
	Title             string
	Source            *string
	Author            *string
	PublishedAt       *string
	Content           *string
	Location          string
	AirportHangarName string
	URLs              []string
	Embedding         []float32
	CollectedAt       string
}

// AddURL appends u to the url set unless it is already present or empty.
// It reports whether the set changed.
func (i *Incident) AddURL(u string) bool {
	if u == "" || slices.Contains(i.URLs, u) {
		return false
	}
	i.URLs = append(i.URLs, u)
	return true
}

// Neighbor is an existing incident returned by similarity search.
type Neighbor struct {
	Incident   Incident
	Similarity float64
}

// WeekTag formats the ISO week of t as YYYY-W##.
func WeekTag(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// BatchTag selects the collectedAt partition label for an ingestion run.
func BatchTag(now time.Time, backfill bool) string {
	if backfill {
		return TagBackfill
	}
	return WeekTag(now)
}

// TruncateDate keeps the first 10 characters (YYYY-MM-DD) of a date string.
func TruncateDate(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	d := *s
	if r := []rune(d); len(r) > 10 {
		d = string(r[:10])
	}
	return &d
}
