package parser

import (
	"strconv"
	"strings"
	"time"
)

var absoluteDateLayouts = []string{
	"01/02/2006, 03:04 PM, +0000 UTC",
	"01/02/2006, 03:04 PM",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

// parseNewsDate resolves SerpAPI dates to YYYY-MM-DD. Bing reports relative ages ("5m", "3h",
// "2d", "1mon", "2y"), Google absolute timestamps. Anything unreadable becomes today's date.
func parseNewsDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	today := now.Format(time.DateOnly)
	if raw == "" {
		return today
	}

	if t, ok := relativeDate(raw, now); ok {
		return t.Format(time.DateOnly)
	}

	for _, layout := range absoluteDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return today
}

func relativeDate(raw string, now time.Time) (time.Time, bool) {
	units := []struct {
		suffix string
		step   time.Duration
	}{
		{"mon", 30 * 24 * time.Hour},
		{"m", 0},
		{"h", time.Hour},
		{"d", 24 * time.Hour},
		{"y", 365 * 24 * time.Hour},
	}

	for _, u := range units {
		if !strings.HasSuffix(raw, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(raw, u.suffix))
		if err != nil {
			return time.Time{}, false
		}
		return now.Add(-time.Duration(n) * u.step), true
	}
	return time.Time{}, false
}

// isStaleBingDate reports whether paging should stop: Bing results are sorted by date and an
// empty or older-than-five-years age marks the end of useful pages.
func isStaleBingDate(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	if !strings.HasSuffix(raw, "y") {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(raw, "y"))
	return err == nil && n > 5
}

// lastWeekStart returns midnight of the previous week's Monday.
func lastWeekStart(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset-7)
}
