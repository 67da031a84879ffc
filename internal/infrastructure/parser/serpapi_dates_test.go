package parser

import (
	"testing"
	"time"
)

func TestParseNewsDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 11, 20, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want string
	}{
		{"", "2024-11-20"},
		{"5m", "2024-11-20"},
		{"20h", "2024-11-19"},
		{"3d", "2024-11-17"},
		{"1mon", "2024-10-21"},
		{"2y", "2022-11-21"},
		{"04/19/2012, 07:00 AM, +0000 UTC", "2012-04-19"},
		{"11/12/2024, 09:03 AM", "2024-11-12"},
		{"2024-11-01", "2024-11-01"},
		{"11/02/2024", "2024-11-02"},
		{"25/12/2023", "2023-12-25"},
		{"yesterday-ish", "2024-11-20"},
		{"xd", "2024-11-20"},
	}

	for _, tc := range cases {
		if got := parseNewsDate(tc.in, now); got != tc.want {
			t.Fatalf("parseNewsDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestIsStaleBingDate(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"":     true,
		"3d":   false,
		"5y":   false,
		"6y":   true,
		"12y":  true,
		"2mon": false,
	}
	for in, want := range cases {
		if got := isStaleBingDate(in); got != want {
			t.Fatalf("isStaleBingDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLastWeekStart(t *testing.T) {
	t.Parallel()

	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 11, 20, 15, 0, 0, 0, time.UTC), "2024-11-11"}, // Wednesday
		{time.Date(2024, 11, 18, 0, 0, 0, 0, time.UTC), "2024-11-11"},  // Monday
		{time.Date(2024, 11, 24, 23, 0, 0, 0, time.UTC), "2024-11-11"}, // Sunday
	}
	for _, tc := range cases {
		got := lastWeekStart(tc.now)
		if got.Format(time.DateOnly) != tc.want || got.Hour() != 0 {
			t.Fatalf("lastWeekStart(%s) = %s, want %s", tc.now, got, tc.want)
		}
	}
}
