package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchTag(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.February, 28, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-W09", BatchTag(day, false))
	assert.Equal(t, "backfill", BatchTag(day, true))

	// ISO week years differ from calendar years around New Year.
	assert.Equal(t, "2025-W01", WeekTag(time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2020-W53", WeekTag(time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTruncateDate(t *testing.T) {
	t.Parallel()

	assert.Nil(t, TruncateDate(nil))
	assert.Nil(t, TruncateDate(Optional("")))
	assert.Equal(t, "2024-03-01", *TruncateDate(Optional("2024-03-01T10:22:00Z")))
	assert.Equal(t, "2024-03", *TruncateDate(Optional("2024-03")))

	wide := TruncateDate(Optional("２０２４年３月１日 午前"))
	require.NotNil(t, wide)
	assert.Equal(t, "２０２４年３月１日 ", *wide)
	assert.True(t, utf8.ValidString(*wide))
}

func TestIncidentAddURL(t *testing.T) {
	t.Parallel()

	inc := Incident{URLs: []string{"http://a.com/1"}}
	assert.False(t, inc.AddURL("http://a.com/1"))
	assert.False(t, inc.AddURL(""))
	assert.True(t, inc.AddURL("http://b.com/2"))
	assert.Equal(t, []string{"http://a.com/1", "http://b.com/2"}, inc.URLs)
}

func TestCandidateCombinedText(t *testing.T) {
	t.Parallel()

	c := Candidate{
		Title:       "Hangar fire destroys two jets",
		PublishedAt: Optional("2024-03-01"),
		Description: Optional("ignored for embedding"),
	}
	assert.Equal(t, "Title: Hangar fire destroys two jets\nLocation: \nPublished At: 2024-03-01\nContent: ", c.CombinedText())
	assert.True(t, c.HasText())

	empty := Candidate{URL: "http://a.com/1", Description: Optional("only a description")}
	assert.False(t, empty.HasText())
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := fmt.Errorf("candidate 3: %w", StoreError("get incident", cause))

	require.ErrorIs(t, err, ErrStore)
	assert.NotErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "STORE: get incident: connection refused")

	notFound := StoreError("get incident 9", ErrNotFound)
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.ErrorIs(t, DecodeError("verdict", nil), ErrDecode)
}
