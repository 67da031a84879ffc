package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/usecase"
)

func TestRecordsRoundTripThroughFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "records.json")
	in := []domain.RawRecord{{Title: "Hangar fire", URL: "http://a/1", PublishedAt: "2024-03-01"}}
	require.NoError(t, writeRecords(nil, path, in))

	got, err := readRecords(path)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, "", nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReadRecordsRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": "not an array"}`), 0o600))

	_, err := readRecords(path)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClearRequiresConfirmation(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	root.SetArgs([]string{"clear"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	assert.ErrorContains(t, err, "--yes")
}

func TestIngestRequiresFile(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	root.SetArgs([]string{"ingest"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, root.Execute(), `required flag(s) "file" not set`)
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printResult(&buf, usecase.CollectResult{
		Fetched: 12, Candidates: 9, Failed: 1,
		Created:    []domain.Incident{{ID: 1}, {ID: 2}},
		ReportPath: "reports/r.xlsx",
	})
	assert.Equal(t, "Fetched 12 records, 9 candidates, 2 new incidents, 1 skipped\nReport written to reports/r.xlsx\n", buf.String())
}
