package mailjet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HangarWatch/internal/config"
	"HangarWatch/internal/domain"
)

func testConfig(endpoint string) config.MailjetConfig {
	return config.MailjetConfig{
		Endpoint:       endpoint,
		APIKeyPublic:   "pub",
		APIKeyPrivate:  "priv",
		SenderEmail:    "reports@example.com",
		SenderName:     "Reporter",
		RecipientEmail: "team@example.com",
	}
}

func TestSendReport(t *testing.T) {
	t.Parallel()

	report := filepath.Join(t.TempDir(), "hangar_fire_report.xlsx")
	require.NoError(t, os.WriteFile(report, []byte("xlsx-bytes"), 0o600))

	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "pub", user)
		assert.Equal(t, "priv", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer srv.Close()

	s := NewSender(testConfig(srv.URL))
	s.now = func() time.Time { return time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC) }

	err := s.NotifyNewIncidents(context.Background(), []domain.Incident{{ID: 1}, {ID: 2}}, report)
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Equal(t, "Hangar Fire Incident Report - November 20, 2024", msg.Subject)
	assert.Contains(t, msg.HTMLPart, "New incidents found: 2")
	assert.Equal(t, "team@example.com", msg.To[0].Email)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "hangar_fire_report.xlsx", msg.Attachments[0].Filename)
	assert.Equal(t, xlsxContentType, msg.Attachments[0].ContentType)
	decoded, err := base64.StdEncoding.DecodeString(msg.Attachments[0].Base64Content)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(decoded))
}

func TestSendReportErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	report := filepath.Join(t.TempDir(), "r.xlsx")
	require.NoError(t, os.WriteFile(report, []byte("x"), 0o600))

	err := NewSender(testConfig(srv.URL)).SendReport(context.Background(), report, 1)
	assert.ErrorContains(t, err, "401")

	err = NewSender(config.MailjetConfig{}).SendReport(context.Background(), report, 1)
	assert.ErrorContains(t, err, "misconfigured")

	err = NewSender(testConfig(srv.URL)).SendReport(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"), 1)
	assert.ErrorContains(t, err, "read report")

	assert.NoError(t, NewSender(config.MailjetConfig{}).NotifyNewIncidents(context.Background(), nil, ""))
}
