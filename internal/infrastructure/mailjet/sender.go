package mailjet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"HangarWatch/internal/config"
	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sender e-mails the incident report through the Mailjet v3.1 send API.
type Sender struct {
	cfg    config.MailjetConfig
	client *http.Client
	now    func() time.Time
}

var _ ports.Notifier = (*Sender)(nil)

// NewSender builds a sender from configuration.
func NewSender(cfg config.MailjetConfig) *Sender {
	return &Sender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

type address struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type attachment struct {
	ContentType   string `json:"ContentType"`
	Filename      string `json:"Filename"`
	Base64Content string `json:"Base64Content"`
}

type message struct {
	From        address      `json:"From"`
	To          []address    `json:"To"`
	Subject     string       `json:"Subject"`
	HTMLPart    string       `json:"HTMLPart"`
	Attachments []attachment `json:"Attachments,omitempty"`
}

type sendRequest struct {
	Messages []message `json:"Messages"`
}

// NotifyNewIncidents mails the report with the count of new incidents.
func (s *Sender) NotifyNewIncidents(ctx context.Context, incidents []domain.Incident, reportPath string) error {
	if len(incidents) == 0 {
		return nil
	}
	return s.SendReport(ctx, reportPath, len(incidents))
}

// SendReport attaches the workbook at reportPath and sends it to the configured recipient.
func (s *Sender) SendReport(ctx context.Context, reportPath string, newCount int) error {
	if s.cfg.APIKeyPublic == "" || s.cfg.APIKeyPrivate == "" || s.cfg.SenderEmail == "" || s.cfg.RecipientEmail == "" {
		return errors.New("mailjet sender misconfigured")
	}
	if reportPath == "" {
		return errors.New("mailjet: no report to attach")
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	date := s.now().Format("January 2, 2006")
	payload := sendRequest{Messages: []message{{
		From:     address{Email: s.cfg.SenderEmail, Name: s.cfg.SenderName},
		To:       []address{{Email: s.cfg.RecipientEmail, Name: s.cfg.RecipientName}},
		Subject:  "Hangar Fire Incident Report - " + date,
		HTMLPart: emailBody(newCount, date),
		Attachments: []attachment{{
			ContentType:   xlsxContentType,
			Filename:      filepath.Base(reportPath),
			Base64Content: base64.StdEncoding.EncodeToString(raw),
		}},
	}}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mailjet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(s.cfg.APIKeyPublic, s.cfg.APIKeyPrivate)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mailjet error %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

func emailBody(newCount int, date string) string {
	return fmt.Sprintf(`<h2>Hangar Fire Incident Weekly Report</h2>
<p>Date: %s</p>
<p>New incidents found: %d</p>
<p>Please find the attached report.</p>`, date, newCount)
}
