package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	maxMessageLen  = 4000
)

// Notifier sends new-incident digests to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// NotifyNewIncidents posts a digest listing the incidents created by a run.
func (n *Notifier) NotifyNewIncidents(ctx context.Context, incidents []domain.Incident, reportPath string) error {
	if len(incidents) == 0 {
		return nil
	}
	return n.PublishDigest(ctx, Digest(incidents, reportPath))
}

// PublishDigest posts a Markdown message to Telegram.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", digest)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// Digest renders the message body, truncated to fit Telegram's message limit.
func Digest(incidents []domain.Incident, reportPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Hangar fire watch: %d new incident(s)*\n", len(incidents))
	for _, inc := range incidents {
		line := fmt.Sprintf("\n- %s", escape(inc.Title))
		if date := domain.Value(inc.PublishedAt); date != "" {
			line += fmt.Sprintf(" (%s)", date)
		}
		place := strings.TrimSpace(strings.Join(nonEmpty(inc.AirportHangarName, inc.Location), ", "))
		if place != "" {
			line += " - " + escape(place)
		}
		if len(inc.URLs) > 0 {
			line += "\n  " + inc.URLs[0]
		}
		if b.Len()+len(line) > maxMessageLen {
			b.WriteString("\n...")
			break
		}
		b.WriteString(line)
	}
	if reportPath != "" {
		fmt.Fprintf(&b, "\n\nReport: `%s`", reportPath)
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
