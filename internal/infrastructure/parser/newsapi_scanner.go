package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"HangarWatch/internal/config"
	"HangarWatch/internal/domain"
	"HangarWatch/internal/scanner"
)

// NewsAPIScanner pages through the NewsAPI /v2/everything endpoint.
type NewsAPIScanner struct {
	client       *http.Client
	endpoint     string
	apiKey       string
	pageSize     int
	maxPages     int
	lookbackDays int
	limiter      *rate.Limiter
}

// NewNewsAPIScanner wires an HTTP client; zero limits fall back to the free tier caps.
func NewNewsAPIScanner(client *http.Client, cfg config.NewsAPIConfig) *NewsAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	s := &NewsAPIScanner{
		client:       client,
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		pageSize:     cfg.PageSize,
		maxPages:     cfg.MaxPages,
		lookbackDays: cfg.LookbackDays,
		limiter:      newLimiter(cfg.RequestsPerSecond),
	}
	if s.pageSize <= 0 {
		s.pageSize = 100
	}
	if s.maxPages <= 0 {
		s.maxPages = 5
	}
	if s.lookbackDays <= 0 {
		s.lookbackDays = 8
	}
	return s
}

// Name identifies the strategy inside the registry.
func (n *NewsAPIScanner) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Scan runs every query in every language and returns the combined articles.
func (n *NewsAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if n.apiKey == "" {
		return nil, fmt.Errorf("newsapi key is not configured for source %s", req.SourceName)
	}
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("no queries provided for source %s", req.SourceName)
	}

	from := req.Now.AddDate(0, 0, -n.lookbackDays).Format(time.DateOnly)

	var results []domain.RawRecord
	for _, lang := range req.LanguagesOrDefault() {
		for _, query := range req.Queries {
			records, err := n.scanQuery(ctx, query, lang, from)
			if err != nil {
				return nil, fmt.Errorf("query %q (%s): %w", query, lang, err)
			}
			results = append(results, records...)
		}
	}
	return results, nil
}

func (n *NewsAPIScanner) scanQuery(ctx context.Context, query, lang, from string) ([]domain.RawRecord, error) {
	var (
		records []domain.RawRecord
		total   = 1
	)

	for page := 1; page <= n.maxPages && len(records) < total; page++ {
		resp, err := n.fetchPage(ctx, query, lang, from, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if page == 1 {
			total = min(resp.TotalResults, n.pageSize*n.maxPages)
		}

		for _, a := range resp.Articles {
			records = append(records, domain.RawRecord{
				Title:       a.Title,
				URL:         a.URL,
				Source:      a.Source.Name,
				Author:      a.Author,
				PublishedAt: a.PublishedAt,
				Description: a.Description,
				Content:     a.Content,
				Language:    lang,
			})
		}

		if len(resp.Articles) < n.pageSize {
			break
		}
	}
	return records, nil
}

func (n *NewsAPIScanner) fetchPage(ctx context.Context, query, lang, from string, page int) (*newsAPIResponse, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(n.pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("language", lang)
	params.Set("sortBy", "publishedAt")
	params.Set("from", from)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)
	req.Header.Set("User-Agent", "HangarWatch/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("newsapi returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if out.Status != "" && out.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %s: %s", out.Status, out.Message)
	}
	return &out, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
