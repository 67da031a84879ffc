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

// SerpAPI engines served by SerpAPIScanner.
const (
	EngineGoogleNews = "google_news"
	EngineBingNews   = "bing_news"
)

const (
	bingPageSize        = 10
	defaultBingMaxPages = 20
)

// SerpAPIScanner queries one SerpAPI news engine. Register one instance per engine.
type SerpAPIScanner struct {
	client   *http.Client
	endpoint string
	apiKey   string
	engine   string
	limiter  *rate.Limiter
}

// NewSerpAPIScanner wires an HTTP client for the given engine.
func NewSerpAPIScanner(client *http.Client, cfg config.SerpAPIConfig, engine string) *SerpAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SerpAPIScanner{
		client:   client,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		engine:   engine,
		limiter:  newLimiter(cfg.RequestsPerSecond),
	}
}

// Name identifies the strategy inside the registry.
func (s *SerpAPIScanner) Name() string {
	return s.engine
}

type serpResponse struct {
	Error       string `json:"error"`
	NewsResults []struct {
		Title  string `json:"title"`
		Link   string `json:"link"`
		Date   string `json:"date"`
		Source struct {
			Name    string   `json:"name"`
			Authors []string `json:"authors"`
		} `json:"source"`
	} `json:"news_results"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  string `json:"source"`
		Date    string `json:"date"`
	} `json:"organic_results"`
}

// Scan runs every query in every configured language against the engine.
func (s *SerpAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serpapi key is not configured for source %s", req.SourceName)
	}
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("no queries provided for source %s", req.SourceName)
	}

	var results []domain.RawRecord
	for _, lang := range req.LanguagesOrDefault() {
		for _, query := range req.Queries {
			var (
				records []domain.RawRecord
				err     error
			)
			switch s.engine {
			case EngineGoogleNews:
				records, err = s.searchGoogle(ctx, req, query, lang)
			case EngineBingNews:
				records, err = s.searchBing(ctx, req, query, lang)
			default:
				return nil, fmt.Errorf("unsupported serpapi engine %s", s.engine)
			}
			if err != nil {
				return nil, fmt.Errorf("%s query %q (%s): %w", s.engine, query, lang, err)
			}
			results = append(results, records...)
		}
	}
	return results, nil
}

func (s *SerpAPIScanner) searchGoogle(ctx context.Context, req scanner.Request, query, lang string) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("engine", EngineGoogleNews)
	params.Set("q", query)
	params.Set("hl", lang)

	resp, err := s.fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	cutoff := lastWeekStart(req.Now).Format(time.DateOnly)
	records := make([]domain.RawRecord, 0, len(resp.NewsResults))
	for _, item := range resp.NewsResults {
		published := parseNewsDate(item.Date, req.Now)
		if req.Weekly && published < cutoff {
			continue
		}
		records = append(records, domain.RawRecord{
			Title:       item.Title,
			URL:         item.Link,
			Source:      item.Source.Name,
			Author:      strings.Join(item.Source.Authors, ","),
			PublishedAt: published,
			Language:    lang,
		})
	}
	return records, nil
}

func (s *SerpAPIScanner) searchBing(ctx context.Context, req scanner.Request, query, lang string) ([]domain.RawRecord, error) {
	maxPages := defaultBingMaxPages
	if v, err := strconv.Atoi(req.Options["maxPages"]); err == nil && v > 0 {
		maxPages = v
	}

	qft := `sortbydate="1"`
	if req.Weekly {
		qft = `interval="8"+sortbydate="1"`
	}

	var records []domain.RawRecord
	first := 1
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("engine", EngineBingNews)
		params.Set("q", query)
		params.Set("count", strconv.Itoa(bingPageSize))
		params.Set("first", strconv.Itoa(first))
		params.Set("qft", qft)

		resp, err := s.fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(resp.OrganicResults) == 0 {
			break
		}

		stale := false
		for _, item := range resp.OrganicResults {
			if isStaleBingDate(item.Date) {
				stale = true
				break
			}
			records = append(records, domain.RawRecord{
				Title:       item.Title,
				URL:         item.Link,
				Source:      item.Source,
				PublishedAt: parseNewsDate(item.Date, req.Now),
				Description: item.Snippet,
				Language:    lang,
			})
		}
		if stale || len(resp.OrganicResults) < bingPageSize {
			break
		}
		first += bingPageSize
	}
	return records, nil
}

func (s *SerpAPIScanner) fetch(ctx context.Context, params url.Values) (*serpResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "HangarWatch/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serpapi returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	if out.Error != "" {
		if strings.Contains(out.Error, "hasn't returned any results") {
			return &serpResponse{}, nil
		}
		return nil, fmt.Errorf("serpapi error: %s", out.Error)
	}
	return &out, nil
}
