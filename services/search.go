package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	braveBaseURL       = "https://api.search.brave.com/res/v1/web/search"
	searchTimeout      = 10 * time.Second
	defaultSearchCount = 10
	maxMockResults     = 5
)

type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchResponse is always returned, never an error. Callers branch on
// Success and Source; a failed provider with fallback enabled still yields
// Success=true with Source="mock".
type SearchResponse struct {
	Success      bool           `json:"success"`
	Source       string         `json:"source"`
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
	Error        string         `json:"error,omitempty"`
}

type SearchClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewSearchClient(apiKey string, log *zap.Logger) *SearchClient {
	return &SearchClient{
		apiKey:  apiKey,
		baseURL: braveBaseURL,
		http:    &http.Client{Timeout: searchTimeout},
		log:     log,
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search queries Brave web search. Any failure (missing key, non-200, timeout,
// bad payload) falls back to deterministic mock results when fallbackToMock is
// set, otherwise reports the failure in the response.
func (c *SearchClient) Search(ctx context.Context, query string, count int, fallbackToMock bool) SearchResponse {
	if count <= 0 {
		count = defaultSearchCount
	}

	if c.apiKey == "" {
		return c.fail(query, count, fallbackToMock, "Brave Search API key not configured")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.fail(query, count, fallbackToMock, fmt.Sprintf("invalid search URL: %v", err))
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return c.fail(query, count, fallbackToMock, fmt.Sprintf("request build failed: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logRequest(query, count, 0, time.Since(start))
		return c.fail(query, count, fallbackToMock, fmt.Sprintf("search request failed: %v", err))
	}
	defer resp.Body.Close()

	c.logRequest(query, count, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return c.fail(query, count, fallbackToMock,
			fmt.Sprintf("search API returned status code %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(query, count, fallbackToMock, fmt.Sprintf("read response failed: %v", err))
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return c.fail(query, count, fallbackToMock, fmt.Sprintf("decode response failed: %v", err))
	}

	results := make([]SearchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Description: r.Description})
	}

	return SearchResponse{
		Success:      true,
		Source:       "brave",
		Query:        query,
		Results:      results,
		TotalResults: len(results),
	}
}

func (c *SearchClient) fail(query string, count int, fallbackToMock bool, errMsg string) SearchResponse {
	if fallbackToMock {
		results := mockResults(query, count)
		return SearchResponse{
			Success:      true,
			Source:       "mock",
			Query:        query,
			Results:      results,
			TotalResults: len(results),
		}
	}
	return SearchResponse{
		Success: false,
		Source:  "brave",
		Query:   query,
		Results: []SearchResult{},
		Error:   errMsg,
	}
}

// logRequest emits one structured record per outbound search call so API
// quota usage can be tracked from logs.
func (c *SearchClient) logRequest(query string, count, status int, elapsed time.Duration) {
	c.log.Info("brave search request",
		zap.String("query", query),
		zap.Int("count", count),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	)
}

// mockResults produces deterministic placeholders, capped at maxMockResults
// regardless of the requested count.
func mockResults(query string, count int) []SearchResult {
	if count > maxMockResults {
		count = maxMockResults
	}
	results := make([]SearchResult, 0, count)
	for i := 1; i <= count; i++ {
		results = append(results, SearchResult{
			Title:       fmt.Sprintf("Mock Result %d: %s", i, query),
			URL:         fmt.Sprintf("https://example.com/mock/%d", i),
			Description: fmt.Sprintf("Placeholder result %d for query %q. Configure BRAVE_SEARCH_API_KEY for live results.", i, query),
		})
	}
	return results
}
