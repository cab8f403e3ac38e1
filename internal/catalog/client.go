// HTTP client for the external media catalog API (TMDB wire format).

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/avelardo/cinetrack/internal/models"
)

// ErrNotConfigured is returned before any network call when the catalog
// API key is missing. It is not retryable.
var ErrNotConfigured = errors.New("catalog API key is not configured")

// Client talks to the external catalog API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu         sync.Mutex
	genreCache map[models.Phase]map[int]string
}

// New creates a catalog client. baseURL has no trailing slash.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		genreCache: make(map[models.Phase]map[int]string),
	}
}

// contentPath maps a phase to the catalog's URL segment.
func contentPath(phase models.Phase) string {
	if phase == models.PhaseSeries {
		return "tv"
	}
	return "movie"
}

// Discover fetches one page of a phase's list in the given ordering.
// A page beyond the catalog's range comes back with zero items, which
// callers treat as exhaustion rather than an error.
func (c *Client) Discover(ctx context.Context, phase models.Phase, sort Sort, page int) (*Page, error) {
	path := fmt.Sprintf("/%s/%s", contentPath(phase), sort)
	query := url.Values{"page": {strconv.Itoa(page)}}

	var result Page
	if err := c.get(ctx, path, query, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch %s %s page %d: %w", phase, sort, page, err)
	}
	return &result, nil
}

// Trending fetches the catalog's "trending this week" slice for a phase.
func (c *Client) Trending(ctx context.Context, phase models.Phase) (*Page, error) {
	path := fmt.Sprintf("/trending/%s/week", contentPath(phase))

	var result Page
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch trending %s: %w", phase, err)
	}
	return &result, nil
}

// Genres returns the catalog's genre id to name mapping for a phase.
// The mapping is fetched once and cached for the process lifetime.
func (c *Client) Genres(ctx context.Context, phase models.Phase) (map[int]string, error) {
	c.mu.Lock()
	if cached, ok := c.genreCache[phase]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var result struct {
		Genres []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"genres"`
	}
	path := fmt.Sprintf("/genre/%s/list", contentPath(phase))
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch %s genres: %w", phase, err)
	}

	genres := make(map[int]string, len(result.Genres))
	for _, g := range result.Genres {
		genres[g.ID] = g.Name
	}

	c.mu.Lock()
	c.genreCache[phase] = genres
	c.mu.Unlock()
	return genres, nil
}

// get performs an authenticated GET against the catalog API and decodes
// the JSON response into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog API returned status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
