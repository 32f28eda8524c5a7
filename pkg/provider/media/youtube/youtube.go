// Package youtube implements media resolution against the YouTube Data API v3
// search endpoint.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wrenhold/quackbot/pkg/provider/media"
)

// Compile-time interface assertion.
var _ media.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultTimeout = 10 * time.Second
)

// Option is a functional option for configuring the YouTube Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements media.Provider using the YouTube Data API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a YouTube Provider. apiKey must be a valid Data API key.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("youtube: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// searchResponse mirrors the subset of the search.list response we consume.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// Resolve implements [media.Provider]: it runs a search.list call restricted
// to videos and returns the first hit.
func (p *Provider) Resolve(ctx context.Context, query string) (media.Track, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", "1")
	q.Set("q", query)
	q.Set("key", p.apiKey)

	reqURL := p.baseURL + "/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return media.Track{}, fmt.Errorf("youtube: create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return media.Track{}, fmt.Errorf("youtube: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return media.Track{}, fmt.Errorf("youtube: search returned status %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return media.Track{}, fmt.Errorf("youtube: decode response: %w", err)
	}
	if len(sr.Items) == 0 || sr.Items[0].ID.VideoID == "" {
		return media.Track{}, media.ErrNoResult
	}

	item := sr.Items[0]
	return media.Track{
		ID:    item.ID.VideoID,
		Title: item.Snippet.Title,
		URL:   "https://www.youtube.com/watch?v=" + item.ID.VideoID,
	}, nil
}
