package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Provider defines the unified interface for web search providers
type Provider interface {
	// Search performs a search with configuration
	Search(ctx context.Context, query string, config Config) ([]Result, error)

	// GetName returns the name of the search provider
	GetName() string
}

// Config holds configuration for search requests
type Config struct {
	MaxResults int           // Maximum number of results to return
	SinceTime  time.Duration // Only return results newer than this duration
	Language   string        // Language preference (e.g., "en", "es")
}

// Result represents a unified search result
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
	Source  string `json:"source"` // Provider-specific source identifier
	Rank    int    `json:"rank"`   // Position in search results
}

// ProviderType represents the type of search provider
type ProviderType string

const (
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeGoogle     ProviderType = "google"
	ProviderTypeSerpAPI    ProviderType = "serpapi"
	ProviderTypeMock       ProviderType = "mock"
)

// ProviderFactory creates search providers based on type and configuration
type ProviderFactory struct {
	client *http.Client
}

// NewProviderFactory creates a new provider factory whose providers share one HTTP client
func NewProviderFactory(timeout time.Duration) *ProviderFactory {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProviderFactory{client: &http.Client{Timeout: timeout}}
}

// CreateProvider creates a search provider of the specified type.
// An empty type selects DuckDuckGo, which needs no credentials.
func (f *ProviderFactory) CreateProvider(providerType ProviderType, config map[string]string) (Provider, error) {
	switch providerType {
	case ProviderTypeDuckDuckGo, "":
		p := NewDuckDuckGoProvider()
		p.client = f.client
		return p, nil
	case ProviderTypeGoogle:
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		searchID := config["search_id"]
		if searchID == "" {
			return nil, ErrMissingSearchID
		}
		p := NewGoogleProvider(apiKey, searchID)
		p.client = f.client
		return p, nil
	case ProviderTypeSerpAPI:
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		p := NewSerpAPIProvider(apiKey)
		p.client = f.client
		return p, nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerType)
	}
}

// GetAvailableProviders returns a list of available provider types
func (f *ProviderFactory) GetAvailableProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeDuckDuckGo,
		ProviderTypeGoogle,
		ProviderTypeSerpAPI,
		ProviderTypeMock,
	}
}

// Domain returns the host of a URL without a leading "www.".
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// rateLimiter spaces out calls to a provider. Safe for concurrent use.
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastCall time.Time
}

// wait blocks until the interval since the previous call has elapsed or ctx is done.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elapsed := time.Since(r.lastCall); elapsed < r.interval {
		timer := time.NewTimer(r.interval - elapsed)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// statusError maps provider HTTP status codes onto the package sentinels.
func statusError(provider string, code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w (status %d)", provider, ErrRateLimited, code)
	case code >= 500:
		return fmt.Errorf("%s: %w (status %d)", provider, ErrProviderUnavailable, code)
	default:
		return fmt.Errorf("%s request failed with status: %d", provider, code)
	}
}
