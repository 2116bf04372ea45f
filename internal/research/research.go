// Package research finds related external content for an article and tracks its human curation.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/logger"
	"blogsmith/internal/search"
	"blogsmith/internal/store"
)

const (
	defaultCandidateTitle   = "No Title"
	defaultCandidateSnippet = "No description available"
)

// DefaultBlockedDomains are video hosts whose results make poor research sources.
var DefaultBlockedDomains = []string{"youtube.com", "youtu.be", "vimeo.com", "tiktok.com"}

// Store is the persistence needed by the Coordinator.
type Store interface {
	Get(ctx context.Context, id string) (*core.Article, error)
	Patch(ctx context.Context, id string, p store.Patch) error
}

// Fetcher retrieves raw page bodies.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options tunes candidate discovery and research context building.
type Options struct {
	SearchLimit    int
	MaxCandidates  int
	BlockedDomains []string
	Language       string
	ExcerptChars   int
	RequireSources bool
}

// DefaultOptions returns the standard discovery limits.
func DefaultOptions() Options {
	return Options{
		SearchLimit:    5,
		MaxCandidates:  4,
		BlockedDomains: DefaultBlockedDomains,
		ExcerptChars:   2000,
	}
}

// Coordinator runs candidate searches and applies curation decisions.
type Coordinator struct {
	store    Store
	provider search.Provider
	fetcher  Fetcher
	opts     Options
}

// NewCoordinator creates a Coordinator. Zero option values fall back to DefaultOptions.
func NewCoordinator(s Store, p search.Provider, f Fetcher, opts Options) *Coordinator {
	def := DefaultOptions()
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = def.SearchLimit
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = def.MaxCandidates
	}
	if opts.BlockedDomains == nil {
		opts.BlockedDomains = def.BlockedDomains
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = def.ExcerptChars
	}
	return &Coordinator{store: s, provider: p, fetcher: f, opts: opts}
}

// Search queries the provider with the article title and stores the filtered results
// as pending candidates, moving the article to reviewing. Any failure after the article
// entered searching returns it to idle. Provider failures are returned as *core.SearchProviderError.
func (c *Coordinator) Search(ctx context.Context, articleID string) (_ []core.Candidate, err error) {
	a, err := c.store.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if _, err := a.ResearchState.Transition(core.ResearchSearching); err != nil {
		return nil, err
	}
	if err := c.store.Patch(ctx, articleID, store.Patch{}.WithResearchState(core.ResearchSearching)); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			c.revert(ctx, articleID, core.ResearchIdle)
		}
	}()

	logger.Info("Searching related content", "article_id", articleID, "query", a.Title, "provider", c.provider.GetName())
	results, err := c.provider.Search(ctx, a.Title, search.Config{
		MaxResults: c.opts.SearchLimit,
		Language:   c.opts.Language,
	})
	if err != nil {
		logger.Error("Search failed", err, "article_id", articleID)
		return nil, &core.SearchProviderError{Provider: c.provider.GetName(), Err: err}
	}

	candidates := c.candidates(a.URL, results)
	p := store.Patch{}.WithResearchState(core.ResearchReviewing).WithCandidates(candidates)
	if err := c.store.Patch(ctx, articleID, p); err != nil {
		return nil, err
	}

	logger.Info("Research candidates stored", "article_id", articleID, "results", len(results), "candidates", len(candidates))
	return candidates, nil
}

// revert writes state even when the caller's context is already done.
func (c *Coordinator) revert(ctx context.Context, articleID string, state core.ResearchState) {
	revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.store.Patch(revertCtx, articleID, store.Patch{}.WithResearchState(state)); err != nil {
		logger.Error("Failed to revert research state", err, "article_id", articleID, "state", string(state))
	}
}

// Reset returns an article stuck in searching or processing to a resting state.
// Callers must ensure no operation is running against the article.
// Processing falls back to complete when a rewrite exists, else reviewing when
// candidates exist, else idle. Resting states are left untouched.
func (c *Coordinator) Reset(ctx context.Context, articleID string) (core.ResearchState, error) {
	a, err := c.store.Get(ctx, articleID)
	if err != nil {
		return "", err
	}
	state := a.ResearchState.Normalize()
	if !state.InFlight() {
		return state, nil
	}

	next := core.ResearchIdle
	if state == core.ResearchProcessing {
		switch {
		case a.HasEnrichment():
			next = core.ResearchComplete
		case len(a.ResearchCandidates) > 0:
			next = core.ResearchReviewing
		}
	}
	if _, err := state.Transition(next); err != nil {
		return state, err
	}
	if err := c.store.Patch(ctx, articleID, store.Patch{}.WithResearchState(next)); err != nil {
		return state, err
	}
	logger.Warn("Reset abandoned research state", "article_id", articleID, "from", string(state), "to", string(next))
	return next, nil
}

// candidates filters raw results down to at most MaxCandidates pending entries.
func (c *Coordinator) candidates(originURL string, results []search.Result) []core.Candidate {
	origin := search.Domain(originURL)
	seen := make(map[string]bool)
	out := make([]core.Candidate, 0, c.opts.MaxCandidates)

	for _, r := range results {
		if len(out) >= c.opts.MaxCandidates {
			break
		}
		link := strings.TrimSpace(r.URL)
		if link == "" || seen[link] {
			continue
		}
		domain := search.Domain(link)
		if domain == "" || sameSite(domain, origin) || c.blocked(domain) {
			continue
		}
		seen[link] = true

		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = defaultCandidateTitle
		}
		snippet := strings.TrimSpace(r.Snippet)
		if snippet == "" {
			snippet = defaultCandidateSnippet
		}
		out = append(out, core.Candidate{URL: link, Title: title, Snippet: snippet, Status: core.CandidatePending})
	}
	return out
}

func (c *Coordinator) blocked(domain string) bool {
	for _, b := range c.opts.BlockedDomains {
		if sameSite(domain, strings.ToLower(b)) {
			return true
		}
	}
	return false
}

// sameSite reports whether domain is site or one of its subdomains.
func sameSite(domain, site string) bool {
	if site == "" {
		return false
	}
	return domain == site || strings.HasSuffix(domain, "."+site)
}

// SetCandidateStatus changes the status of the candidate with the given url.
// An unknown url is ignored and an unchanged status causes no write.
func (c *Coordinator) SetCandidateStatus(ctx context.Context, articleID, url string, status core.CandidateStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown candidate status %q", core.ErrInvalidInput, status)
	}
	a, err := c.store.Get(ctx, articleID)
	if err != nil {
		return err
	}

	candidates := append([]core.Candidate(nil), a.ResearchCandidates...)
	changed := false
	for i := range candidates {
		if candidates[i].URL != url {
			continue
		}
		if candidates[i].Status != status {
			candidates[i].Status = status
			changed = true
		}
	}
	if !changed {
		return nil
	}

	logger.Debug("Candidate status changed", "article_id", articleID, "url", url, "status", string(status))
	return c.store.Patch(ctx, articleID, store.Patch{}.WithCandidates(candidates))
}

// Approve marks a candidate as approved research material.
func (c *Coordinator) Approve(ctx context.Context, articleID, url string) error {
	return c.SetCandidateStatus(ctx, articleID, url, core.CandidateApproved)
}

// Reject marks a candidate as rejected.
func (c *Coordinator) Reject(ctx context.Context, articleID, url string) error {
	return c.SetCandidateStatus(ctx, articleID, url, core.CandidateRejected)
}

// SaveConfig stores the generation settings used by the next rewrite.
func (c *Coordinator) SaveConfig(ctx context.Context, articleID string, cfg core.GenerationConfig) error {
	if r := cfg.ReadabilityLevel; r != nil && (*r < 0 || *r > 100) {
		return fmt.Errorf("%w: readability level %d outside 0-100", core.ErrInvalidInput, *r)
	}
	cfg.Tone = strings.TrimSpace(cfg.Tone)
	cfg.TargetLanguage = strings.TrimSpace(cfg.TargetLanguage)
	cfg.Keywords = cleanKeywords(cfg.Keywords)

	if err := c.store.Patch(ctx, articleID, store.Patch{Config: &cfg}); err != nil {
		return fmt.Errorf("failed to save generation config: %w", err)
	}
	return nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool)
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		out = append(out, k)
	}
	return out
}
