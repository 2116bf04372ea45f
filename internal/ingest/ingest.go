// Package ingest discovers articles on the source site and stores the ones not seen before.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/fetch"
	"blogsmith/internal/logger"
)

const (
	ModeListing = "listing"
	ModeFeed    = "feed"
)

// Fetcher retrieves raw page bodies.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Store is the persistence needed for deduplicated ingestion.
type Store interface {
	FindByURL(ctx context.Context, url string) (*core.Article, error)
	Insert(ctx context.Context, a *core.Article) (string, bool, error)
}

// Source describes where candidate links are discovered.
type Source struct {
	ListingURL string
	FeedURL    string
	Mode       string
	Rules      fetch.LinkRules
}

// Ingestor turns link candidates into stored pending articles, never storing a url twice.
type Ingestor struct {
	store   Store
	fetcher Fetcher
	source  Source
	now     func() time.Time
	shuffle func([]core.LinkCandidate)
}

// BatchResult counts the outcome of a bulk scrape.
type BatchResult struct {
	Created int
	Skipped int
	Failed  int
}

// New creates an Ingestor.
func New(s Store, f Fetcher, src Source) *Ingestor {
	if src.Mode == "" {
		src.Mode = ModeListing
	}
	if src.Rules.ArticleSegment == "" {
		src.Rules = fetch.DefaultLinkRules()
	}
	return &Ingestor{
		store:   s,
		fetcher: f,
		source:  src,
		now:     time.Now,
		shuffle: func(c []core.LinkCandidate) {
			rand.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
		},
	}
}

// Ingest stores the candidate as a pending article unless its url is already known.
// It returns the stored id and whether a new record was created.
func (in *Ingestor) Ingest(ctx context.Context, candidate core.LinkCandidate, content core.ExtractedContent) (string, bool, error) {
	a, created, err := in.ingest(ctx, candidate, content)
	if err != nil {
		return "", false, err
	}
	return a.ID, created, nil
}

func (in *Ingestor) ingest(ctx context.Context, candidate core.LinkCandidate, content core.ExtractedContent) (*core.Article, bool, error) {
	existing, err := in.store.FindByURL(ctx, candidate.URL)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, false, err
	}
	if content.Body == "" {
		return nil, false, fmt.Errorf("%s: %w", candidate.URL, core.ErrEmptyContent)
	}

	title := content.Title
	if title == "" {
		title = candidate.Title
	}
	article := &core.Article{
		URL:             candidate.URL,
		Title:           title,
		OriginalContent: content.Body,
		PublishedDate:   in.now().Format("2006-01-02"),
		Status:          core.StatusPending,
		ResearchState:   core.ResearchIdle,
	}
	id, created, err := in.store.Insert(ctx, article)
	if err != nil {
		return nil, false, err
	}
	article.ID = id
	return article, created, nil
}

// Candidates fetches the listing page or feed and returns the filtered article links.
func (in *Ingestor) Candidates(ctx context.Context) ([]core.LinkCandidate, error) {
	if in.source.Mode == ModeFeed {
		body, err := in.fetcher.Fetch(ctx, in.source.FeedURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch feed: %w", err)
		}
		return fetch.LinksFromFeed(body, in.source.ListingURL, in.source.Rules)
	}

	body, err := in.fetcher.Fetch(ctx, in.source.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	return fetch.ExtractLinks(body, in.source.ListingURL, in.source.Rules), nil
}

// DiscoverRandom scans the candidates in random order and stores the first new one
// that has extractable content. It returns core.ErrNoNewContent when none is left.
func (in *Ingestor) DiscoverRandom(ctx context.Context) (*core.Article, error) {
	candidates, err := in.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	in.shuffle(candidates)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := in.store.FindByURL(ctx, c.URL); err == nil {
			continue
		} else if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}

		content, err := in.scrape(ctx, c)
		if err != nil {
			logger.Warn("Skipping candidate", "url", c.URL, "error", err.Error())
			continue
		}

		article, created, err := in.ingest(ctx, c, content)
		if err != nil {
			return nil, err
		}
		if !created {
			// lost a race with a concurrent scrape of the same url
			continue
		}

		logger.Info("Article scraped", "id", article.ID, "url", c.URL, "title", article.Title)
		return article, nil
	}

	return nil, core.ErrNoNewContent
}

// Batch ingests the last n candidates of the listing, the oldest posts on the page.
// Failures are logged and counted rather than returned.
func (in *Ingestor) Batch(ctx context.Context, n int) (BatchResult, error) {
	var res BatchResult
	candidates, err := in.Candidates(ctx)
	if err != nil {
		return res, err
	}
	if n > 0 && len(candidates) > n {
		candidates = candidates[len(candidates)-n:]
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if _, err := in.store.FindByURL(ctx, c.URL); err == nil {
			res.Skipped++
			continue
		}

		content, err := in.scrape(ctx, c)
		if err != nil {
			logger.Warn("Failed to scrape article", "url", c.URL, "error", err.Error())
			res.Failed++
			continue
		}

		_, created, err := in.Ingest(ctx, c, content)
		switch {
		case err != nil:
			logger.Error("Failed to store article", err, "url", c.URL)
			res.Failed++
		case created:
			res.Created++
		default:
			res.Skipped++
		}
	}

	logger.Info("Batch scrape finished", "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (in *Ingestor) scrape(ctx context.Context, c core.LinkCandidate) (core.ExtractedContent, error) {
	body, err := in.fetcher.Fetch(ctx, c.URL)
	if err != nil {
		return core.ExtractedContent{}, err
	}
	content := fetch.ExtractContent(body, c.Title)
	if content.Body == "" {
		return content, core.ErrEmptyContent
	}
	return content, nil
}
