// Package enrich runs the research and rewrite workflow for stored articles.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogsmith/internal/chat"
	"blogsmith/internal/core"
	"blogsmith/internal/ingest"
	"blogsmith/internal/llm"
	"blogsmith/internal/lock"
	"blogsmith/internal/logger"
	"blogsmith/internal/notify"
	"blogsmith/internal/prompt"
	"blogsmith/internal/research"
	"blogsmith/internal/store"
	"blogsmith/internal/versions"
)

// Store is the persistence needed by the Pipeline.
type Store interface {
	Get(ctx context.Context, id string) (*core.Article, error)
	List(ctx context.Context) ([]*core.Article, error)
	Patch(ctx context.Context, id string, p store.Patch) error
}

// Generator produces a structured rewrite from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, models []string) (*core.GenerationResult, error)
	ListModels(ctx context.Context) ([]llm.ModelInfo, error)
}

// Deps are the collaborators of a Pipeline. Locks, Notifier and Assistant are optional.
type Deps struct {
	Store     Store
	Ingestor  *ingest.Ingestor
	Research  *research.Coordinator
	Engine    Generator
	Assistant *chat.Assistant
	Locks     lock.Locker
	Notifier  notify.Notifier
	LockTTL   time.Duration
}

// Options tunes a single enrichment run.
type Options struct {
	// Models overrides the configured model preference order.
	Models []string
}

// Pipeline coordinates ingestion, research, generation and versioning for one article at a time.
type Pipeline struct {
	store    Store
	ingestor *ingest.Ingestor
	research *research.Coordinator
	engine   Generator
	chat     *chat.Assistant
	versions *versions.Manager
	locks    lock.Locker
	notifier notify.Notifier
	lockTTL  time.Duration
}

// New creates a Pipeline.
func New(d Deps) *Pipeline {
	if d.Locks == nil {
		d.Locks = lock.NewMemory()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.LockTTL <= 0 {
		d.LockTTL = 5 * time.Minute
	}
	if d.Assistant == nil {
		d.Assistant = chat.New(nil, "")
	}
	return &Pipeline{
		store:    d.Store,
		ingestor: d.Ingestor,
		research: d.Research,
		engine:   d.Engine,
		chat:     d.Assistant,
		versions: versions.NewManager(d.Store),
		locks:    d.Locks,
		notifier: d.Notifier,
		lockTTL:  d.LockTTL,
	}
}

// Enrich rewrites the article with the approved research and the saved generation settings.
// On failure the research state is reverted and the enrichment fields are left untouched.
func (p *Pipeline) Enrich(ctx context.Context, articleID string, opts Options) (*core.Article, error) {
	release, err := p.locks.Acquire(ctx, articleID, p.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	a, err := p.store.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if a.OriginalContent == "" {
		return nil, fmt.Errorf("article %s has no content to analyze: %w", articleID, core.ErrEmptyContent)
	}
	if _, err := a.Status.Transition(core.StatusProcessed); err != nil {
		return nil, err
	}

	previous := a.ResearchState.Normalize()
	if _, err := previous.Transition(core.ResearchProcessing); err != nil {
		return nil, err
	}
	if err := p.store.Patch(ctx, articleID, store.Patch{}.WithResearchState(core.ResearchProcessing)); err != nil {
		return nil, err
	}

	updated, err := p.run(ctx, a, opts)
	if err != nil {
		p.revert(ctx, articleID, previous)
		logger.Error("Enrichment failed", err, "article_id", articleID)
		p.notifier.Notify(ctx, notify.Event{Kind: notify.KindFailed, Article: a, Err: err})
		return nil, err
	}

	p.notifier.Notify(ctx, notify.Event{Kind: notify.KindEnriched, Article: updated})
	return updated, nil
}

func (p *Pipeline) run(ctx context.Context, a *core.Article, opts Options) (*core.Article, error) {
	rc, err := p.research.BuildContext(ctx, a.ApprovedCandidates())
	if err != nil {
		return nil, err
	}

	others, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sibling articles: %w", err)
	}

	text := prompt.Compose(prompt.InputFor(a, rc.Text, others))
	logger.Debug("Prompt composed", "article_id", a.ID, "chars", len(text), "sources", len(rc.Citations))

	result, err := p.engine.Generate(ctx, text, opts.Models)
	if err != nil {
		return nil, err
	}

	extra := store.Patch{}.WithResearchState(core.ResearchComplete)
	return p.versions.Apply(ctx, a.ID, result, rc.Citations, extra)
}

func (p *Pipeline) revert(ctx context.Context, articleID string, state core.ResearchState) {
	ctx = context.WithoutCancel(ctx)
	if err := p.store.Patch(ctx, articleID, store.Patch{}.WithResearchState(state)); err != nil {
		logger.Error("Failed to revert research state", err, "article_id", articleID, "state", string(state))
	}
}

// Scrape stores one new randomly chosen article from the source site.
func (p *Pipeline) Scrape(ctx context.Context) (*core.Article, error) {
	if p.ingestor == nil {
		return nil, errors.New("scraping is not configured")
	}
	a, err := p.ingestor.DiscoverRandom(ctx)
	if err != nil {
		return nil, err
	}
	p.notifier.Notify(ctx, notify.Event{Kind: notify.KindScraped, Article: a})
	return a, nil
}

// ScrapeBatch stores up to n of the oldest listed articles.
func (p *Pipeline) ScrapeBatch(ctx context.Context, n int) (ingest.BatchResult, error) {
	if p.ingestor == nil {
		return ingest.BatchResult{}, errors.New("scraping is not configured")
	}
	return p.ingestor.Batch(ctx, n)
}

// Search finds research candidates for the article.
func (p *Pipeline) Search(ctx context.Context, articleID string) ([]core.Candidate, error) {
	release, err := p.locks.Acquire(ctx, articleID, p.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.research.Search(ctx, articleID)
}

// Approve marks a research candidate as approved.
func (p *Pipeline) Approve(ctx context.Context, articleID, url string) error {
	return p.research.Approve(ctx, articleID, url)
}

// Reject marks a research candidate as rejected.
func (p *Pipeline) Reject(ctx context.Context, articleID, url string) error {
	return p.research.Reject(ctx, articleID, url)
}

// Configure saves the generation settings for the article.
func (p *Pipeline) Configure(ctx context.Context, articleID string, cfg core.GenerationConfig) error {
	return p.research.SaveConfig(ctx, articleID, cfg)
}

// Restore brings back the enrichment captured at timestamp.
func (p *Pipeline) Restore(ctx context.Context, articleID string, timestamp int64) (*core.Article, error) {
	release, err := p.locks.Acquire(ctx, articleID, p.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.versions.RestoreByID(ctx, articleID, timestamp)
}

// ListModels reports the models the provider offers.
func (p *Pipeline) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return p.engine.ListModels(ctx)
}

// Reset clears a searching or processing state left behind by an interrupted run.
// It fails with core.ErrBusy while an operation still holds the article.
func (p *Pipeline) Reset(ctx context.Context, articleID string) (*core.Article, error) {
	release, err := p.locks.Acquire(ctx, articleID, p.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := p.research.Reset(ctx, articleID); err != nil {
		return nil, err
	}
	return p.store.Get(ctx, articleID)
}

// Chat answers a visitor message, using the article as context when articleID is set.
func (p *Pipeline) Chat(ctx context.Context, articleID string, history []llm.ChatMessage, message string) (string, error) {
	req := chat.Request{History: history, Message: message}
	if articleID != "" {
		a, err := p.store.Get(ctx, articleID)
		if err != nil {
			return "", err
		}
		req.Article = a
	}
	return p.chat.Reply(ctx, req)
}
