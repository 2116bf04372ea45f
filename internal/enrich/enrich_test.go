package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"blogsmith/internal/chat"
	"blogsmith/internal/core"
	"blogsmith/internal/llm"
	"blogsmith/internal/lock"
	"blogsmith/internal/notify"
	"blogsmith/internal/research"
	"blogsmith/internal/search"
	"blogsmith/internal/store"
)

type fakeGenerator struct {
	prompts []string
	models  [][]string
	result  *core.GenerationResult
	err     error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, models []string) (*core.GenerationResult, error) {
	g.prompts = append(g.prompts, prompt)
	g.models = append(g.models, models)
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *fakeGenerator) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return []llm.ModelInfo{{Name: "gemini-2.5-flash", SupportsGeneration: true}}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if body, ok := f[url]; ok {
		return body, nil
	}
	return "", fmt.Errorf("failed to fetch URL %s: status code 500", url)
}

type fixture struct {
	store    *store.Store
	gen      *fakeGenerator
	notifier *recordingNotifier
	locks    *lock.Memory
	pipeline *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	fetcher := fakeFetcher{"https://a.example/": "<html><body><article>Alpha research text</article></body></html>"}
	f := &fixture{
		store: s,
		gen: &fakeGenerator{result: &core.GenerationResult{
			Summary:          "New summary",
			Tags:             []string{"ai"},
			RewrittenContent: "# Rewritten",
			SEO:              &core.SEOAnalysis{Score: 77, Readability: "easy"},
		}},
		notifier: &recordingNotifier{},
		locks:    lock.NewMemory(),
	}
	f.pipeline = New(Deps{
		Store:    s,
		Research: research.NewCoordinator(s, search.NewMockProvider(), fetcher, research.Options{}),
		Engine:   f.gen,
		Locks:    f.locks,
		Notifier: f.notifier,
	})
	return f
}

func (f *fixture) insert(t *testing.T, a *core.Article) string {
	t.Helper()
	id, _, err := f.store.Insert(context.Background(), a)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return id
}

func TestEnrichSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.insert(t, &core.Article{
		URL:             "https://site.example/blogs/a/",
		Title:           "Article A",
		OriginalContent: "Original body of article A.",
		ResearchState:   core.ResearchReviewing,
		ResearchCandidates: []core.Candidate{
			{URL: "https://a.example/", Status: core.CandidateApproved},
			{URL: "https://b.example/", Status: core.CandidateRejected},
		},
		UserTone: "witty",
	})
	f.insert(t, &core.Article{URL: "https://site.example/blogs/b/", Title: "Article B", OriginalContent: "x"})

	got, err := f.pipeline.Enrich(ctx, id, Options{Models: []string{"model-x"}})
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	stored, _ := f.store.Get(ctx, id)
	if stored.Status != core.StatusProcessed || stored.ResearchState != core.ResearchComplete {
		t.Errorf("unexpected states %s/%s", stored.Status, stored.ResearchState)
	}
	if stored.AISummary != "New summary" || stored.SEOScore == nil || *stored.SEOScore != 77 {
		t.Errorf("enrichment not persisted: %+v", stored)
	}
	if len(stored.Citations) != 1 || stored.Citations[0] != "https://a.example/" {
		t.Errorf("unexpected citations %v", stored.Citations)
	}
	if got.ResearchState != core.ResearchComplete {
		t.Errorf("returned article should be complete, got %s", got.ResearchState)
	}

	p := f.gen.prompts[0]
	for _, want := range []string{"--- SOURCE [1]: https://a.example/ ---", "Alpha research text", "witty tone", "- Article B: https://site.example/blogs/b/"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "- Article A: ") {
		t.Error("article should not be listed as its own sibling")
	}
	if len(f.gen.models[0]) != 1 || f.gen.models[0][0] != "model-x" {
		t.Errorf("model override not passed through: %v", f.gen.models[0])
	}

	if len(f.notifier.events) != 1 || f.notifier.events[0].Kind != notify.KindEnriched {
		t.Errorf("expected enriched notification, got %+v", f.notifier.events)
	}
}

func TestEnrichFailureReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.err = &core.GenerationError{Models: []string{"m"}, Attempts: 3, Err: errors.New("overloaded")}

	id := f.insert(t, &core.Article{
		URL:             "https://site.example/blogs/a/",
		Title:           "Article A",
		OriginalContent: "Body",
		ResearchState:   core.ResearchReviewing,
		AISummary:       "Old summary",
		UpdatedContent:  "# Old",
	})

	_, err := f.pipeline.Enrich(ctx, id, Options{})
	var genErr *core.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}

	stored, _ := f.store.Get(ctx, id)
	if stored.ResearchState != core.ResearchReviewing {
		t.Errorf("research state should revert to reviewing, got %s", stored.ResearchState)
	}
	if stored.AISummary != "Old summary" || len(stored.VersionHistory) != 0 || stored.Status != core.StatusPending {
		t.Errorf("enrichment should be untouched: %+v", stored)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Kind != notify.KindFailed {
		t.Errorf("expected failure notification, got %+v", f.notifier.events)
	}

	// the lock is released after a failure
	f.gen.err = nil
	if _, err := f.pipeline.Enrich(ctx, id, Options{}); err != nil {
		t.Errorf("retry after failure should succeed, got %v", err)
	}
}

func TestEnrichRequireSources(t *testing.T) {
	s, err := store.Open(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	gen := &fakeGenerator{}
	p := New(Deps{
		Store:    s,
		Research: research.NewCoordinator(s, search.NewMockProvider(), fakeFetcher{}, research.Options{RequireSources: true}),
		Engine:   gen,
	})
	id, _, _ := s.Insert(ctx, &core.Article{
		URL:                "https://site.example/blogs/a/",
		OriginalContent:    "Body",
		ResearchCandidates: []core.Candidate{{URL: "https://down.example/", Status: core.CandidateApproved}},
	})

	if _, err := p.Enrich(ctx, id, Options{}); !errors.Is(err, core.ErrNoResearchSources) {
		t.Errorf("expected ErrNoResearchSources, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("generation should not run without sources")
	}
	stored, _ := s.Get(ctx, id)
	if stored.ResearchState != core.ResearchIdle {
		t.Errorf("expected idle after revert, got %s", stored.ResearchState)
	}
}

func TestEnrichPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := f.insert(t, &core.Article{URL: "https://site.example/blogs/empty/"})
	if _, err := f.pipeline.Enrich(ctx, empty, Options{}); !errors.Is(err, core.ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}

	if _, err := f.pipeline.Enrich(ctx, "missing", Options{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	searching := f.insert(t, &core.Article{URL: "https://site.example/blogs/s/", OriginalContent: "x", ResearchState: core.ResearchSearching})
	if _, err := f.pipeline.Enrich(ctx, searching, Options{}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	busy := f.insert(t, &core.Article{URL: "https://site.example/blogs/busy/", OriginalContent: "x"})
	release, err := f.locks.Acquire(ctx, busy, time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()
	if _, err := f.pipeline.Enrich(ctx, busy, Options{}); !errors.Is(err, core.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if _, err := f.pipeline.Search(ctx, busy); !errors.Is(err, core.ErrBusy) {
		t.Errorf("search should respect the lock, got %v", err)
	}
	if len(f.gen.prompts) != 0 {
		t.Errorf("generator should not be called, got %d calls", len(f.gen.prompts))
	}
}

func TestSearchApproveEnrichRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.insert(t, &core.Article{URL: "https://site.example/blogs/a/", Title: "Article A", OriginalContent: "Body"})

	candidates, err := f.pipeline.Search(ctx, id)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected candidates from the mock provider")
	}
	if err := f.pipeline.Approve(ctx, id, candidates[0].URL); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := f.pipeline.Reject(ctx, id, candidates[1].URL); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	level := 50
	if err := f.pipeline.Configure(ctx, id, core.GenerationConfig{Tone: "formal", ReadabilityLevel: &level}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if _, err := f.pipeline.Enrich(ctx, id, Options{}); err != nil {
		t.Fatalf("first Enrich failed: %v", err)
	}
	f.gen.result = &core.GenerationResult{Summary: "Second", RewrittenContent: "# Second"}
	second, err := f.pipeline.Enrich(ctx, id, Options{})
	if err != nil {
		t.Fatalf("second Enrich failed: %v", err)
	}
	if len(second.VersionHistory) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(second.VersionHistory))
	}

	restored, err := f.pipeline.Restore(ctx, id, second.VersionHistory[0].Timestamp)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.AISummary != "New summary" || restored.SEOScore == nil || *restored.SEOScore != 77 {
		t.Errorf("unexpected restored article %+v", restored)
	}

	models, err := f.pipeline.ListModels(ctx)
	if err != nil || len(models) != 1 {
		t.Errorf("ListModels = %v, %v", models, err)
	}
}

func TestScrapeWithoutIngestor(t *testing.T) {
	f := newFixture(t)
	if _, err := f.pipeline.Scrape(context.Background()); err == nil {
		t.Error("expected an error without an ingestor")
	}
}

func TestResetAbandonedProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.insert(t, &core.Article{
		URL:             "https://site.example/blogs/stuck/",
		OriginalContent: "Body",
		ResearchState:   core.ResearchProcessing,
		UpdatedContent:  "# Earlier rewrite",
	})

	release, err := f.locks.Acquire(ctx, id, time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := f.pipeline.Reset(ctx, id); !errors.Is(err, core.ErrBusy) {
		t.Errorf("expected ErrBusy while the article is held, got %v", err)
	}
	release()

	a, err := f.pipeline.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if a.ResearchState != core.ResearchComplete {
		t.Errorf("expected complete, got %s", a.ResearchState)
	}
	if _, err := f.pipeline.Enrich(ctx, id, Options{}); err != nil {
		t.Errorf("Enrich after reset failed: %v", err)
	}
}

type echoChat struct {
	system string
}

func (c *echoChat) Chat(ctx context.Context, model, system string, history []llm.ChatMessage, message string) (string, error) {
	c.system = system
	return "echo: " + message, nil
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.pipeline.Chat(ctx, "", nil, "hello")
	if err != nil || reply != chat.OfflineReply {
		t.Errorf("expected offline reply without an assistant, got %q, %v", reply, err)
	}

	provider := &echoChat{}
	p := New(Deps{Store: f.store, Assistant: chat.New(provider, "")})
	id := f.insert(t, &core.Article{URL: "https://site.example/blogs/chat/", Title: "Chat Article", OriginalContent: "Body"})

	reply, err = p.Chat(ctx, id, []llm.ChatMessage{{Role: llm.RoleUser, Text: "hi"}}, "what is this about?")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "echo: what is this about?" {
		t.Errorf("unexpected reply %q", reply)
	}
	if !strings.Contains(provider.system, "Chat Article") {
		t.Errorf("system prompt should include the article:\n%s", provider.system)
	}

	if _, err := p.Chat(ctx, "missing", nil, "hello"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
