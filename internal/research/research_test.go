package research

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"blogsmith/internal/core"
	"blogsmith/internal/search"
	"blogsmith/internal/store"

	"github.com/google/go-cmp/cmp"
)

type countingStore struct {
	*store.Store
	patches int
}

func (s *countingStore) Patch(ctx context.Context, id string, p store.Patch) error {
	s.patches++
	return s.Store.Patch(ctx, id, p)
}

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, ok := f[url]
	if !ok {
		return "", fmt.Errorf("failed to fetch URL %s: status code 500", url)
	}
	return body, nil
}

func setup(t *testing.T, a *core.Article) (*countingStore, string) {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	id, _, err := s.Insert(context.Background(), a)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return &countingStore{Store: s}, id
}

func TestSearchFiltersResults(t *testing.T) {
	cs, id := setup(t, &core.Article{URL: "https://site.example/blogs/a/", Title: "Chatbots in retail", OriginalContent: "x"})

	provider := search.NewMockProvider()
	provider.SetResults([]search.Result{
		{URL: "https://www.site.example/blogs/other/", Title: "Our own post"},
		{URL: "https://m.youtube.com/watch?v=1", Title: "A video"},
		{URL: "https://a.example/post", Title: "", Snippet: "About chatbots"},
		{URL: "https://a.example/post", Title: "Duplicate"},
		{URL: "https://b.example/x", Title: "B post", Snippet: ""},
		{URL: "https://c.example/beyond-limit", Title: "Too far down"},
	})

	c := NewCoordinator(cs, provider, fakeFetcher{}, Options{})
	got, err := c.Search(context.Background(), id)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	want := []core.Candidate{
		{URL: "https://a.example/post", Title: "No Title", Snippet: "About chatbots", Status: core.CandidatePending},
		{URL: "https://b.example/x", Title: "B post", Snippet: "No description available", Status: core.CandidatePending},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}

	stored, _ := cs.Get(context.Background(), id)
	if stored.ResearchState != core.ResearchReviewing {
		t.Errorf("expected reviewing, got %s", stored.ResearchState)
	}
	if diff := cmp.Diff(want, stored.ResearchCandidates); diff != "" {
		t.Errorf("stored candidates mismatch (-want +got):\n%s", diff)
	}
	if q := provider.Queries(); len(q) != 1 || q[0] != "Chatbots in retail" {
		t.Errorf("expected title query, got %v", q)
	}
}

func TestSearchCapsCandidates(t *testing.T) {
	cs, id := setup(t, &core.Article{URL: "https://site.example/blogs/a/", Title: "Title here", OriginalContent: "x"})

	var results []search.Result
	for i := 0; i < 8; i++ {
		results = append(results, search.Result{URL: fmt.Sprintf("https://r%d.example/", i), Title: "T", Snippet: "S"})
	}
	provider := search.NewMockProvider()
	provider.SetResults(results)

	c := NewCoordinator(cs, provider, fakeFetcher{}, Options{SearchLimit: 10})
	got, err := c.Search(context.Background(), id)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 candidates, got %d", len(got))
	}
}

func TestSearchFailureReverts(t *testing.T) {
	cs, id := setup(t, &core.Article{URL: "https://site.example/blogs/a/", Title: "Title here", OriginalContent: "x"})

	provider := search.NewMockProvider()
	provider.SetError(search.ErrRateLimited)

	c := NewCoordinator(cs, provider, fakeFetcher{}, Options{})
	_, err := c.Search(context.Background(), id)

	var spErr *core.SearchProviderError
	if !errors.As(err, &spErr) {
		t.Fatalf("expected SearchProviderError, got %v", err)
	}
	if !errors.Is(err, search.ErrRateLimited) {
		t.Errorf("provider cause should be preserved, got %v", err)
	}

	stored, _ := cs.Get(context.Background(), id)
	if stored.ResearchState != core.ResearchIdle {
		t.Errorf("expected idle after failure, got %s", stored.ResearchState)
	}
	if len(stored.ResearchCandidates) != 0 {
		t.Errorf("no candidates should be stored, got %v", stored.ResearchCandidates)
	}
}

// cancellingProvider answers and then cancels the caller's context, as a client
// disconnecting mid-request would.
type cancellingProvider struct {
	*search.MockProvider
	cancel context.CancelFunc
}

func (p *cancellingProvider) Search(ctx context.Context, query string, cfg search.Config) ([]search.Result, error) {
	results, err := p.MockProvider.Search(ctx, query, cfg)
	p.cancel()
	return results, err
}

func TestSearchRevertsWhenStoringCandidatesFails(t *testing.T) {
	cs, id := setup(t, &core.Article{URL: "https://site.example/blogs/a/", Title: "Title here", OriginalContent: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	provider := &cancellingProvider{MockProvider: search.NewMockProvider(), cancel: cancel}
	c := NewCoordinator(cs, provider, fakeFetcher{}, Options{})

	if _, err := c.Search(ctx, id); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stored, _ := cs.Get(context.Background(), id)
	if stored.ResearchState != core.ResearchIdle {
		t.Fatalf("expected idle after failed write, got %s", stored.ResearchState)
	}

	// the article stays searchable
	c = NewCoordinator(cs, search.NewMockProvider(), fakeFetcher{}, Options{})
	if _, err := c.Search(context.Background(), id); err != nil {
		t.Fatalf("retry Search failed: %v", err)
	}
	stored, _ = cs.Get(context.Background(), id)
	if stored.ResearchState != core.ResearchReviewing {
		t.Errorf("expected reviewing after retry, got %s", stored.ResearchState)
	}
}

func TestReset(t *testing.T) {
	candidates := []core.Candidate{{URL: "https://a.example/", Title: "A", Status: core.CandidateApproved}}
	tests := []struct {
		name    string
		article core.Article
		want    core.ResearchState
		patched bool
	}{
		{"searching goes idle", core.Article{ResearchState: core.ResearchSearching}, core.ResearchIdle, true},
		{"processing with rewrite goes complete", core.Article{ResearchState: core.ResearchProcessing, UpdatedContent: "# Old"}, core.ResearchComplete, true},
		{"processing with candidates goes reviewing", core.Article{ResearchState: core.ResearchProcessing, ResearchCandidates: candidates}, core.ResearchReviewing, true},
		{"processing alone goes idle", core.Article{ResearchState: core.ResearchProcessing}, core.ResearchIdle, true},
		{"resting state untouched", core.Article{ResearchState: core.ResearchReviewing}, core.ResearchReviewing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.article
			a.URL = "https://site.example/blogs/a/"
			a.Title = "Title here"
			cs, id := setup(t, &a)

			c := NewCoordinator(cs, search.NewMockProvider(), fakeFetcher{}, Options{})
			got, err := c.Reset(context.Background(), id)
			if err != nil {
				t.Fatalf("Reset failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Reset returned %s, want %s", got, tt.want)
			}
			stored, _ := cs.Get(context.Background(), id)
			if stored.ResearchState != tt.want {
				t.Errorf("stored state %s, want %s", stored.ResearchState, tt.want)
			}
			if (cs.patches > 0) != tt.patched {
				t.Errorf("patches = %d, patched want %v", cs.patches, tt.patched)
			}
		})
	}
}

func TestSearchRejectsInFlightArticle(t *testing.T) {
	cs, id := setup(t, &core.Article{URL: "https://site.example/blogs/a/", Title: "Title here", ResearchState: core.ResearchProcessing})

	c := NewCoordinator(cs, search.NewMockProvider(), fakeFetcher{}, Options{})
	if _, err := c.Search(context.Background(), id); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := c.Search(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCandidateCurationIsolation(t *testing.T) {
	candidates := []core.Candidate{
		{URL: "https://a.example/", Title: "A", Status: core.CandidatePending},
		{URL: "https://b.example/", Title: "B", Status: core.CandidatePending},
		{URL: "https://c.example/", Title: "C", Status: core.CandidateRejected},
	}
	cs, id := setup(t, &core.Article{URL: "https://site.example/blogs/a/", ResearchCandidates: candidates})
	c := NewCoordinator(cs, search.NewMockProvider(), fakeFetcher{}, Options{})
	ctx := context.Background()

	if err := c.Approve(ctx, id, "https://b.example/"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	stored, _ := cs.Get(ctx, id)
	want := []core.CandidateStatus{core.CandidatePending, core.CandidateApproved, core.CandidateRejected}
	for i, c := range stored.ResearchCandidates {
		if c.Status != want[i] {
			t.Errorf("candidate %d: got %s, want %s", i, c.Status, want[i])
		}
	}

	writes := cs.patches
	if err := c.Approve(ctx, id, "https://b.example/"); err != nil {
		t.Fatalf("repeat Approve failed: %v", err)
	}
	if err := c.Reject(ctx, id, "https://unknown.example/"); err != nil {
		t.Fatalf("unknown url should be a no-op, got %v", err)
	}
	if cs.patches != writes {
		t.Errorf("expected no writes, got %d", cs.patches-writes)
	}

	if err := c.Reject(ctx, id, "https://b.example/"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	stored, _ = cs.Get(ctx, id)
	if stored.ResearchCandidates[1].Status != core.CandidateRejected || stored.ResearchCandidates[0].Status != core.CandidatePending {
		t.Errorf("unexpected statuses after reject: %+v", stored.ResearchCandidates)
	}

	if err := c.SetCandidateStatus(ctx, id, "https://a.example/", "maybe"); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveConfig(t *testing.T) {
	cs, id := setup(t, &core.Article{URL: "https://site.example/blogs/a/"})
	c := NewCoordinator(cs, search.NewMockProvider(), fakeFetcher{}, Options{})
	ctx := context.Background()

	level := 40
	cfg := core.GenerationConfig{
		Tone:             " friendly ",
		Keywords:         []string{"ai", " AI", "", "retail"},
		CustomPrompt:     "Mention pricing.",
		TargetLanguage:   "French",
		ReadabilityLevel: &level,
	}
	if err := c.SaveConfig(ctx, id, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	stored, _ := cs.Get(ctx, id)
	want := core.GenerationConfig{
		Tone:             "friendly",
		Keywords:         []string{"ai", "retail"},
		CustomPrompt:     "Mention pricing.",
		TargetLanguage:   "French",
		ReadabilityLevel: &level,
	}
	if diff := cmp.Diff(want, stored.GenerationConfig()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	bad := 101
	if err := c.SaveConfig(ctx, id, core.GenerationConfig{ReadabilityLevel: &bad}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := c.SaveConfig(ctx, "missing", cfg); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildContext(t *testing.T) {
	fetcher := fakeFetcher{
		"https://a.example/": "<html><body><nav>menu</nav><article>Alpha   source text</article></body></html>",
		"https://c.example/": "<html><body><main>Gamma source text</main></body></html>",
	}
	c := NewCoordinator(nil, search.NewMockProvider(), fetcher, Options{})

	rc, err := c.BuildContext(context.Background(), []core.Candidate{
		{URL: "https://a.example/", Status: core.CandidateApproved},
		{URL: "https://b.example/", Status: core.CandidateApproved},
		{URL: "https://skip.example/", Status: core.CandidateRejected},
		{URL: "https://c.example/", Status: core.CandidateApproved},
	})
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}

	wantText := "--- SOURCE [1]: https://a.example/ ---\nAlpha source text\n\n" +
		"--- SOURCE [2]: https://c.example/ ---\nGamma source text"
	if rc.Text != wantText {
		t.Errorf("unexpected context text:\n%s", rc.Text)
	}
	if diff := cmp.Diff([]string{"https://a.example/", "https://c.example/"}, rc.Citations); diff != "" {
		t.Errorf("citations mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildContextAllSourcesFail(t *testing.T) {
	approved := []core.Candidate{{URL: "https://down.example/", Status: core.CandidateApproved}}

	lenient := NewCoordinator(nil, search.NewMockProvider(), fakeFetcher{}, Options{})
	rc, err := lenient.BuildContext(context.Background(), approved)
	if err != nil || !rc.Empty() {
		t.Errorf("expected empty context without error, got %+v %v", rc, err)
	}

	strict := NewCoordinator(nil, search.NewMockProvider(), fakeFetcher{}, Options{RequireSources: true})
	if _, err := strict.BuildContext(context.Background(), approved); !errors.Is(err, core.ErrNoResearchSources) {
		t.Errorf("expected ErrNoResearchSources, got %v", err)
	}
	if _, err := strict.BuildContext(context.Background(), nil); err != nil {
		t.Errorf("no approved sources is not an error, got %v", err)
	}
}
