package handlers

import (
	"context"
	"fmt"
	"time"

	"blogsmith/internal/chat"
	"blogsmith/internal/config"
	"blogsmith/internal/enrich"
	"blogsmith/internal/fetch"
	"blogsmith/internal/generate"
	"blogsmith/internal/ingest"
	"blogsmith/internal/llm"
	"blogsmith/internal/lock"
	"blogsmith/internal/logger"
	"blogsmith/internal/notify"
	"blogsmith/internal/research"
	"blogsmith/internal/search"
	"blogsmith/internal/store"
)

// app holds the wired services shared by the subcommands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *enrich.Pipeline
	closers  []func() error
}

// newApp loads configuration, opens the store and wires the pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &app{cfg: cfg, store: st}
	a.closers = append(a.closers, st.Close)

	fetcher := fetch.New(fetch.Options{
		Timeout:      config.Duration(cfg.Fetch.Timeout, 15*time.Second),
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})

	factory := search.NewProviderFactory(config.Duration(cfg.Search.Timeout, 30*time.Second))
	searchProvider, err := factory.CreateProvider(
		search.ProviderType(cfg.Search.DefaultProvider),
		cfg.GetSearchProviderConfig(cfg.Search.DefaultProvider),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create search provider: %w", err)
	}

	coordinator := research.NewCoordinator(st, searchProvider, fetcher, research.Options{
		SearchLimit:    cfg.Research.SearchLimit,
		MaxCandidates:  cfg.Research.MaxCandidates,
		BlockedDomains: cfg.Research.BlockedDomains,
		Language:       cfg.Search.Language,
		ExcerptChars:   cfg.Research.ExcerptChars,
		RequireSources: cfg.Research.RequireSources,
	})

	ingestor := ingest.New(st, fetcher, ingest.Source{
		ListingURL: cfg.Source.ListingURL,
		FeedURL:    cfg.Source.FeedURL,
		Mode:       cfg.Source.Mode,
		Rules: fetch.LinkRules{
			ArticleSegment:   cfg.Source.ArticleSegment,
			ExcludedSegments: cfg.Source.ExcludedSegments,
		},
	})

	gemini := cfg.AI.Gemini
	callTimeout := config.Duration(gemini.Timeout, 2*time.Minute)
	var (
		provider     llm.Provider
		chatProvider chat.Provider
	)
	client, err := a.llmClient(ctx, callTimeout)
	if err != nil {
		provider = unavailableProvider{err: err}
	} else {
		provider, chatProvider = client, client
	}

	engine := generate.New(provider, generate.Options{
		Models:        gemini.Models,
		MaxAttempts:   cfg.AI.Retry.MaxAttempts,
		RateLimitStep: config.Duration(cfg.AI.Retry.RateLimitStep, 3*time.Second),
		RetryDelay:    config.Duration(cfg.AI.Retry.Delay, time.Second),
		Temperature:   gemini.Temperature,
	})

	chatModel := ""
	if len(gemini.Models) > 0 {
		chatModel = gemini.Models[0]
	}

	sourceFetches := time.Duration(max(cfg.Research.MaxCandidates, 1)) * config.Duration(cfg.Fetch.Timeout, 15*time.Second)
	a.pipeline = enrich.New(enrich.Deps{
		Store:     st,
		Ingestor:  ingestor,
		Research:  coordinator,
		Engine:    engine,
		Locks:     a.locker(ctx),
		Notifier:  a.notifier(),
		Assistant: chat.New(chatProvider, chatModel),
		LockTTL:   lockTTL(config.Duration(cfg.Research.LockTTL, 5*time.Minute), engine.WorstCase(callTimeout)+sourceFetches),
	})

	return a, nil
}

// llmClient returns the Gemini client. Without a key it returns the error that
// generation reports, and chat stays offline.
func (a *app) llmClient(ctx context.Context, timeout time.Duration) (*llm.Client, error) {
	gemini := a.cfg.AI.Gemini
	if !a.cfg.HasGeminiKey() {
		_, err := llm.NewClient(ctx, "", 0, 0)
		return nil, err
	}
	return llm.NewClient(ctx, gemini.APIKey, gemini.Temperature, timeout)
}

// lockTTL keeps an article lock alive for at least the slowest enrichment plus a
// minute of slack, so a slow run cannot lose its lock to a second caller.
func lockTTL(configured, worstCase time.Duration) time.Duration {
	return max(configured, worstCase+time.Minute)
}

func (a *app) locker(ctx context.Context) lock.Locker {
	r := a.cfg.Redis
	if r.Addr == "" {
		return lock.NewMemory()
	}
	client, err := lock.NewRedisClient(ctx, r.Addr, r.Password, r.DB)
	if err != nil {
		logger.Warn("Redis unavailable, using in-process locks", "addr", r.Addr, "error", err.Error())
		return lock.NewMemory()
	}
	a.closers = append(a.closers, client.Close)
	return lock.NewRedis(client, "blogsmith:lock:")
}

func (a *app) notifier() notify.Notifier {
	tg := a.cfg.Notify.Telegram
	if tg.Token == "" || tg.ChatID == 0 {
		return notify.Nop{}
	}
	n, err := notify.NewTelegram(tg.Token, tg.ChatID)
	if err != nil {
		logger.Warn("Telegram notifications disabled", "error", err.Error())
		return notify.Nop{}
	}
	return n
}

// Close releases the store and any backend connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to close resource", "error", err.Error())
		}
	}
}

type unavailableProvider struct {
	err error
}

// Generate fails as a client error so the engine does not retry a missing key.
func (u unavailableProvider) Generate(context.Context, string, string, llm.GenerateOptions) (string, error) {
	return "", &llm.ProviderError{Kind: llm.KindClient, Message: u.err.Error(), Err: u.err}
}

func (u unavailableProvider) ListModels(context.Context) ([]llm.ModelInfo, error) {
	return nil, u.err
}
