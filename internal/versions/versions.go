// Package versions applies generation results to articles while keeping a bounded
// history of the enrichment they replace.
package versions

import (
	"context"
	"fmt"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/logger"
	"blogsmith/internal/store"
)

// ApplyResult returns a copy of a with result written over its enrichment fields.
// When a already carries a rewrite, that state is pushed to the front of the history first.
func ApplyResult(a *core.Article, result *core.GenerationResult, citations []string, now time.Time) (*core.Article, error) {
	if result == nil {
		return nil, fmt.Errorf("nil generation result: %w", core.ErrInvalidInput)
	}
	status, err := a.Status.Transition(core.StatusProcessed)
	if err != nil {
		return nil, err
	}

	out := a.Clone()
	if out.HasEnrichment() {
		snap := core.Snapshot{
			Timestamp:      nextTimestamp(out.VersionHistory, now),
			Summary:        out.AISummary,
			Tags:           out.AITags,
			UpdatedContent: out.UpdatedContent,
			SEOAnalysis:    out.SEOAnalysis,
		}
		history := make([]core.Snapshot, 0, len(out.VersionHistory)+1)
		history = append(history, snap)
		history = append(history, out.VersionHistory...)
		if len(history) > core.MaxVersionHistory {
			history = history[:core.MaxVersionHistory]
		}
		out.VersionHistory = history
	}

	seo := result.SEO.Clone()
	out.AISummary = result.Summary
	out.AITags = append([]string(nil), result.Tags...)
	out.UpdatedContent = result.RewrittenContent
	out.SEOAnalysis = seo
	out.SEOScore = scoreOf(seo)
	out.Status = status
	if len(citations) > 0 {
		out.Citations = append([]string(nil), citations...)
	}
	return out, nil
}

// Restore copies the snapshot with the given timestamp back onto a copy of the article.
// History and status are left as they are.
func Restore(a *core.Article, timestamp int64) (*core.Article, error) {
	for _, snap := range a.VersionHistory {
		if snap.Timestamp != timestamp {
			continue
		}
		s := snap.Clone()
		out := a.Clone()
		out.AISummary = s.Summary
		out.AITags = s.Tags
		out.UpdatedContent = s.UpdatedContent
		out.SEOAnalysis = s.SEOAnalysis
		out.SEOScore = scoreOf(s.SEOAnalysis)
		return out, nil
	}
	return nil, fmt.Errorf("article %s at %d: %w", a.ID, timestamp, core.ErrVersionNotFound)
}

// nextTimestamp returns now in unix milliseconds, bumped past every existing entry
// so that each snapshot stays uniquely addressable.
func nextTimestamp(history []core.Snapshot, now time.Time) int64 {
	ts := now.UnixMilli()
	for _, s := range history {
		if s.Timestamp >= ts {
			ts = s.Timestamp + 1
		}
	}
	return ts
}

func scoreOf(seo *core.SEOAnalysis) *int {
	if seo == nil {
		return nil
	}
	score := seo.Score
	return &score
}

// Store is the persistence needed by Manager.
type Store interface {
	Get(ctx context.Context, id string) (*core.Article, error)
	Patch(ctx context.Context, id string, p store.Patch) error
}

// Manager loads an article, runs the pure transformation and writes the result back in one patch.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a Manager over s.
func NewManager(s Store) *Manager {
	return &Manager{store: s, now: time.Now}
}

// Apply writes result onto the stored article. Fields set on extra are written in the same patch.
func (m *Manager) Apply(ctx context.Context, id string, result *core.GenerationResult, citations []string, extra store.Patch) (*core.Article, error) {
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := ApplyResult(current, result, citations, m.now())
	if err != nil {
		return nil, err
	}

	p := extra.WithStatus(updated.Status)
	p.Enrichment = store.EnrichmentOf(updated)
	if err := m.store.Patch(ctx, id, p); err != nil {
		return nil, fmt.Errorf("failed to save enrichment for %s: %w", id, err)
	}
	if extra.ResearchState != nil {
		updated.ResearchState = *extra.ResearchState
	}

	logger.Info("Enrichment applied", "article_id", id, "history", len(updated.VersionHistory), "citations", len(updated.Citations))
	return updated, nil
}

// RestoreByID restores the stored article to the snapshot taken at timestamp.
func (m *Manager) RestoreByID(ctx context.Context, id string, timestamp int64) (*core.Article, error) {
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	restored, err := Restore(current, timestamp)
	if err != nil {
		return nil, err
	}

	if err := m.store.Patch(ctx, id, store.Patch{Enrichment: store.EnrichmentOf(restored)}); err != nil {
		return nil, fmt.Errorf("failed to restore %s: %w", id, err)
	}

	logger.Info("Version restored", "article_id", id, "timestamp", timestamp)
	return restored, nil
}
