package store

import (
	"fmt"

	"blogsmith/internal/core"
)

// Patch lists the fields to overwrite on an article. Nil fields are left unchanged.
type Patch struct {
	Title              *string
	Status             *core.Status
	ResearchState      *core.ResearchState
	ResearchCandidates *[]core.Candidate
	Config             *core.GenerationConfig
	Enrichment         *Enrichment
}

// Enrichment is the block of fields written together by a rewrite or a restore.
type Enrichment struct {
	AISummary      string
	AITags         []string
	UpdatedContent string
	Citations      []string
	SEOScore       *int
	SEOAnalysis    *core.SEOAnalysis
	VersionHistory []core.Snapshot
}

// EnrichmentOf captures the enrichment fields of an article.
func EnrichmentOf(a *core.Article) *Enrichment {
	return &Enrichment{
		AISummary:      a.AISummary,
		AITags:         a.AITags,
		UpdatedContent: a.UpdatedContent,
		Citations:      a.Citations,
		SEOScore:       a.SEOScore,
		SEOAnalysis:    a.SEOAnalysis,
		VersionHistory: a.VersionHistory,
	}
}

// WithStatus sets the status field.
func (p Patch) WithStatus(s core.Status) Patch {
	p.Status = &s
	return p
}

// WithResearchState sets the research state field.
func (p Patch) WithResearchState(s core.ResearchState) Patch {
	p.ResearchState = &s
	return p
}

// WithCandidates replaces the research candidate list.
func (p Patch) WithCandidates(c []core.Candidate) Patch {
	p.ResearchCandidates = &c
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Status == nil && p.ResearchState == nil &&
		p.ResearchCandidates == nil && p.Config == nil && p.Enrichment == nil
}

func (p Patch) columns() (map[string]any, error) {
	if p.IsEmpty() {
		return nil, fmt.Errorf("empty patch: %w", core.ErrInvalidInput)
	}

	set := make(map[string]any)
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, fmt.Errorf("status %q: %w", *p.Status, core.ErrInvalidInput)
		}
		set["status"] = string(*p.Status)
	}
	if p.ResearchState != nil {
		state := p.ResearchState.Normalize()
		if !state.Valid() {
			return nil, fmt.Errorf("research state %q: %w", *p.ResearchState, core.ErrInvalidInput)
		}
		set["research_state"] = string(state)
	}
	if p.ResearchCandidates != nil {
		v, err := encodeJSON(*p.ResearchCandidates)
		if err != nil {
			return nil, err
		}
		set["research_candidates"] = v
	}
	if c := p.Config; c != nil {
		keywords, err := encodeJSON(c.Keywords)
		if err != nil {
			return nil, err
		}
		set["user_tone"] = c.Tone
		set["user_keywords"] = keywords
		set["custom_prompt"] = c.CustomPrompt
		set["target_language"] = c.TargetLanguage
		set["readability_level"] = nullInt(c.ReadabilityLevel)
	}
	if e := p.Enrichment; e != nil {
		if err := e.columns(set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (e *Enrichment) columns(set map[string]any) error {
	tags, err := encodeJSON(e.AITags)
	if err != nil {
		return err
	}
	citations, err := encodeJSON(e.Citations)
	if err != nil {
		return err
	}
	history, err := encodeJSON(e.VersionHistory)
	if err != nil {
		return err
	}
	analysis, err := encodeNullJSON(e.SEOAnalysis)
	if err != nil {
		return err
	}

	set["ai_summary"] = e.AISummary
	set["ai_tags"] = tags
	set["updated_content"] = e.UpdatedContent
	set["citations"] = citations
	set["seo_score"] = nullInt(e.SEOScore)
	set["seo_analysis"] = analysis
	set["version_history"] = history
	return nil
}
