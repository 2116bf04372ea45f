package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"blogsmith/internal/core"
)

// articleRow mirrors the articles table. List-valued fields are stored as JSON text.
type articleRow struct {
	ID                 string         `db:"id"`
	URL                string         `db:"url"`
	Title              string         `db:"title"`
	OriginalContent    string         `db:"original_content"`
	PublishedDate      string         `db:"published_date"`
	Status             string         `db:"status"`
	ResearchState      string         `db:"research_state"`
	ResearchCandidates string         `db:"research_candidates"`
	UserTone           string         `db:"user_tone"`
	UserKeywords       string         `db:"user_keywords"`
	CustomPrompt       string         `db:"custom_prompt"`
	TargetLanguage     string         `db:"target_language"`
	ReadabilityLevel   sql.NullInt64  `db:"readability_level"`
	AISummary          string         `db:"ai_summary"`
	AITags             string         `db:"ai_tags"`
	UpdatedContent     string         `db:"updated_content"`
	Citations          string         `db:"citations"`
	SEOScore           sql.NullInt64  `db:"seo_score"`
	SEOAnalysis        sql.NullString `db:"seo_analysis"`
	VersionHistory     string         `db:"version_history"`
	CreatedAt          int64          `db:"created_at"`
	UpdatedAt          int64          `db:"updated_at"`
}

func fromArticle(a *core.Article) (*articleRow, error) {
	row := &articleRow{
		ID:               a.ID,
		URL:              a.URL,
		Title:            a.Title,
		OriginalContent:  a.OriginalContent,
		PublishedDate:    a.PublishedDate,
		Status:           string(a.Status),
		ResearchState:    string(a.ResearchState.Normalize()),
		UserTone:         a.UserTone,
		CustomPrompt:     a.CustomPrompt,
		TargetLanguage:   a.TargetLanguage,
		ReadabilityLevel: nullInt(a.ReadabilityLevel),
		AISummary:        a.AISummary,
		UpdatedContent:   a.UpdatedContent,
		SEOScore:         nullInt(a.SEOScore),
		CreatedAt:        a.CreatedAt.UnixNano(),
		UpdatedAt:        a.UpdatedAt.UnixNano(),
	}

	var err error
	if row.ResearchCandidates, err = encodeJSON(a.ResearchCandidates); err != nil {
		return nil, err
	}
	if row.UserKeywords, err = encodeJSON(a.UserKeywords); err != nil {
		return nil, err
	}
	if row.AITags, err = encodeJSON(a.AITags); err != nil {
		return nil, err
	}
	if row.Citations, err = encodeJSON(a.Citations); err != nil {
		return nil, err
	}
	if row.VersionHistory, err = encodeJSON(a.VersionHistory); err != nil {
		return nil, err
	}
	if row.SEOAnalysis, err = encodeNullJSON(a.SEOAnalysis); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *articleRow) values() map[string]any {
	return map[string]any{
		"id":                  r.ID,
		"url":                 r.URL,
		"title":               r.Title,
		"original_content":    r.OriginalContent,
		"published_date":      r.PublishedDate,
		"status":              r.Status,
		"research_state":      r.ResearchState,
		"research_candidates": r.ResearchCandidates,
		"user_tone":           r.UserTone,
		"user_keywords":       r.UserKeywords,
		"custom_prompt":       r.CustomPrompt,
		"target_language":     r.TargetLanguage,
		"readability_level":   r.ReadabilityLevel,
		"ai_summary":          r.AISummary,
		"ai_tags":             r.AITags,
		"updated_content":     r.UpdatedContent,
		"citations":           r.Citations,
		"seo_score":           r.SEOScore,
		"seo_analysis":        r.SEOAnalysis,
		"version_history":     r.VersionHistory,
		"created_at":          r.CreatedAt,
		"updated_at":          r.UpdatedAt,
	}
}

func (r *articleRow) toArticle() (*core.Article, error) {
	a := &core.Article{
		ID:              r.ID,
		URL:             r.URL,
		Title:           r.Title,
		OriginalContent: r.OriginalContent,
		PublishedDate:   r.PublishedDate,
		Status:          core.Status(r.Status),
		ResearchState:   core.ResearchState(r.ResearchState).Normalize(),
		UserTone:        r.UserTone,
		CustomPrompt:    r.CustomPrompt,
		TargetLanguage:  r.TargetLanguage,
		AISummary:       r.AISummary,
		UpdatedContent:  r.UpdatedContent,
		CreatedAt:       time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:       time.Unix(0, r.UpdatedAt).UTC(),
	}
	if r.ReadabilityLevel.Valid {
		v := int(r.ReadabilityLevel.Int64)
		a.ReadabilityLevel = &v
	}
	if r.SEOScore.Valid {
		v := int(r.SEOScore.Int64)
		a.SEOScore = &v
	}

	fields := []struct {
		name string
		raw  string
		dst  any
	}{
		{"research_candidates", r.ResearchCandidates, &a.ResearchCandidates},
		{"user_keywords", r.UserKeywords, &a.UserKeywords},
		{"ai_tags", r.AITags, &a.AITags},
		{"citations", r.Citations, &a.Citations},
		{"version_history", r.VersionHistory, &a.VersionHistory},
	}
	for _, f := range fields {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("article %s: decode %s: %w", r.ID, f.name, err)
		}
	}
	if r.SEOAnalysis.Valid && r.SEOAnalysis.String != "" {
		a.SEOAnalysis = &core.SEOAnalysis{}
		if err := json.Unmarshal([]byte(r.SEOAnalysis.String), a.SEOAnalysis); err != nil {
			return nil, fmt.Errorf("article %s: decode seo_analysis: %w", r.ID, err)
		}
	}
	return a, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func encodeNullJSON(v *core.SEOAnalysis) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode json column: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(raw string, dst any) error {
	if raw == "" || raw == "[]" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
