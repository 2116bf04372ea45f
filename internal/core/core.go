package core

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MaxVersionHistory is the number of pre-overwrite snapshots kept per article.
const MaxVersionHistory = 10

// LinkCandidate is a title+URL pair discovered on a listing page, not yet verified as new.
type LinkCandidate struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ExtractedContent is the result of reducing an article page to title and body text.
type ExtractedContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Candidate is an external search result proposed as research material for an article.
type Candidate struct {
	URL     string          `json:"url"`
	Title   string          `json:"title"`
	Snippet string          `json:"snippet"`
	Status  CandidateStatus `json:"status"`
}

// SEOAnalysis is the structured SEO critique produced alongside a rewrite.
type SEOAnalysis struct {
	Score                 int      `json:"score"`
	Readability           string   `json:"readability"`
	Critique              []string `json:"critique"`
	Keywords              []string `json:"keywords"`
	CompetitorGapAnalysis []string `json:"competitorGapAnalysis,omitempty"`
}

// UnmarshalJSON accepts any JSON number (or numeric string) as the score and
// rounds it into the 0-100 range.
func (s *SEOAnalysis) UnmarshalJSON(data []byte) error {
	type plain SEOAnalysis
	aux := struct {
		*plain
		Score json.Number `json:"score"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	s.Score = 0
	if aux.Score == "" {
		return nil
	}
	f, err := aux.Score.Float64()
	if err != nil {
		return fmt.Errorf("invalid seo score %q: %w", aux.Score, err)
	}
	s.Score = ClampScore(f)
	return nil
}

// ClampScore rounds f to the nearest integer within 0-100.
func ClampScore(f float64) int {
	return int(math.Max(0, math.Min(100, math.Round(f))))
}

// Snapshot is a copy of an article's enrichment fields taken immediately before an overwrite.
type Snapshot struct {
	Timestamp      int64        `json:"timestamp"` // unix milliseconds
	Summary        string       `json:"summary,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	UpdatedContent string       `json:"updatedContent,omitempty"`
	SEOAnalysis    *SEOAnalysis `json:"seoAnalysis,omitempty"`
}

// GenerationConfig holds the user-chosen knobs for the rewrite stage.
type GenerationConfig struct {
	Tone             string   `json:"tone"`
	Keywords         []string `json:"keywords"`
	CustomPrompt     string   `json:"customPrompt,omitempty"`
	TargetLanguage   string   `json:"targetLanguage,omitempty"`
	ReadabilityLevel *int     `json:"readabilityLevel,omitempty"` // 0-100
}

// GenerationResult is the structured JSON contract the LLM must return.
type GenerationResult struct {
	Summary          string       `json:"summary"`
	Tags             []string     `json:"tags"`
	RewrittenContent string       `json:"rewrittenContent"`
	SEO              *SEOAnalysis `json:"seo,omitempty"`
}

// Article is the persisted unit of content moving through ingestion, research and rewrite.
type Article struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	Title           string `json:"title"`
	OriginalContent string `json:"originalContent"`
	PublishedDate   string `json:"publishedDate,omitempty"`

	Status             Status        `json:"status"`
	ResearchState      ResearchState `json:"researchState,omitempty"`
	ResearchCandidates []Candidate   `json:"researchCandidates,omitempty"`

	UserTone         string   `json:"userTone,omitempty"`
	UserKeywords     []string `json:"userKeywords,omitempty"`
	CustomPrompt     string   `json:"customPrompt,omitempty"`
	TargetLanguage   string   `json:"targetLanguage,omitempty"`
	ReadabilityLevel *int     `json:"readabilityLevel,omitempty"`

	AISummary      string       `json:"aiSummary,omitempty"`
	AITags         []string     `json:"aiTags,omitempty"`
	UpdatedContent string       `json:"updatedContent,omitempty"`
	Citations      []string     `json:"citations,omitempty"`
	SEOScore       *int         `json:"seoScore,omitempty"`
	SEOAnalysis    *SEOAnalysis `json:"seoAnalysis,omitempty"`

	VersionHistory []Snapshot `json:"versionHistory,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GenerationConfig returns the article's saved generation settings.
func (a *Article) GenerationConfig() GenerationConfig {
	return GenerationConfig{
		Tone:             a.UserTone,
		Keywords:         a.UserKeywords,
		CustomPrompt:     a.CustomPrompt,
		TargetLanguage:   a.TargetLanguage,
		ReadabilityLevel: a.ReadabilityLevel,
	}
}

// ApprovedCandidates returns approved research candidates in their stored order.
func (a *Article) ApprovedCandidates() []Candidate {
	var approved []Candidate
	for _, c := range a.ResearchCandidates {
		if c.Status == CandidateApproved {
			approved = append(approved, c)
		}
	}
	return approved
}

// HasEnrichment reports whether the article carries a previous rewrite.
func (a *Article) HasEnrichment() bool {
	return a.UpdatedContent != ""
}

// Clone returns a deep copy so pure transformations never alias the caller's slices.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	c := *a
	c.ResearchCandidates = append([]Candidate(nil), a.ResearchCandidates...)
	c.UserKeywords = cloneStrings(a.UserKeywords)
	c.AITags = cloneStrings(a.AITags)
	c.Citations = cloneStrings(a.Citations)
	c.SEOAnalysis = a.SEOAnalysis.Clone()
	if a.SEOScore != nil {
		v := *a.SEOScore
		c.SEOScore = &v
	}
	if a.ReadabilityLevel != nil {
		v := *a.ReadabilityLevel
		c.ReadabilityLevel = &v
	}
	if a.VersionHistory != nil {
		c.VersionHistory = make([]Snapshot, len(a.VersionHistory))
		for i, s := range a.VersionHistory {
			c.VersionHistory[i] = s.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the analysis.
func (s *SEOAnalysis) Clone() *SEOAnalysis {
	if s == nil {
		return nil
	}
	c := *s
	c.Critique = cloneStrings(s.Critique)
	c.Keywords = cloneStrings(s.Keywords)
	c.CompetitorGapAnalysis = cloneStrings(s.CompetitorGapAnalysis)
	return &c
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.Tags = cloneStrings(s.Tags)
	s.SEOAnalysis = s.SEOAnalysis.Clone()
	return s
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
