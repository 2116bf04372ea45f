package core

import (
	"errors"
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessed, true},
		{StatusProcessed, StatusProcessed, true},
		{StatusProcessed, StatusPending, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		got, err := tt.from.Transition(tt.to)
		if tt.ok {
			if err != nil {
				t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
			}
			if got != tt.to {
				t.Errorf("%s -> %s: got %s", tt.from, tt.to, got)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
		}
		if got != tt.from {
			t.Errorf("%s -> %s: state should stay %s, got %s", tt.from, tt.to, tt.from, got)
		}
	}
}

func TestResearchStateTransitions(t *testing.T) {
	tests := []struct {
		from, to ResearchState
		ok       bool
	}{
		{"", ResearchSearching, true},
		{ResearchIdle, ResearchSearching, true},
		{ResearchSearching, ResearchReviewing, true},
		{ResearchSearching, ResearchIdle, true},
		{ResearchReviewing, ResearchProcessing, true},
		{ResearchProcessing, ResearchComplete, true},
		{ResearchComplete, ResearchSearching, true},
		{ResearchIdle, ResearchComplete, false},
		{ResearchSearching, ResearchProcessing, false},
		{ResearchReviewing, ResearchComplete, false},
	}

	for _, tt := range tests {
		_, err := tt.from.Transition(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%q -> %q: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%q -> %q: expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
		}
	}
}

func TestResearchStateInFlight(t *testing.T) {
	inFlight := map[ResearchState]bool{
		"":                 false,
		ResearchIdle:       false,
		ResearchSearching:  true,
		ResearchReviewing:  false,
		ResearchProcessing: true,
		ResearchComplete:   false,
	}
	for state, want := range inFlight {
		if got := state.InFlight(); got != want {
			t.Errorf("InFlight(%q) = %v, want %v", state, got, want)
		}
	}
}

func TestParseCandidateStatus(t *testing.T) {
	if _, err := ParseCandidateStatus("approved"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseCandidateStatus("maybe"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestArticleClone(t *testing.T) {
	score := 70
	a := &Article{
		AITags:      []string{"go"},
		SEOScore:    &score,
		SEOAnalysis: &SEOAnalysis{Score: 70, Critique: []string{"short"}},
		VersionHistory: []Snapshot{
			{Timestamp: 1, Tags: []string{"old"}, SEOAnalysis: &SEOAnalysis{Score: 50}},
		},
		ResearchCandidates: []Candidate{{URL: "https://a.example", Status: CandidatePending}},
	}

	c := a.Clone()
	c.AITags[0] = "rust"
	*c.SEOScore = 10
	c.SEOAnalysis.Critique[0] = "long"
	c.VersionHistory[0].Tags[0] = "new"
	c.VersionHistory[0].SEOAnalysis.Score = 99
	c.ResearchCandidates[0].Status = CandidateApproved

	if a.AITags[0] != "go" || *a.SEOScore != 70 || a.SEOAnalysis.Critique[0] != "short" {
		t.Error("clone aliases enrichment fields")
	}
	if a.VersionHistory[0].Tags[0] != "old" || a.VersionHistory[0].SEOAnalysis.Score != 50 {
		t.Error("clone aliases version history")
	}
	if a.ResearchCandidates[0].Status != CandidatePending {
		t.Error("clone aliases research candidates")
	}
}

func TestApprovedCandidates(t *testing.T) {
	a := Article{ResearchCandidates: []Candidate{
		{URL: "1", Status: CandidateApproved},
		{URL: "2", Status: CandidateRejected},
		{URL: "3", Status: CandidatePending},
		{URL: "4", Status: CandidateApproved},
	}}
	got := a.ApprovedCandidates()
	if len(got) != 2 || got[0].URL != "1" || got[1].URL != "4" {
		t.Errorf("unexpected approved candidates: %+v", got)
	}
}

func TestErrorWrapping(t *testing.T) {
	if !errors.Is(ErrVersionNotFound, ErrNotFound) {
		t.Error("ErrVersionNotFound should wrap ErrNotFound")
	}

	inner := errors.New("boom")
	var genErr error = &GenerationError{Models: []string{"a"}, Attempts: 3, Err: inner}
	if !errors.Is(genErr, inner) {
		t.Error("GenerationError should unwrap to its cause")
	}

	var malformed *MalformedResponseError
	wrapped := error(&MalformedResponseError{Raw: "nope", Err: inner})
	if !errors.As(wrapped, &malformed) || malformed.Raw != "nope" {
		t.Error("MalformedResponseError should carry raw text")
	}
}
