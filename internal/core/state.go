package core

import "fmt"

// Status is the article lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
)

// ResearchState tracks the research/enrichment sub-workflow of an article.
type ResearchState string

const (
	ResearchIdle       ResearchState = "idle"
	ResearchSearching  ResearchState = "searching"
	ResearchReviewing  ResearchState = "reviewing"
	ResearchProcessing ResearchState = "processing"
	ResearchComplete   ResearchState = "complete"
)

// CandidateStatus is the human curation state of a research candidate.
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateApproved CandidateStatus = "approved"
	CandidateRejected CandidateStatus = "rejected"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusProcessed},
	StatusProcessed: {StatusProcessed},
}

var researchTransitions = map[ResearchState][]ResearchState{
	ResearchIdle:       {ResearchSearching, ResearchProcessing},
	ResearchSearching:  {ResearchReviewing, ResearchIdle},
	ResearchReviewing:  {ResearchSearching, ResearchProcessing},
	ResearchProcessing: {ResearchComplete, ResearchIdle, ResearchReviewing},
	ResearchComplete:   {ResearchSearching, ResearchProcessing},
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the lifecycle may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates s -> next and returns next.
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: status %q -> %q", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Normalize maps the absent state to idle.
func (r ResearchState) Normalize() ResearchState {
	if r == "" {
		return ResearchIdle
	}
	return r
}

// Valid reports whether r is a known research state. The empty state counts as idle.
func (r ResearchState) Valid() bool {
	_, ok := researchTransitions[r.Normalize()]
	return ok
}

// InFlight reports whether an operation is currently running against the article.
func (r ResearchState) InFlight() bool {
	n := r.Normalize()
	return n == ResearchSearching || n == ResearchProcessing
}

// CanTransition reports whether research may move from r to next.
func (r ResearchState) CanTransition(next ResearchState) bool {
	for _, allowed := range researchTransitions[r.Normalize()] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates r -> next and returns next.
func (r ResearchState) Transition(next ResearchState) (ResearchState, error) {
	if !r.CanTransition(next) {
		return r, fmt.Errorf("%w: research state %q -> %q", ErrInvalidTransition, r.Normalize(), next)
	}
	return next, nil
}

// Valid reports whether c is a known curation state.
func (c CandidateStatus) Valid() bool {
	switch c {
	case CandidatePending, CandidateApproved, CandidateRejected:
		return true
	}
	return false
}

// ParseCandidateStatus validates caller-supplied curation input.
func ParseCandidateStatus(s string) (CandidateStatus, error) {
	c := CandidateStatus(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown candidate status %q", ErrInvalidTransition, s)
	}
	return c, nil
}

// ParseStatus validates caller-supplied lifecycle input.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, s)
	}
	return st, nil
}
