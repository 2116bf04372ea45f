package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced article does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionNotFound is returned when no history entry matches a restore timestamp.
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)

	// ErrNoNewContent is returned when a discovery scan exhausts every candidate.
	ErrNoNewContent = errors.New("no new articles found to scrape, try deleting some existing ones")

	// ErrEmptyContent is returned when extraction yields no body text.
	ErrEmptyContent = errors.New("extracted content is empty")

	// ErrInvalidTransition is returned for state changes outside the transition tables.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrBusy is returned when another operation already holds the article.
	ErrBusy = errors.New("article is busy with another operation")

	// ErrNoResearchSources is returned when every approved research source failed to load.
	ErrNoResearchSources = errors.New("no research sources could be fetched")

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// SearchProviderError wraps a failure of the external search provider.
type SearchProviderError struct {
	Provider string
	Err      error
}

func (e *SearchProviderError) Error() string {
	return fmt.Sprintf("search failed (%s): %v", e.Provider, e.Err)
}

func (e *SearchProviderError) Unwrap() error { return e.Err }

// GenerationError is returned when every model and attempt combination is exhausted.
type GenerationError struct {
	Models   []string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts across %d models: %v", e.Attempts, len(e.Models), e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// MalformedResponseError carries raw model output that could not be parsed as the JSON contract.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("invalid JSON response from model: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
