package research

import (
	"context"
	"fmt"
	"strings"

	"blogsmith/internal/core"
	"blogsmith/internal/fetch"
	"blogsmith/internal/logger"
)

// Context is the research material handed to the prompt composer.
type Context struct {
	Text      string
	Citations []string
}

// Empty reports whether no source could be loaded.
func (rc Context) Empty() bool {
	return len(rc.Citations) == 0
}

// BuildContext fetches each approved candidate in order and joins their excerpts into
// numbered source blocks. Sources that fail to load are skipped. Citations list only
// the sources that made it into the text, so footnote numbers match their position.
func (c *Coordinator) BuildContext(ctx context.Context, candidates []core.Candidate) (Context, error) {
	var (
		rc     Context
		blocks []string
	)

	for _, cand := range candidates {
		if cand.Status != core.CandidateApproved {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Context{}, err
		}

		body, err := c.fetcher.Fetch(ctx, cand.URL)
		if err != nil {
			logger.Warn("Failed to fetch research source", "url", cand.URL, "error", err.Error())
			continue
		}
		excerpt := fetch.ExtractExcerpt(body, c.opts.ExcerptChars)
		if excerpt == "" {
			logger.Warn("Research source has no readable text", "url", cand.URL)
			continue
		}

		rc.Citations = append(rc.Citations, cand.URL)
		blocks = append(blocks, fmt.Sprintf("--- SOURCE [%d]: %s ---\n%s", len(rc.Citations), cand.URL, excerpt))
	}

	rc.Text = strings.Join(blocks, "\n\n")
	if rc.Empty() && len(approved(candidates)) > 0 && c.opts.RequireSources {
		return Context{}, core.ErrNoResearchSources
	}
	return rc, nil
}

func approved(candidates []core.Candidate) []core.Candidate {
	a := core.Article{ResearchCandidates: candidates}
	return a.ApprovedCandidates()
}
