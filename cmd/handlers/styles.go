package handlers

import (
	"fmt"
	"strings"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/llm"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func statusBadge(s core.Status) string {
	if s == core.StatusProcessed {
		return successStyle.Render(string(s))
	}
	return warnStyle.Render(string(s))
}

func candidateBadge(s core.CandidateStatus) string {
	switch s {
	case core.CandidateApproved:
		return successStyle.Render("[approved]")
	case core.CandidateRejected:
		return errorStyle.Render("[rejected]")
	default:
		return mutedStyle.Render("[pending]")
	}
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// renderArticleRow is the one-line form used by list.
func renderArticleRow(a *core.Article) string {
	research := string(a.ResearchState.Normalize())
	return fmt.Sprintf("%s  %s  %s  %s", mutedStyle.Render(a.ID), statusBadge(a.Status), mutedStyle.Render(research), a.Title)
}

func renderArticleList(articles []*core.Article) string {
	if len(articles) == 0 {
		return mutedStyle.Render("No articles stored. Run 'blogsmith scrape' to fetch one.")
	}
	rows := make([]string, 0, len(articles)+1)
	rows = append(rows, titleStyle.Render(fmt.Sprintf("%d articles", len(articles))))
	for _, a := range articles {
		rows = append(rows, renderArticleRow(a))
	}
	return strings.Join(rows, "\n")
}

// renderArticle shows the stored state of one article, with the rewrite when present.
func renderArticle(a *core.Article, full bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.Title))
	b.WriteString("\n")

	lines := []string{
		field("ID", a.ID),
		field("URL", a.URL),
		field("Status", statusBadge(a.Status)),
		field("Research", string(a.ResearchState.Normalize())),
	}
	if a.PublishedDate != "" {
		lines = append(lines, field("Published", a.PublishedDate))
	}
	if a.SEOScore != nil {
		lines = append(lines, field("SEO score", fmt.Sprintf("%d/100", *a.SEOScore)))
	}
	if len(a.AITags) > 0 {
		lines = append(lines, field("Tags", strings.Join(a.AITags, ", ")))
	}
	if a.UserTone != "" || len(a.UserKeywords) > 0 {
		lines = append(lines, field("Tone", a.UserTone), field("Keywords", strings.Join(a.UserKeywords, ", ")))
	}
	lines = append(lines, field("Versions", fmt.Sprintf("%d", len(a.VersionHistory))))
	b.WriteString(strings.Join(lines, "\n"))

	if len(a.ResearchCandidates) > 0 {
		b.WriteString("\n\n")
		b.WriteString(renderCandidates(a.ResearchCandidates))
	}
	if a.AISummary != "" {
		b.WriteString("\n\n")
		b.WriteString(boxStyle.Render(a.AISummary))
	}
	if full && a.UpdatedContent != "" {
		b.WriteString("\n\n")
		b.WriteString(a.UpdatedContent)
	}
	if len(a.Citations) > 0 {
		b.WriteString("\n\n")
		b.WriteString(titleStyle.Render("Citations"))
		for i, c := range a.Citations {
			fmt.Fprintf(&b, "\n[%d] %s", i+1, c)
		}
	}
	return b.String()
}

func renderCandidates(candidates []core.Candidate) string {
	if len(candidates) == 0 {
		return mutedStyle.Render("No research candidates.")
	}
	rows := []string{titleStyle.Render("Research candidates")}
	for i, c := range candidates {
		rows = append(rows, fmt.Sprintf("%d. %s %s\n   %s", i+1, candidateBadge(c.Status), c.Title, mutedStyle.Render(c.URL)))
	}
	return strings.Join(rows, "\n")
}

// renderHistory lists snapshots newest first with the timestamp needed by restore.
func renderHistory(a *core.Article) string {
	if len(a.VersionHistory) == 0 {
		return mutedStyle.Render("No previous versions.")
	}
	rows := []string{titleStyle.Render(fmt.Sprintf("%d previous versions", len(a.VersionHistory)))}
	for _, s := range a.VersionHistory {
		when := time.UnixMilli(s.Timestamp).Format("2006-01-02 15:04:05")
		score := "-"
		if s.SEOAnalysis != nil {
			score = fmt.Sprintf("%d", s.SEOAnalysis.Score)
		}
		rows = append(rows, fmt.Sprintf("%d  %s  seo %s  %s", s.Timestamp, mutedStyle.Render(when), score, truncateLine(s.Summary, 60)))
	}
	return strings.Join(rows, "\n")
}

func renderModels(models []llm.ModelInfo) string {
	if len(models) == 0 {
		return mutedStyle.Render("No models available.")
	}
	rows := []string{titleStyle.Render("Models")}
	for _, m := range models {
		mark := mutedStyle.Render("-")
		if m.SupportsGeneration {
			mark = successStyle.Render("✓")
		}
		rows = append(rows, fmt.Sprintf("%s %s  %s", mark, m.Name, mutedStyle.Render(m.DisplayName)))
	}
	return strings.Join(rows, "\n")
}

func truncateLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
