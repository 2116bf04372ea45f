// Package prompt builds the rewrite instructions sent to the language model.
package prompt

import (
	"fmt"
	"strings"

	"blogsmith/internal/core"
	"blogsmith/internal/fetch"
)

const (
	// MaxContentChars bounds the original article text included in a prompt.
	MaxContentChars = 4000

	// MaxSiblings bounds the interlinking candidates listed in a prompt.
	MaxSiblings = 50
)

// Sibling is another stored article the rewrite may link to.
type Sibling struct {
	Title string
	URL   string
}

// Input is everything a prompt is built from.
type Input struct {
	Title    string
	URL      string
	Content  string
	Config   core.GenerationConfig
	Research string
	Siblings []Sibling
}

// HasResearch reports whether research context was supplied.
func (in Input) HasResearch() bool {
	return strings.TrimSpace(in.Research) != ""
}

// InputFor assembles an Input from an article, its research text and the other stored articles.
func InputFor(a *core.Article, research string, others []*core.Article) Input {
	in := Input{
		Title:    a.Title,
		URL:      a.URL,
		Content:  a.OriginalContent,
		Config:   a.GenerationConfig(),
		Research: research,
	}
	for _, o := range others {
		if o == nil || o.ID == a.ID || o.URL == a.URL {
			continue
		}
		in.Siblings = append(in.Siblings, Sibling{Title: o.Title, URL: o.URL})
		if len(in.Siblings) == MaxSiblings {
			break
		}
	}
	return in
}

// Directive renders one section of the prompt. An empty result omits the section.
type Directive func(Input) string

// Directives is the section order used by Compose.
var Directives = []Directive{
	Role,
	Content,
	Research,
	Siblings,
	Tone,
	Keywords,
	Readability,
	CustomInstructions,
	Language,
	Tasks,
	OutputContract,
}

// Compose renders the full prompt for in.
func Compose(in Input) string {
	return ComposeWith(in, Directives...)
}

// ComposeWith renders in with the given directives, skipping empty sections.
func ComposeWith(in Input, directives ...Directive) string {
	sections := make([]string, 0, len(directives))
	for _, d := range directives {
		if s := strings.TrimSpace(d(in)); s != "" {
			sections = append(sections, s)
		}
	}
	return strings.Join(sections, "\n\n")
}

// Role sets up the editor persona.
func Role(Input) string {
	return "You are an elite content editor and SEO strategist. Rewrite the article below into a polished, " +
		"well-structured piece while keeping its facts accurate."
}

// Content includes the original article, cut to MaxContentChars.
func Content(in Input) string {
	var b strings.Builder
	b.WriteString("**Original Article:**\n")
	if in.Title != "" {
		b.WriteString(fmt.Sprintf("Title: %s\n", in.Title))
	}
	content := fetch.Truncate(strings.TrimSpace(in.Content), MaxContentChars)
	b.WriteString(fmt.Sprintf("\"\"\"\n%s\n\"\"\"", content))
	if len([]rune(in.Content)) > MaxContentChars {
		b.WriteString("\n(truncated)")
	}
	return b.String()
}

// Research includes the labelled source excerpts, when any.
func Research(in Input) string {
	if !in.HasResearch() {
		return ""
	}
	return "**Research Context:**\n" +
		"Use these approved external sources to enrich the rewrite with facts the original lacks. " +
		"Each source is labelled with its number.\n\n" + strings.TrimSpace(in.Research)
}

// Siblings lists other articles available for internal linking.
func Siblings(in Input) string {
	var lines []string
	for _, s := range in.Siblings {
		if s.URL == "" || s.URL == in.URL {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Title, s.URL))
		if len(lines) == MaxSiblings {
			break
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "**Related Articles (for internal linking):**\n" + strings.Join(lines, "\n")
}

// Tone asks for the chosen writing tone.
func Tone(in Input) string {
	tone := strings.TrimSpace(in.Config.Tone)
	if tone == "" {
		return ""
	}
	return fmt.Sprintf("**Tone:** Write in a %s tone.", tone)
}

// Keywords asks for the target keywords to be worked in.
func Keywords(in Input) string {
	var kw []string
	for _, k := range in.Config.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kw = append(kw, k)
		}
	}
	if len(kw) == 0 {
		return ""
	}
	return fmt.Sprintf("**Target Keywords:** %s. Work them in naturally, including in headings where they fit.",
		strings.Join(kw, ", "))
}

// Readability maps the 0-100 readability level to a descriptive audience.
func Readability(in Input) string {
	if in.Config.ReadabilityLevel == nil {
		return ""
	}
	return fmt.Sprintf("**Readability:** Aim for %s.", ReadabilityBand(*in.Config.ReadabilityLevel))
}

// ReadabilityBand describes a readability level.
func ReadabilityBand(level int) string {
	switch {
	case level <= 30:
		return "simple language that anyone can follow, with short sentences"
	case level <= 70:
		return "a general audience, clear and accessible without oversimplifying"
	default:
		return "an academic/expert audience, precise and technical"
	}
}

// CustomInstructions passes the user's free-text instructions through.
func CustomInstructions(in Input) string {
	custom := strings.TrimSpace(in.Config.CustomPrompt)
	if custom == "" {
		return ""
	}
	return "**Additional Instructions:**\n" + custom
}

// Language requires every text field of the response in the target language.
func Language(in Input) string {
	lang := strings.TrimSpace(in.Config.TargetLanguage)
	if lang == "" {
		return ""
	}
	return fmt.Sprintf("**Language:** Write the entire response in %s. Every text field of the JSON, "+
		"including summary, tags, rewrittenContent and the SEO analysis, must be in %s.", lang, lang)
}

// Tasks lists what the model has to produce.
func Tasks(in Input) string {
	tasks := []string{
		"Write a concise 2-sentence summary.",
		"Extract 3-5 relevant tags.",
		"Rewrite the full article in Markdown with clear headers.",
	}
	if in.HasResearch() {
		tasks = append(tasks, "Cite the research sources as numbered footnotes ([1], [2], ...) that follow the SOURCE numbers above, "+
			"and list them at the end of the article.")
	}
	if len(in.Siblings) > 0 {
		tasks = append(tasks, "Add inline Markdown links to related articles only where they are topically relevant. Never force a link.")
	}
	tasks = append(tasks, "Analyze the rewrite for SEO.")

	var b strings.Builder
	b.WriteString("**Tasks:**\n")
	for i, t := range tasks {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, t))
	}
	return b.String()
}

// OutputContract describes the JSON object the model must return.
func OutputContract(in Input) string {
	gap := ""
	if in.HasResearch() {
		gap = ",\n    \"competitorGapAnalysis\": [\"Topics the sources cover that the article does not\"]"
	}
	return "**Output Format:**\nReturn only a JSON object with this shape:\n" +
		"{\n" +
		"  \"summary\": \"...\",\n" +
		"  \"tags\": [\"...\"],\n" +
		"  \"rewrittenContent\": \"...\",\n" +
		"  \"seo\": {\n" +
		"    \"score\": 85,\n" +
		"    \"readability\": \"HighSchool\",\n" +
		"    \"critique\": [\"Use more active voice\"],\n" +
		"    \"keywords\": [\"...\"]" + gap + "\n" +
		"  }\n" +
		"}\n" +
		"The score is an integer from 0 to 100."
}
