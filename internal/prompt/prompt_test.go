package prompt

import (
	"fmt"
	"strings"
	"testing"

	"blogsmith/internal/core"
)

func intPtr(v int) *int { return &v }

func TestReadabilityBand(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "simple"},
		{30, "simple"},
		{31, "general audience"},
		{70, "general audience"},
		{71, "academic/expert"},
		{100, "academic/expert"},
	}
	for _, tt := range tests {
		if got := ReadabilityBand(tt.level); !strings.Contains(got, tt.want) {
			t.Errorf("ReadabilityBand(%d) = %q, want it to mention %q", tt.level, got, tt.want)
		}
	}
}

func TestOptionalDirectivesOmitted(t *testing.T) {
	in := Input{Title: "Plain", Content: "Body"}
	for name, d := range map[string]Directive{
		"research":    Research,
		"siblings":    Siblings,
		"tone":        Tone,
		"keywords":    Keywords,
		"readability": Readability,
		"custom":      CustomInstructions,
		"language":    Language,
	} {
		if got := d(in); got != "" {
			t.Errorf("%s directive should be empty without input, got %q", name, got)
		}
	}

	out := Compose(in)
	for _, unwanted := range []string{"competitorGapAnalysis", "footnote", "Research Context", "Language:"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("prompt without research should not contain %q", unwanted)
		}
	}
	for _, wanted := range []string{"summary", "rewrittenContent", "3-5", "critique"} {
		if !strings.Contains(out, wanted) {
			t.Errorf("prompt should contain %q", wanted)
		}
	}
}

func TestComposeWithResearchAndConfig(t *testing.T) {
	in := Input{
		Title:   "Chatbots",
		URL:     "https://site.example/blogs/chatbots/",
		Content: "Original body",
		Config: core.GenerationConfig{
			Tone:             "witty",
			Keywords:         []string{"ai", " ", "support"},
			CustomPrompt:     "Mention pricing tiers.",
			TargetLanguage:   "Spanish",
			ReadabilityLevel: intPtr(20),
		},
		Research: "--- SOURCE [1]: https://a.example/ ---\nAlpha",
		Siblings: []Sibling{{Title: "Other post", URL: "https://site.example/blogs/other/"}},
	}
	out := Compose(in)

	for _, wanted := range []string{
		"--- SOURCE [1]: https://a.example/ ---",
		"witty tone",
		"ai, support.",
		"simple language",
		"Mention pricing tiers.",
		"in Spanish",
		"numbered footnotes",
		"competitorGapAnalysis",
		"- Other post: https://site.example/blogs/other/",
		"Never force a link",
	} {
		if !strings.Contains(out, wanted) {
			t.Errorf("prompt missing %q", wanted)
		}
	}

	if strings.Index(out, "Research Context") > strings.Index(out, "Output Format") {
		t.Error("research should come before the output contract")
	}
}

func TestContentTruncated(t *testing.T) {
	long := strings.Repeat("é", MaxContentChars+100)
	got := Content(Input{Content: long})
	if strings.Count(got, "é") != MaxContentChars {
		t.Errorf("expected %d characters of content, got %d", MaxContentChars, strings.Count(got, "é"))
	}
	if !strings.Contains(got, "(truncated)") {
		t.Error("truncated content should be marked")
	}
}

func TestInputForSiblings(t *testing.T) {
	self := &core.Article{ID: "self", URL: "https://site.example/blogs/self/", Title: "Self", OriginalContent: "x"}
	others := []*core.Article{self}
	for i := 0; i < MaxSiblings+10; i++ {
		others = append(others, &core.Article{ID: fmt.Sprint(i), Title: fmt.Sprintf("Post %d", i), URL: fmt.Sprintf("https://site.example/blogs/p%d/", i)})
	}

	in := InputFor(self, "", others)
	if len(in.Siblings) != MaxSiblings {
		t.Fatalf("expected %d siblings, got %d", MaxSiblings, len(in.Siblings))
	}
	for _, s := range in.Siblings {
		if s.URL == self.URL {
			t.Error("article should not list itself as a sibling")
		}
	}
	if in.Siblings[0].Title != "Post 0" {
		t.Errorf("siblings should keep input order, got %q first", in.Siblings[0].Title)
	}
}

func TestSiblingsDirectiveSkipsSelf(t *testing.T) {
	in := Input{
		URL:      "https://site.example/blogs/a/",
		Siblings: []Sibling{{Title: "A", URL: "https://site.example/blogs/a/"}},
	}
	if got := Siblings(in); got != "" {
		t.Errorf("expected no siblings section, got %q", got)
	}
}

func TestComposeWithSkipsEmptySections(t *testing.T) {
	got := ComposeWith(Input{}, func(Input) string { return "one" }, func(Input) string { return "  " }, func(Input) string { return "two" })
	if got != "one\n\ntwo" {
		t.Errorf("unexpected composition %q", got)
	}
}
