package fetch

import (
	"strings"
	"unicode/utf8"

	"blogsmith/internal/core"

	"github.com/PuerkitoBio/goquery"
)

// minParagraphLength filters out captions, bylines and button labels.
const minParagraphLength = 20

// noiseSelectors are removed before an excerpt is taken.
const noiseSelectors = "script, style, nav, footer, header, aside, .ads, .comments"

// ExtractContent pulls the title and paragraph body out of an article page.
// The fallback title is used when the page has no usable h1.
// An empty Body means extraction failed and the result must not be stored.
func ExtractContent(html, fallbackTitle string) core.ExtractedContent {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return core.ExtractedContent{Title: fallbackTitle}
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if utf8.RuneCountInString(title) <= minTitleLength {
		title = fallbackTitle
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) > minParagraphLength {
			paragraphs = append(paragraphs, text)
		}
	})

	return core.ExtractedContent{
		Title: title,
		Body:  strings.Join(paragraphs, "\n\n"),
	}
}

// ExtractExcerpt reduces a page to a whitespace-collapsed text excerpt of at most limit characters.
// Text is taken from article, then main, then body.
func ExtractExcerpt(html string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(noiseSelectors).Remove()

	var text string
	for _, selector := range []string{"article", "main", "body"} {
		if sel := doc.Find(selector); sel.Length() > 0 {
			text = sel.Text()
			if strings.TrimSpace(text) != "" {
				break
			}
		}
	}

	return Truncate(strings.Join(strings.Fields(text), " "), limit)
}

// Truncate cuts s to at most limit runes. A non-positive limit returns s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
