package fetch

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		fallback  string
		wantTitle string
		wantBody  string
	}{
		{
			name:      "h1 and paragraphs",
			html:      `<h1> Scaling support teams </h1><p>Short one.</p><p>This paragraph is long enough to keep.</p><p>  Another paragraph that is long enough.  </p>`,
			fallback:  "Listing title",
			wantTitle: "Scaling support teams",
			wantBody:  "This paragraph is long enough to keep.\n\nAnother paragraph that is long enough.",
		},
		{
			name:      "short h1 falls back",
			html:      `<h1>Hi</h1><p>This paragraph is long enough to keep.</p>`,
			fallback:  "Listing title",
			wantTitle: "Listing title",
			wantBody:  "This paragraph is long enough to keep.",
		},
		{
			name:      "missing h1 falls back",
			html:      `<p>This paragraph is long enough to keep.</p>`,
			fallback:  "Listing title",
			wantTitle: "Listing title",
			wantBody:  "This paragraph is long enough to keep.",
		},
		{
			name:      "no paragraphs",
			html:      `<h1>Only a heading here</h1><div>Text outside of paragraphs entirely.</div>`,
			fallback:  "Listing title",
			wantTitle: "Only a heading here",
			wantBody:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractContent(tt.html, tt.fallback)
			if got.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

func TestExtractExcerpt(t *testing.T) {
	html := `<html><body>
		<header>Site header</header>
		<nav>Menu</nav>
		<main><p>Main text</p></main>
		<article>
			<p>Article   body
			text</p>
			<script>var x = 1;</script>
			<div class="ads">Buy now</div>
			<div class="comments">First!</div>
		</article>
		<footer>Footer</footer>
	</body></html>`

	if got := ExtractExcerpt(html, 100); got != "Article body text" {
		t.Errorf("excerpt = %q", got)
	}
}

func TestExtractExcerptFallsBackToBody(t *testing.T) {
	html := `<html><body><nav>Menu</nav><div>Plain body text</div></body></html>`
	if got := ExtractExcerpt(html, 100); got != "Plain body text" {
		t.Errorf("excerpt = %q", got)
	}
}

func TestExtractExcerptLimit(t *testing.T) {
	html := "<article>" + strings.Repeat("é", 3000) + "</article>"
	got := ExtractExcerpt(html, 2000)
	if n := utf8.RuneCountInString(got); n != 2000 {
		t.Errorf("expected 2000 runes, got %d", n)
	}
	if !utf8.ValidString(got) {
		t.Error("excerpt cut a rune in half")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate with no limit = %q", got)
	}
}
