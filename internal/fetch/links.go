package fetch

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"blogsmith/internal/core"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// minTitleLength is the shortest anchor text still treated as an article title.
const minTitleLength = 5

// LinkRules decides which discovered links look like article pages.
type LinkRules struct {
	ArticleSegment   string
	ExcludedSegments []string
}

// DefaultLinkRules matches the blog listing layout of the source site.
func DefaultLinkRules() LinkRules {
	return LinkRules{
		ArticleSegment:   "/blogs/",
		ExcludedSegments: []string{"/tag/", "/page/", "/author/"},
	}
}

// ExtractLinks returns the article links found in a listing page, in document order.
// Relative hrefs are resolved against baseURL. Malformed input yields no links.
func ExtractLinks(html, baseURL string, rules LinkRules) []core.LinkCandidate {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	c := newCollector(base, rules)
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		c.add(href, s.Text())
	})
	return c.links
}

// LinksFromFeed applies the ExtractLinks filters to the items of an RSS or Atom feed.
func LinksFromFeed(feedXML, baseURL string, rules LinkRules) ([]core.LinkCandidate, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(feedXML)
	if err != nil {
		return nil, err
	}

	c := newCollector(base, rules)
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		c.add(item.Link, item.Title)
	}
	return c.links, nil
}

type collector struct {
	base  *url.URL
	root  string
	rules LinkRules
	seen  map[string]bool
	links []core.LinkCandidate
}

func newCollector(base *url.URL, rules LinkRules) *collector {
	return &collector{
		base:  base,
		root:  strings.TrimSuffix(base.String(), "/"),
		rules: rules,
		seen:  make(map[string]bool),
	}
}

func (c *collector) add(href, text string) {
	title := strings.TrimSpace(text)
	if utf8.RuneCountInString(title) <= minTitleLength {
		return
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return
	}
	resolved := c.base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return
	}
	link := resolved.String()

	if !c.rules.accepts(link, c.root) || c.seen[link] {
		return
	}
	c.seen[link] = true
	c.links = append(c.links, core.LinkCandidate{Title: title, URL: link})
}

func (r LinkRules) accepts(link, root string) bool {
	if r.ArticleSegment != "" && !strings.Contains(link, r.ArticleSegment) {
		return false
	}
	for _, segment := range r.ExcludedSegments {
		if strings.Contains(link, segment) {
			return false
		}
	}
	return strings.TrimSuffix(link, "/") != root
}
