package helpers

import (
	"bytes"
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NoContent replaces an excerpt that would otherwise be empty, so downstream
// synthesis always receives a non-empty token.
const NoContent = "No content"

// DefaultMaxChars caps fetched excerpts.
const DefaultMaxChars = 3000

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// StrictHTMLPolicy returns a singleton bluemonday policy that strips every HTML
// element and attribute and drops script/style bodies entirely.
func StrictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeHTMLStrict removes every HTML tag from s and decodes entities,
// yielding the plain text a reader would see.
func SanitizeHTMLStrict(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(StrictHTMLPolicy().Sanitize(s)))
}

// PlainText reduces an HTML document to a bounded plain-text excerpt: the
// visible text of <body>, whitespace collapsed, truncated to maxChars runes.
// It never returns the empty string.
func PlainText(doc string, maxChars int) string {
	return Excerpt(SanitizeHTMLStrict(BodyHTML(doc)), maxChars)
}

// BodyHTML returns the inner markup of the document's <body>. Documents that
// fail to parse, or have no body, are returned as-is.
func BodyHTML(doc string) string {
	root, err := xhtml.Parse(strings.NewReader(doc))
	if err != nil {
		return doc
	}
	body := findBody(root)
	if body == nil {
		return doc
	}
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := xhtml.Render(&buf, c); err != nil {
			return doc
		}
	}
	return buf.String()
}

func findBody(n *xhtml.Node) *xhtml.Node {
	if n.Type == xhtml.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// Excerpt collapses whitespace runs to single spaces, trims, truncates to
// maxChars runes and falls back to NoContent.
func Excerpt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = Truncate(CollapseWhitespace(text), maxChars)
	if text == "" {
		return NoContent
	}
	return text
}

// CollapseWhitespace replaces every run of whitespace with one space and trims.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate cuts s to at most n runes, trimming a trailing space left by the cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimRightFunc(s[:i], unicode.IsSpace)
		}
		count++
	}
	return s
}
