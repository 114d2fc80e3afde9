// Package extract turns crawled HTML pages into the plain text the indexer
// tokenizes.
package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Text returns the visible text of an HTML document: every non-blank text
// node outside <script> and <style>, trimmed and joined by single spaces.
// The html parser accepts any input, so malformed markup degrades to
// best-effort text instead of an error.
func Text(page string) string {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var parts []string
	skipDepth := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		skipped := n.Type == html.ElementNode && isInvisible(n.Data)
		if skipped {
			skipDepth++
		}
		if skipDepth == 0 && n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if skipped {
			skipDepth--
		}
	}
	walk(root)
	return strings.Join(parts, " ")
}

func isInvisible(tag string) bool {
	return strings.EqualFold(tag, "script") || strings.EqualFold(tag, "style")
}
