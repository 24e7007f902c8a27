package common

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText gets all text content from an HTML node and its children,
// skipping script and style elements and collapsing whitespace.
func ExtractText(node *html.Node) string {
	var parts []string

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, strings.Join(strings.Fields(t), " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(node)
	return strings.Join(parts, " ")
}

// LooksLikeHTML reports whether an upstream body is an HTML page rather than JSON or text.
func LooksLikeHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	trimmed := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(trimmed, "<!doctype html") || strings.HasPrefix(trimmed, "<html")
}

// FlattenHTML returns the visible text of an HTML document. Bodies that are
// not HTML, or fail to parse, are returned unchanged.
func FlattenHTML(contentType, body string) string {
	if !LooksLikeHTML(contentType, body) {
		return body
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return body
	}

	if text := ExtractText(doc); text != "" {
		return text
	}
	return body
}
