package render

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTML renders an HTML document by keeping the contents of <body> and
// dropping elements the wiki cannot store.
type HTML struct{}

func (h *HTML) Render(src []byte, filename string) (string, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html %s: %w", filename, err)
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		stripElements(c)
		if skipElement(c) {
			continue
		}
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render html %s: %w", filename, err)
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

func skipElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return n.Type == html.CommentNode
	}
	switch n.Data {
	case "script", "style", "nav", "footer", "header", "head":
		return true
	}
	return false
}

// stripElements removes skipped descendants of n in place.
func stripElements(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if skipElement(c) {
			n.RemoveChild(c)
		} else {
			stripElements(c)
		}
		c = next
	}
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
