package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Document is a flattened page.
type Document struct {
	Title string
	Text  string
}

// FromHTML parses input and returns its title and flat text.
func FromHTML(input []byte) (Document, error) {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}
	return Document{
		Title: collapseSpaces(fold(findTitle(node))),
		Text:  flattenNode(node),
	}, nil
}

// Flatten returns the visible text of an HTML document as one line: every
// text node trimmed, empty ones dropped, the rest joined by a single space.
// Script and style contents are skipped and the result is NFKC folded, so
// no-break spaces and full-width digits match plain ASCII patterns.
func Flatten(input []byte) (string, error) {
	doc, err := FromHTML(input)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

func flattenNode(root *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript", "template":
				return
			}
		case html.TextNode:
			if s := strings.TrimSpace(fold(n.Data)); s != "" {
				parts = append(parts, s)
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return collapseSpaces(strings.Join(parts, " "))
}

func fold(s string) string {
	return norm.NFKC.String(s)
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil && res == nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return res
}

// FindLink returns the href of the first anchor whose text matches pattern,
// resolved against base. The boolean is false when no anchor matches.
func FindLink(input []byte, pattern *regexp.Regexp, base string) (string, bool, error) {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return "", false, fmt.Errorf("parse html: %w", err)
	}
	var href string
	var found bool
	var dfs func(*html.Node)
	dfs = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			if v, ok := attr(n, "href"); ok && pattern.MatchString(flattenNode(n)) {
				href, found = strings.TrimSpace(v), true
				return
			}
		}
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(root)
	if !found {
		return "", false, nil
	}
	resolved, err := resolve(base, href)
	if err != nil {
		return "", true, err
	}
	return resolved, true, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if ref.IsAbs() || base == "" {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
