package site

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Document is one parsed portal page.
type Document struct {
	root *html.Node
}

// ParseDocument parses a portal page body into a Document.
func ParseDocument(body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// LoginError returns the text of the portal's sign-in error panel, or
// "" when the page shows no credential failure.
func (d *Document) LoginError() string {
	node := d.findByID("warnMsgContents")
	if node == nil {
		return ""
	}
	return nodeText(node)
}

// premiseName returns the name of the single modeled premise, or "".
func (d *Document) premiseName() string {
	node := d.findByID("p_singlePremise")
	if node == nil {
		return ""
	}
	return nodeText(node)
}

// signoutHref returns the href of the sign-out link, which carries the
// account's network id as a query parameter.
func (d *Document) signoutHref() string {
	node := d.findByClass("a", "p_signoutlink")
	if node == nil {
		return ""
	}
	return attr(node, "href")
}

// alarmStatus returns the orb's alarm summary line, or "".
func (d *Document) alarmStatus() string {
	node := d.findByID("divOrbTextSummary")
	if node == nil {
		return ""
	}
	return nodeText(node)
}

// zoneRows returns one node per zone row on the orb page.
func (d *Document) zoneRows() []*html.Node {
	var rows []*html.Node
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "p_zoneRow") {
			rows = append(rows, n)
		}
	})
	return rows
}

func (d *Document) findByID(id string) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
		}
	})
	return found
}

func (d *Document) findByClass(element string, class string) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode &&
			n.Data == element && hasClass(n, class) {
			found = n
		}
	})
	return found
}

func findChildByClass(parent *html.Node, class string) *html.Node {
	var found *html.Node
	walk(parent, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && hasClass(n, class) {
			found = n
		}
	})
	return found
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// nodeText returns the concatenated, space-normalized text content of
// a node's subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
