package hierarchy

import (
	"strings"

	"golang.org/x/net/html"
)

// HierarchyPlugin describes one kind of node and which children to descend into.
type HierarchyPlugin interface {
	Accepts(n *html.Node) bool
	Dump(n *html.Node, out map[string]any)
	Children(n *html.Node) []*html.Node
}

// AttributePlugin contributes namespaced attributes to nodes it accepts.
type AttributePlugin interface {
	Accepts(n *html.Node) bool
	Namespace() string
	Put(n *html.Node, out map[string]any)
}

type DocumentPlugin struct{}

func (DocumentPlugin) Accepts(n *html.Node) bool {
	return n != nil && n.Type == html.DocumentNode
}

func (DocumentPlugin) Dump(n *html.Node, out map[string]any) {
	out["class"] = "#document"
}

func (DocumentPlugin) Children(n *html.Node) []*html.Node {
	return children(n)
}

type ElementPlugin struct{}

func (ElementPlugin) Accepts(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

func (ElementPlugin) Dump(n *html.Node, out map[string]any) {
	out["class"] = n.Data
	if id := attr(n, "id"); id != "" {
		out["id"] = id
	}
}

func (ElementPlugin) Children(n *html.Node) []*html.Node {
	return children(n)
}

// TextPlugin accepts text nodes that are not whitespace only.
type TextPlugin struct{}

func (TextPlugin) Accepts(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode && strings.TrimSpace(n.Data) != ""
}

func (TextPlugin) Dump(n *html.Node, out map[string]any) {
	out["class"] = "#text"
	out["text"] = strings.TrimSpace(n.Data)
}

func (TextPlugin) Children(n *html.Node) []*html.Node {
	return nil
}

// HTMLAttributesPlugin copies the element attributes, except id, verbatim.
type HTMLAttributesPlugin struct{}

func (HTMLAttributesPlugin) Accepts(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && len(n.Attr) > 0
}

func (HTMLAttributesPlugin) Namespace() string {
	return "html"
}

func (HTMLAttributesPlugin) Put(n *html.Node, out map[string]any) {
	for _, a := range n.Attr {
		if a.Key == "id" {
			continue
		}
		out[a.Key] = a.Val
	}
}

// AccessibilityPlugin records the accessible name and role of an element.
type AccessibilityPlugin struct{}

func (AccessibilityPlugin) Accepts(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

func (AccessibilityPlugin) Namespace() string {
	return "ax"
}

func (AccessibilityPlugin) Put(n *html.Node, out map[string]any) {
	if role := role(n); role != "" {
		out["role"] = role
	}
	if name := accessibleName(n); name != "" {
		out["name"] = name
	}
	if attr(n, "aria-hidden") == "true" {
		out["hidden"] = true
	}
}

func children(n *html.Node) []*html.Node {
	var nodes []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return nodes
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

var implicitRoles = map[string]string{
	"a":        "link",
	"button":   "button",
	"img":      "img",
	"input":    "textbox",
	"nav":      "navigation",
	"main":     "main",
	"h1":       "heading",
	"h2":       "heading",
	"h3":       "heading",
	"ul":       "list",
	"ol":       "list",
	"li":       "listitem",
	"select":   "combobox",
	"textarea": "textbox",
}

func role(n *html.Node) string {
	if r := attr(n, "role"); r != "" {
		return r
	}
	if n.Data == "input" {
		switch attr(n, "type") {
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "submit", "button", "reset":
			return "button"
		}
	}
	return implicitRoles[n.Data]
}

func accessibleName(n *html.Node) string {
	if label := strings.TrimSpace(attr(n, "aria-label")); label != "" {
		return label
	}
	switch n.Data {
	case "img":
		return strings.TrimSpace(attr(n, "alt"))
	case "input":
		if v := strings.TrimSpace(attr(n, "value")); v != "" && role(n) == "button" {
			return v
		}
		return strings.TrimSpace(attr(n, "placeholder"))
	}
	return textContent(n)
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		case html.ElementNode:
			if n.Data == "img" {
				if alt := strings.TrimSpace(attr(n, "alt")); alt != "" {
					if b.Len() > 0 {
						b.WriteByte(' ')
					}
					b.WriteString(alt)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
