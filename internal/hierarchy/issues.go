package hierarchy

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

type Issue struct {
	Check   string `json:"checkName"`
	Path    string `json:"path"`
	Element string `json:"element"`
	Message string `json:"message"`
}

// Issues runs the accessibility checks over the tree under root. Paths look
// like /html[0]/body[1]/img[0], indexed among element siblings.
func Issues(root *html.Node) []Issue {
	labelled := map[string]bool{}
	walk(root, "", func(n *html.Node, path string) bool {
		if n.Data == "label" {
			if target := attr(n, "for"); target != "" {
				labelled[target] = true
			}
		}
		return true
	})

	issues := []Issue{}
	walk(root, "", func(n *html.Node, path string) bool {
		if attr(n, "aria-hidden") == "true" {
			return false
		}
		switch n.Data {
		case "img":
			if !hasAttr(n, "alt") && attr(n, "aria-label") == "" {
				issues = append(issues, Issue{
					Check:   "ImageMissingAlternativeText",
					Path:    path,
					Element: n.Data,
					Message: "image has no alt text",
				})
			}
		case "a", "button":
			if accessibleName(n) == "" {
				issues = append(issues, Issue{
					Check:   "MissingAccessibleName",
					Path:    path,
					Element: n.Data,
					Message: fmt.Sprintf("<%s> has no text or aria-label", n.Data),
				})
			}
		case "input", "select", "textarea":
			switch attr(n, "type") {
			case "hidden", "submit", "button", "reset", "image":
				return true
			}
			if attr(n, "aria-label") == "" && attr(n, "aria-labelledby") == "" &&
				!labelled[attr(n, "id")] && !insideLabel(n) {
				issues = append(issues, Issue{
					Check:   "InputMissingLabel",
					Path:    path,
					Element: n.Data,
					Message: fmt.Sprintf("<%s> has no associated label", n.Data),
				})
			}
		}
		return true
	})
	return issues
}

// IssuesJSON encodes the result of Issues as {"axIssues": [...]}.
func IssuesJSON(root *html.Node) ([]byte, error) {
	data, err := json.MarshalIndent(map[string]any{
		"axIssues": Issues(root),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode accessibility issues: %w", err)
	}
	return data, nil
}

// walk visits every element under n. Returning false from visit skips the subtree.
func walk(n *html.Node, path string, visit func(n *html.Node, path string) bool) {
	if n.Type == html.ElementNode && !visit(n, path) {
		return
	}

	childIndex := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		childPath := path
		if c.Type == html.ElementNode {
			childPath = fmt.Sprintf("%s/%s[%d]", path, c.Data, childIndex)
			childIndex++
		}
		walk(c, childPath, visit)
	}
}

func insideLabel(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, "label") {
			return true
		}
	}
	return false
}
