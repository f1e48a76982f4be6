package hierarchy_test

import (
	"encoding/json"
	"screenshot-tests/internal/hierarchy"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

func parse(t *testing.T, s string) *html.Node {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

type buttonPlugin struct {
	hierarchy.ElementPlugin
}

func (buttonPlugin) Accepts(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == "button"
}

func (buttonPlugin) Dump(n *html.Node, out map[string]any) {
	out["class"] = "Button"
}

func TestRegistry(t *testing.T) {
	doc := parse(t, `<button>ok</button>`)
	button := doc.FirstChild.LastChild.FirstChild

	r := hierarchy.NewRegistry[*html.Node, hierarchy.HierarchyPlugin](hierarchy.ElementPlugin{})

	got, ok := r.Resolve(button)
	if !ok {
		t.Fatal("Expected a plugin to accept <button>")
	}
	if _, isElement := got.(hierarchy.ElementPlugin); !isElement {
		t.Errorf("Expected ElementPlugin, got %T", got)
	}

	r.Register(buttonPlugin{})
	r.Register(buttonPlugin{})
	if diff := cmp.Diff(2, len(r.All())); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if !r.Unregister(hierarchy.ElementPlugin{}) {
		t.Fatal("Expected ElementPlugin to be unregistered")
	}
	got, _ = r.Resolve(button)
	if _, isButton := got.(buttonPlugin); !isButton {
		t.Errorf("Expected buttonPlugin, got %T", got)
	}
	if r.Unregister(hierarchy.ElementPlugin{}) {
		t.Error("Expected second Unregister to report false")
	}

	if _, ok := r.Resolve(doc); ok {
		t.Error("Expected no plugin for the document node")
	}
}

func TestDumper(t *testing.T) {
	doc := parse(t, `<html><body><main id="app"><h1 class="title">Hello</h1><!-- note --><img src="a.png" alt="logo"></main></body></html>`)

	got, err := hierarchy.NewDumper().Dump(doc)
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	body := got["children"].([]map[string]any)[0]["children"].([]map[string]any)[1]
	main := body["children"].([]map[string]any)[0]

	want := map[string]any{
		"class":   "main",
		"id":      "app",
		"ax:role": "main",
		"ax:name": "Hello logo",
		"children": []map[string]any{
			{
				"class":      "h1",
				"html:class": "title",
				"ax:role":    "heading",
				"ax:name":    "Hello",
				"children": []map[string]any{
					{"class": "#text", "text": "Hello"},
				},
			},
			{
				"class":    "img",
				"html:src": "a.png",
				"html:alt": "logo",
				"ax:role":  "img",
				"ax:name":  "logo",
			},
		},
	}
	if diff := cmp.Diff(want, main); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	t.Run("UnacceptedRoot", func(t *testing.T) {
		d := hierarchy.NewDumper()
		d.Hierarchy.Unregister(hierarchy.DocumentPlugin{})
		if _, err := d.Dump(doc); err == nil {
			t.Error("Expected error when no plugin accepts the root")
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := hierarchy.NewDumper().DumpJSON(doc)
		if err != nil {
			t.Fatalf("DumpJSON failed: %v", err)
		}
		var decoded struct {
			Version       int            `json:"version"`
			ViewHierarchy map[string]any `json:"viewHierarchy"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if diff := cmp.Diff(1, decoded.Version); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("#document", decoded.ViewHierarchy["class"]); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestIssues(t *testing.T) {
	doc := parse(t, `<html><body>
<img src="a.png">
<img src="b.png" alt="">
<a href="/"></a>
<a href="/x">home</a>
<button aria-label="close"></button>
<label for="email">Email</label><input id="email">
<label>Name <input name="name"></label>
<input name="orphan">
<input type="hidden" name="token">
<div aria-hidden="true"><img src="c.png"></div>
</body></html>`)

	got := hierarchy.Issues(doc)

	want := []hierarchy.Issue{
		{Check: "ImageMissingAlternativeText", Path: "/html[0]/body[1]/img[0]", Element: "img", Message: "image has no alt text"},
		{Check: "MissingAccessibleName", Path: "/html[0]/body[1]/a[2]", Element: "a", Message: "<a> has no text or aria-label"},
		{Check: "InputMissingLabel", Path: "/html[0]/body[1]/input[8]", Element: "input", Message: "<input> has no associated label"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
