package hierarchy

import (
	"encoding/json"
	"fmt"

	"golang.org/x/net/html"
)

// DumpVersion is written with every hierarchy dump.
const DumpVersion = 1

type Dumper struct {
	Hierarchy  *Registry[*html.Node, HierarchyPlugin]
	Attributes *Registry[*html.Node, AttributePlugin]
}

// NewDumper returns a dumper with the built-in plugins registered.
func NewDumper() *Dumper {
	return &Dumper{
		Hierarchy:  NewRegistry[*html.Node, HierarchyPlugin](DocumentPlugin{}, ElementPlugin{}, TextPlugin{}),
		Attributes: NewRegistry[*html.Node, AttributePlugin](HTMLAttributesPlugin{}, AccessibilityPlugin{}),
	}
}

// Dump walks the tree under root. Children no hierarchy plugin accepts are
// skipped; an unaccepted root is an error.
func (d *Dumper) Dump(root *html.Node) (map[string]any, error) {
	if _, ok := d.Hierarchy.Resolve(root); !ok {
		return nil, fmt.Errorf("no hierarchy plugin accepts %s", describe(root))
	}
	return d.dump(root), nil
}

func (d *Dumper) dump(n *html.Node) map[string]any {
	plugin, _ := d.Hierarchy.Resolve(n)

	out := map[string]any{}
	plugin.Dump(n, out)

	for _, a := range d.Attributes.Matching(n) {
		attributes := map[string]any{}
		a.Put(n, attributes)
		for k, v := range attributes {
			out[a.Namespace()+":"+k] = v
		}
	}

	var nodes []map[string]any
	for _, c := range plugin.Children(n) {
		if _, ok := d.Hierarchy.Resolve(c); !ok {
			continue
		}
		nodes = append(nodes, d.dump(c))
	}
	if len(nodes) > 0 {
		out["children"] = nodes
	}

	return out
}

// DumpJSON encodes the hierarchy under root as a versioned document.
func (d *Dumper) DumpJSON(root *html.Node) ([]byte, error) {
	tree, err := d.Dump(root)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(map[string]any{
		"version":       DumpVersion,
		"viewHierarchy": tree,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode hierarchy: %w", err)
	}
	return data, nil
}

func describe(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	switch n.Type {
	case html.ElementNode:
		return fmt.Sprintf("element <%s>", n.Data)
	case html.TextNode:
		return "text node"
	case html.CommentNode:
		return "comment node"
	case html.DoctypeNode:
		return "doctype node"
	default:
		return fmt.Sprintf("node of type %d", n.Type)
	}
}
