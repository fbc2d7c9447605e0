package model

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/huangsam/tqi/schema"
)

// Description is an uncalibrated quality model: its shape without thresholds or weights.
// It is immutable once built and safe for concurrent reads.
type Description struct {
	name  string
	nodes map[string]*Node
	ids   []string
	root  string
}

// NewDescription validates the nodes and builds the arena.
func NewDescription(name string, nodes []*Node) (*Description, error) {
	d := &Description{name: name, nodes: make(map[string]*Node, len(nodes))}

	for _, n := range nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("%w: node without id", schema.ErrInvalidModel)
		}
		if _, ok := schema.ValidNodeKinds[n.Kind]; !ok {
			return nil, fmt.Errorf("%w: node %q has unknown kind '%s'", schema.ErrInvalidModel, n.ID, n.Kind)
		}
		if _, dup := d.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", schema.ErrInvalidModel, n.ID)
		}
		if n.IsRoot() {
			if d.root != "" {
				return nil, fmt.Errorf("%w: more than one tqi node (%q, %q)", schema.ErrInvalidModel, d.root, n.ID)
			}
			d.root = n.ID
		}
		d.nodes[n.ID] = n.clone()
	}

	if d.root == "" {
		return nil, fmt.Errorf("%w: model has no tqi node", schema.ErrInvalidModel)
	}

	for _, n := range d.nodes {
		if err := d.validateEdges(n); err != nil {
			return nil, err
		}
	}

	d.ids = slices.Sorted(maps.Keys(d.nodes))
	return d, nil
}

// validateEdges checks a node's children exist and sit strictly below it, which also rules out cycles.
func (d *Description) validateEdges(n *Node) error {
	if n.IsMeasure() {
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: measure %q cannot have children", schema.ErrInvalidModel, n.ID)
		}
		return nil
	}
	if len(n.Diagnostics) > 0 {
		return fmt.Errorf("%w: %s %q cannot reference diagnostics", schema.ErrInvalidModel, n.Kind, n.ID)
	}

	seen := make(map[string]struct{}, len(n.Children))
	for _, childID := range n.Children {
		child, ok := d.nodes[childID]
		if !ok {
			return fmt.Errorf("%w: %q is a child of %q", schema.ErrNodeNotFound, childID, n.ID)
		}
		if _, dup := seen[childID]; dup {
			return fmt.Errorf("%w: %q lists child %q twice", schema.ErrInvalidModel, n.ID, childID)
		}
		seen[childID] = struct{}{}
		if schema.KindRank(child.Kind) <= schema.KindRank(n.Kind) {
			return fmt.Errorf("%w: %s %q cannot be a child of %s %q", schema.ErrInvalidModel, child.Kind, childID, n.Kind, n.ID)
		}
	}
	return nil
}

// Name returns the model name.
func (d *Description) Name() string {
	return d.name
}

// Node looks up a node by id.
func (d *Description) Node(id string) (*Node, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, schema.NodeError(schema.ErrNodeNotFound, id)
	}
	return n, nil
}

// Has reports whether a node with the id exists.
func (d *Description) Has(id string) bool {
	_, ok := d.nodes[id]
	return ok
}

// Children returns the children of a node in declaration order.
func (d *Description) Children(id string) ([]*Node, error) {
	n, err := d.Node(id)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(n.Children))
	for _, childID := range n.Children {
		child, err := d.Node(childID)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Root returns the TQI node.
func (d *Description) Root() *Node {
	return d.nodes[d.root]
}

// Nodes returns every node sorted by id.
func (d *Description) Nodes() []*Node {
	out := make([]*Node, 0, len(d.ids))
	for _, id := range d.ids {
		out = append(out, d.nodes[id])
	}
	return out
}

// Measures returns every measure sorted by id.
func (d *Description) Measures() []*Node {
	return d.filter(func(n *Node) bool { return n.IsMeasure() })
}

// Aggregates returns every aggregation node sorted by id.
func (d *Description) Aggregates() []*Node {
	return d.filter(func(n *Node) bool { return n.IsAggregate() })
}

func (d *Description) filter(keep func(*Node) bool) []*Node {
	var out []*Node
	for _, id := range d.ids {
		if n := d.nodes[id]; keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// BottomUp returns node ids ordered so every child precedes its parents.
func (d *Description) BottomUp() []string {
	ids := slices.Clone(d.ids)
	sort.SliceStable(ids, func(i, j int) bool {
		return schema.KindRank(d.nodes[ids[i]].Kind) > schema.KindRank(d.nodes[ids[j]].Kind)
	})
	return ids
}

// DiagnosticIDs returns every diagnostic id referenced by a measure, including normalizers.
func (d *Description) DiagnosticIDs() []string {
	set := make(map[string]struct{})
	for _, m := range d.Measures() {
		for _, id := range m.Diagnostics {
			set[id] = struct{}{}
		}
		if m.NormalizeBy != "" {
			set[m.NormalizeBy] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Trim drops nodes unreachable from the TQI and aggregation nodes left without children.
// The receiver is not modified; one warning is returned per removed node.
func (d *Description) Trim() (*Description, []schema.Warning) {
	reachable := make(map[string]struct{})
	var visit func(id string)
	visit = func(id string) {
		if _, ok := reachable[id]; ok {
			return
		}
		reachable[id] = struct{}{}
		for _, c := range d.nodes[id].Children {
			visit(c)
		}
	}
	visit(d.root)

	kept := make(map[string]*Node, len(reachable))
	var warnings []schema.Warning
	for _, id := range d.ids {
		if _, ok := reachable[id]; ok {
			kept[id] = d.nodes[id].clone()
			continue
		}
		warnings = append(warnings, schema.Warning{Kind: schema.TrimmedNodeWarning, Subject: id, Message: "not reachable from the tqi"})
	}

	// Removing an empty aggregate can empty its parent, so repeat until stable.
	for changed := true; changed; {
		changed = false
		for _, id := range slices.Sorted(maps.Keys(kept)) {
			n := kept[id]
			if !n.IsAggregate() || n.IsRoot() || len(n.Children) > 0 {
				continue
			}
			delete(kept, id)
			warnings = append(warnings, schema.Warning{Kind: schema.TrimmedNodeWarning, Subject: id, Message: "aggregation node has no children"})
			for _, parent := range kept {
				parent.Children = slices.DeleteFunc(parent.Children, func(c string) bool { return c == id })
			}
			changed = true
		}
	}

	trimmed := &Description{name: d.name, nodes: kept, root: d.root}
	trimmed.ids = slices.Sorted(maps.Keys(kept))
	return trimmed, warnings
}
