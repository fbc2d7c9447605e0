// Package model holds the quality model hierarchy: an arena of nodes keyed by id,
// the uncalibrated Description and the calibrated Model built from it.
package model

import "github.com/huangsam/tqi/schema"

// Node is a single entry in the hierarchy. Aggregation nodes reference children by id;
// measures reference the diagnostic ids they draw their raw value from.
// Nodes owned by a Description must not be modified.
type Node struct {
	ID          string
	Kind        schema.NodeKind
	Description string
	Children    []string
	Diagnostics []string
	Positive    bool   // measures only: a higher raw value is better
	NormalizeBy string // measures only: diagnostic id used as divisor, e.g. loc
}

// IsMeasure reports whether the node is a leaf scored from diagnostics.
func (n *Node) IsMeasure() bool {
	return n.Kind == schema.MeasureKind
}

// IsAggregate reports whether the node is scored from the weighted sum of its children.
func (n *Node) IsAggregate() bool {
	return n.Kind != schema.MeasureKind
}

// IsRoot reports whether the node is the TQI.
func (n *Node) IsRoot() bool {
	return n.Kind == schema.TQIKind
}

// clone returns a deep copy of the node.
func (n *Node) clone() *Node {
	c := *n
	c.Children = append([]string(nil), n.Children...)
	c.Diagnostics = append([]string(nil), n.Diagnostics...)
	return &c
}
