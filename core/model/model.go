package model

import (
	"fmt"
	"maps"
	"slices"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/schema"
)

// Model is a calibrated quality model. Every measure carries thresholds and every
// aggregation node carries a weight per child. The only ways to obtain one are
// Calibrate and Document.Model, so an uncalibrated model cannot reach evaluation.
type Model struct {
	desc       *Description
	thresholds map[string][]float64
	weights    map[string]map[string]float64
}

// Calibrate writes thresholds (by measure id) and weights (by aggregation node id, then child id)
// onto a description. Ids that name no matching node fail with ErrUnknownMeasureName or
// ErrUnknownNodeName; missing values fail with ErrUncalibratedModel.
func Calibrate(desc *Description, thresholds map[string][]float64, weights map[string]map[string]float64) (*Model, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: no description", schema.ErrUncalibratedModel)
	}

	m := &Model{
		desc:       desc,
		thresholds: make(map[string][]float64, len(thresholds)),
		weights:    make(map[string]map[string]float64, len(weights)),
	}

	for _, id := range slices.Sorted(maps.Keys(thresholds)) {
		n, ok := desc.nodes[id]
		if !ok || !n.IsMeasure() {
			return nil, schema.NodeError(schema.ErrUnknownMeasureName, id)
		}
		t := thresholds[id]
		if !algo.Monotonic(t) {
			return nil, fmt.Errorf("%w: thresholds of %q are not ordered", schema.ErrInvalidModel, id)
		}
		if !algo.OrderedFor(t, n.Positive) {
			return nil, fmt.Errorf("%w: thresholds of %q run against its positive=%t direction", schema.ErrInvalidModel, id, n.Positive)
		}
		m.thresholds[id] = slices.Clone(t)
	}

	for _, id := range slices.Sorted(maps.Keys(weights)) {
		n, ok := desc.nodes[id]
		if !ok || !n.IsAggregate() {
			return nil, schema.NodeError(schema.ErrUnknownNodeName, id)
		}
		byChild := make(map[string]float64, len(weights[id]))
		for _, childID := range slices.Sorted(maps.Keys(weights[id])) {
			if !slices.Contains(n.Children, childID) {
				return nil, fmt.Errorf("%w: %q is not a child of %q", schema.ErrUnknownNodeName, childID, id)
			}
			w := weights[id][childID]
			if w < 0 {
				return nil, fmt.Errorf("%w: weight of %q under %q is negative", schema.ErrInvalidModel, childID, id)
			}
			byChild[childID] = w
		}
		m.weights[id] = byChild
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate is the gate evaluation runs before any work: the TQI, every quality aspect
// and every other aggregation node must carry a weight per child, and every measure
// must carry thresholds.
func (m *Model) Validate() error {
	if m == nil || m.desc == nil {
		return fmt.Errorf("%w: no description", schema.ErrUncalibratedModel)
	}
	// Check the root first so the error names it when nothing is weighted.
	order := append([]*Node{m.desc.Root()}, m.desc.Aggregates()...)
	for _, n := range order {
		ws, ok := m.weights[n.ID]
		if !ok && len(n.Children) > 0 {
			return fmt.Errorf("%w: %s %q has no weights", schema.ErrUncalibratedModel, n.Kind, n.ID)
		}
		for _, c := range n.Children {
			if _, ok := ws[c]; !ok {
				return fmt.Errorf("%w: %s %q has no weight for child %q", schema.ErrUncalibratedModel, n.Kind, n.ID, c)
			}
		}
	}
	for _, n := range m.desc.Measures() {
		if len(m.thresholds[n.ID]) == 0 {
			return fmt.Errorf("%w: measure %q has no thresholds", schema.ErrUncalibratedModel, n.ID)
		}
	}
	return nil
}

// Description returns the shape the model was calibrated from.
func (m *Model) Description() *Description {
	return m.desc
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.desc.Name()
}

// Thresholds returns a copy of a measure's thresholds.
func (m *Model) Thresholds(id string) []float64 {
	return slices.Clone(m.thresholds[id])
}

// Weight returns the weight of child under parent.
func (m *Model) Weight(parent, child string) (float64, bool) {
	w, ok := m.weights[parent][child]
	return w, ok
}

// Weights returns a copy of an aggregation node's weights keyed by child id.
func (m *Model) Weights(id string) map[string]float64 {
	return maps.Clone(m.weights[id])
}
