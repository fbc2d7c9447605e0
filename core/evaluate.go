package core

import (
	"fmt"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/schema"
)

// Evaluate scores one project's diagnostics against a calibrated model. The model is
// validated before any work. Measures are normalized against their thresholds and every
// aggregation node is the weighted sum of its children, matched by child id. Each node is
// computed once and every intermediate score is kept.
func Evaluate(m *model.Model, diags schema.DiagnosticSet) (*schema.Evaluation, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if diags == nil {
		diags = schema.DiagnosticSet{}
	}

	desc := m.Description()
	order := desc.BottomUp()
	eval := &schema.Evaluation{
		Scores:    make(map[string]float64, len(order)),
		RawValues: make(map[string]float64),
		Kinds:     make(map[string]schema.NodeKind, len(order)),
	}

	for _, id := range order {
		if _, done := eval.Scores[id]; done {
			continue
		}
		n, err := desc.Node(id)
		if err != nil {
			return nil, err
		}
		eval.Kinds[id] = n.Kind

		if n.IsMeasure() {
			rv := model.MeasureValue(n, diags)
			if rv.MissingNormalizer {
				eval.Warnings = append(eval.Warnings, schema.Warning{
					Kind:    schema.MissingNormalizerWarning,
					Subject: id,
					Message: fmt.Sprintf("normalizer %q missing or zero, raw value left undivided", n.NormalizeBy),
				})
			}
			eval.RawValues[id] = rv.Value
			eval.Scores[id] = algo.Normalize(rv.Value, m.Thresholds(id), n.Positive)
			continue
		}

		score, err := aggregate(m, n, eval.Scores)
		if err != nil {
			return nil, err
		}
		eval.Scores[id] = score
	}

	root := desc.Root().ID
	eval.TQI = eval.Scores[root]
	return eval, nil
}

// aggregate computes the weighted sum of a node's already scored children.
func aggregate(m *model.Model, n *model.Node, scores map[string]float64) (float64, error) {
	var total float64
	for _, child := range n.Children {
		s, ok := scores[child]
		if !ok {
			return 0, fmt.Errorf("%w: %q is a child of %q", schema.ErrNodeNotFound, child, n.ID)
		}
		w, ok := m.Weight(n.ID, child)
		if !ok {
			return 0, fmt.Errorf("%w: %q has no weight for child %q", schema.ErrUncalibratedModel, n.ID, child)
		}
		total += w * s
	}
	return total, nil
}
