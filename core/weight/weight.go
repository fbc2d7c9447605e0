// Package weight elicits aggregation weights for a quality model description.
package weight

import (
	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/core/model"
	"github.com/huangsam/tqi/schema"
)

// Weighter produces one WeightResult per aggregation node of a description.
// Results list children in the node's own order.
type Weighter interface {
	Kind() schema.WeighterKind
	ElicitWeights(desc *model.Description) ([]schema.WeightResult, []schema.Warning, error)
}

// Uniform gives every child of a node the same weight.
type Uniform struct{}

var _ Weighter = Uniform{} // Compile-time check

// Kind reports the weighter kind.
func (Uniform) Kind() schema.WeighterKind {
	return schema.UniformWeighter
}

// ElicitWeights assigns 1/k to each of a node's k children.
func (Uniform) ElicitWeights(desc *model.Description) ([]schema.WeightResult, []schema.Warning, error) {
	aggregates := desc.Aggregates()
	results := make([]schema.WeightResult, 0, len(aggregates))
	for _, n := range aggregates {
		results = append(results, uniformResult(n))
	}
	return results, nil, nil
}

func uniformResult(n *model.Node) schema.WeightResult {
	children := append([]string(nil), n.Children...)
	return schema.WeightResult{
		NodeID:   n.ID,
		Children: children,
		Weights:  algo.UniformWeights(len(children)),
	}
}
