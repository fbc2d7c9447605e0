package model

import "github.com/huangsam/tqi/schema"

// RawValue is the unnormalized value of a measure for one project.
type RawValue struct {
	Value             float64
	Present           bool // at least one of the measure's diagnostics was reported
	MissingNormalizer bool // normalize_by was set but absent or zero, so no division happened
}

// MeasureValue sums the strategy values of the measure's diagnostics and divides by the
// normalizer when one is configured. Calibration and evaluation both use this rule.
func MeasureValue(n *Node, diags schema.DiagnosticSet) RawValue {
	var rv RawValue
	for _, id := range n.Diagnostics {
		d, ok := diags[id]
		if !ok {
			continue
		}
		rv.Present = true
		rv.Value += d.Value()
	}

	if n.NormalizeBy == "" {
		return rv
	}
	norm, ok := diags[n.NormalizeBy]
	if !ok || norm.Value() == 0 {
		rv.MissingNormalizer = true
		return rv
	}
	rv.Value /= norm.Value()
	return rv
}
