package algo

import (
	"fmt"
	"slices"

	"github.com/huangsam/tqi/schema"
)

// DefaultPercentiles are the cut points used by the percentile policy when none are configured.
var DefaultPercentiles = []float64{10, 50, 90}

// ThresholdDeriver turns the benchmark samples of one measure into an ascending threshold array.
// Implementations must be deterministic for a given sample set.
type ThresholdDeriver interface {
	Name() schema.ThresholdPolicy
	Size() int
	Derive(samples []float64) []float64
}

// NewThresholdDeriver returns the deriver for a policy. Cuts only apply to the percentile policy.
func NewThresholdDeriver(policy schema.ThresholdPolicy, cuts []float64) (ThresholdDeriver, error) {
	switch policy {
	case schema.PercentilePolicy, "":
		if len(cuts) == 0 {
			cuts = DefaultPercentiles
		}
		for _, c := range cuts {
			if c < 0 || c > 100 {
				return nil, fmt.Errorf("percentile cut %.2f must be between 0 and 100", c)
			}
		}
		sorted := slices.Clone(cuts)
		slices.Sort(sorted)
		return &PercentileDeriver{Cuts: sorted}, nil
	case schema.MinMaxPolicy:
		return &PercentileDeriver{Cuts: []float64{0, 100}, policy: schema.MinMaxPolicy}, nil
	case schema.QuartilePolicy:
		return &PercentileDeriver{Cuts: []float64{25, 50, 75}, policy: schema.QuartilePolicy}, nil
	default:
		return nil, fmt.Errorf("unsupported threshold policy '%s'. must be percentile, minmax, quartile", policy)
	}
}

// PercentileDeriver picks fixed percentiles of the sample distribution.
// The min/max and quartile policies are fixed cut sets of the same statistic.
type PercentileDeriver struct {
	Cuts   []float64
	policy schema.ThresholdPolicy
}

var _ ThresholdDeriver = &PercentileDeriver{} // Compile-time check

// Name reports the configured policy.
func (d *PercentileDeriver) Name() schema.ThresholdPolicy {
	if d.policy == "" {
		return schema.PercentilePolicy
	}
	return d.policy
}

// Size is the length of every derived array.
func (d *PercentileDeriver) Size() int {
	return len(d.Cuts)
}

// Derive computes one threshold per cut point, ascending.
func (d *PercentileDeriver) Derive(samples []float64) []float64 {
	out := make([]float64, len(d.Cuts))
	if len(samples) == 0 {
		return out
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	for i, c := range d.Cuts {
		out[i] = percentileSorted(sorted, c)
	}
	return out
}

// Orient returns thresholds in the order evaluation reads them: ascending when a higher raw
// value is better, descending otherwise. The input is not modified.
func Orient(ascending []float64, higherIsBetter bool) []float64 {
	out := slices.Clone(ascending)
	if !higherIsBetter {
		slices.Reverse(out)
	}
	return out
}
