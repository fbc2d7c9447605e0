package algo

import (
	"testing"

	"github.com/huangsam/tqi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{"empty", nil, 50, 0},
		{"single", []float64{4}, 90, 4},
		{"median odd", []float64{3, 1, 2}, 50, 2},
		{"median even", []float64{1, 2, 3, 4}, 50, 2.5},
		{"min", []float64{5, 1, 9}, 0, 1},
		{"max", []float64{5, 1, 9}, 100, 9},
		{"interpolated", []float64{0, 10, 20, 30, 40}, 10, 4},
		{"clamped above", []float64{1, 2}, 150, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Percentile(tt.values, tt.p), 1e-12)
		})
	}
}

func TestPercentile_DoesNotMutate(t *testing.T) {
	values := []float64{3, 1, 2}
	_ = Percentile(values, 50)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestNewThresholdDeriver(t *testing.T) {
	d, err := NewThresholdDeriver(schema.PercentilePolicy, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.PercentilePolicy, d.Name())
	assert.Equal(t, len(DefaultPercentiles), d.Size())

	d, err = NewThresholdDeriver(schema.MinMaxPolicy, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, schema.MinMaxPolicy, d.Name())
	assert.Equal(t, 2, d.Size())

	d, err = NewThresholdDeriver(schema.QuartilePolicy, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Size())

	_, err = NewThresholdDeriver(schema.PercentilePolicy, []float64{-1, 50})
	assert.Error(t, err)

	_, err = NewThresholdDeriver("mystery", nil)
	assert.Error(t, err)
}

func TestPercentileDeriver_Derive(t *testing.T) {
	d, err := NewThresholdDeriver(schema.PercentilePolicy, []float64{100, 0, 50})
	require.NoError(t, err)

	samples := []float64{8, 2, 4, 6, 0}
	got := d.Derive(samples)
	assert.Equal(t, []float64{0, 4, 8}, got, "cuts are sorted so the array is ascending")
	assert.Equal(t, got, d.Derive(samples), "derivation is deterministic")

	assert.Equal(t, []float64{0, 0, 0}, d.Derive(nil))
}

func TestOrient(t *testing.T) {
	asc := []float64{0, 10, 20}
	assert.Equal(t, []float64{0, 10, 20}, Orient(asc, true))
	assert.Equal(t, []float64{20, 10, 0}, Orient(asc, false))
	assert.Equal(t, []float64{0, 10, 20}, asc, "input is not modified")
}
