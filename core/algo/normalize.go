package algo

import "sort"

// Normalize maps a raw measure value onto [0, 1] by piecewise linear interpolation over the
// thresholds. Threshold i scores i/(k-1). Ascending thresholds reward high values and descending
// thresholds reward low values; values beyond either end clamp. A flat array cannot carry a
// direction, so higherIsBetter decides which side of it scores 1.
func Normalize(value float64, thresholds []float64, higherIsBetter bool) float64 {
	k := len(thresholds)
	if k == 0 {
		return 0
	}

	first, last := thresholds[0], thresholds[k-1]
	switch {
	case first < last:
		return interpolate(value, thresholds)
	case first > last:
		negated := make([]float64, k)
		for i, t := range thresholds {
			negated[i] = -t
		}
		return interpolate(-value, negated)
	case higherIsBetter:
		if value >= first {
			return 1
		}
		return 0
	default:
		if value <= first {
			return 1
		}
		return 0
	}
}

// interpolate expects non-decreasing thresholds with t[0] < t[k-1].
func interpolate(v float64, t []float64) float64 {
	k := len(t)
	if v < t[0] {
		return 0
	}
	if v >= t[k-1] {
		return 1
	}
	// largest i with t[i] <= v; always below k-1 here
	i := sort.Search(k, func(j int) bool { return t[j] > v }) - 1
	frac := (v - t[i]) / (t[i+1] - t[i])
	return (float64(i) + frac) / float64(k-1)
}

// Monotonic reports whether thresholds are entirely non-decreasing or entirely non-increasing.
func Monotonic(thresholds []float64) bool {
	up, down := true, true
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] < thresholds[i-1] {
			up = false
		}
		if thresholds[i] > thresholds[i-1] {
			down = false
		}
	}
	return up || down
}

// OrderedFor reports whether thresholds are monotonic in the direction of "better":
// ascending when higherIsBetter, descending otherwise. Flat arrays carry no direction
// and are accepted either way.
func OrderedFor(thresholds []float64, higherIsBetter bool) bool {
	if !Monotonic(thresholds) {
		return false
	}
	if len(thresholds) < 2 {
		return true
	}
	first, last := thresholds[0], thresholds[len(thresholds)-1]
	if higherIsBetter {
		return first <= last
	}
	return first >= last
}
