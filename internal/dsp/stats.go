package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// RMS returns the root-mean-square amplitude of x
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

// Peak returns the largest absolute sample value
func Peak(x []float64) float64 {
	var peak float64
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// ZeroCrossingRate returns sign changes per sample
func ZeroCrossingRate(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(x); i++ {
		if math.Signbit(x[i]) != math.Signbit(x[i-1]) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(x))
}

// NoiseFloor returns the mean of the quietest fraction of sample
// magnitudes. At least one sample is always included.
func NoiseFloor(x []float64, fraction float64) float64 {
	if len(x) == 0 {
		return 0
	}
	mags := make([]float64, len(x))
	for i, v := range x {
		mags[i] = math.Abs(v)
	}
	sort.Float64s(mags)

	n := int(float64(len(mags)) * fraction)
	if n < 1 {
		n = 1
	}
	return floats.Sum(mags[:n]) / float64(n)
}

// Energy returns the sum of squared samples
func Energy(x []float64) float64 {
	return floats.Dot(x, x)
}
