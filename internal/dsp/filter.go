package dsp

import (
	"fmt"
	"math"
)

// Biquad is a second-order IIR section in transposed direct form II
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// NewHighPass designs a Butterworth high-pass section (Q = 1/sqrt2)
func NewHighPass(cutoff float64, sampleRate int) (*Biquad, error) {
	nyquist := float64(sampleRate) / 2
	if sampleRate <= 0 || cutoff <= 0 || cutoff >= nyquist {
		return nil, fmt.Errorf("cutoff %.1f Hz must be in (0, %.1f) for rate %d", cutoff, nyquist, sampleRate)
	}

	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * (1 / math.Sqrt2))
	a0 := 1 + alpha

	return &Biquad{
		b0: (1 + cosW) / 2 / a0,
		b1: -(1 + cosW) / a0,
		b2: (1 + cosW) / 2 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}, nil
}

// Apply filters x into a new slice starting from zero state
func (f *Biquad) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	var z1, z2 float64
	for i, v := range x {
		y := f.b0*v + z1
		z1 = f.b1*v - f.a1*y + z2
		z2 = f.b2*v - f.a2*y
		out[i] = y
	}
	return out
}
