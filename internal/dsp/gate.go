package dsp

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrSilentSignal means there is nothing to gate
	ErrSilentSignal = errors.New("signal is silent")
	// ErrStationarySignal means no frames are quiet enough to profile noise from
	ErrStationarySignal = errors.New("signal is stationary, no noise-only frames")
)

// GateOptions configures spectral gating
type GateOptions struct {
	FFTSize       int
	Hop           int
	QuietFraction float64 // share of lowest-energy frames used as the noise profile
	Multiplier    float64 // bins above profile*Multiplier pass untouched
	Floor         float64 // gain applied to gated bins
	Smoothing     int     // frames averaged when smoothing the mask over time
	MinContrast   float64 // median/quiet frame energy ratio required to gate
}

// DefaultGateOptions returns the speech denoising defaults
func DefaultGateOptions() GateOptions {
	return GateOptions{
		FFTSize:       1024,
		Hop:           256,
		QuietFraction: 0.1,
		Multiplier:    1.5,
		Floor:         0.1,
		Smoothing:     3,
		MinContrast:   2,
	}
}

// SpectralGate attenuates time-frequency bins that do not rise above a noise
// profile estimated from the quietest frames. Signals without a measurable
// quiet/loud contrast return ErrStationarySignal and are left alone.
func SpectralGate(x []float64, opts GateOptions) ([]float64, error) {
	spec, err := STFT(x, opts.FFTSize, opts.Hop)
	if err != nil {
		return nil, err
	}
	mags := spec.Magnitudes()
	numFrames := len(mags)
	bins := spec.Bins()

	energies := make([]float64, numFrames)
	for t, frame := range mags {
		energies[t] = floats.Dot(frame, frame)
	}
	order := make([]int, numFrames)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return energies[order[a]] < energies[order[b]]
	})

	quietCount := int(float64(numFrames) * opts.QuietFraction)
	if quietCount < 1 {
		quietCount = 1
	}
	var quietEnergy float64
	profile := make([]float64, bins)
	for _, t := range order[:quietCount] {
		quietEnergy += energies[t]
		floats.Add(profile, mags[t])
	}
	quietEnergy /= float64(quietCount)
	floats.Scale(1/float64(quietCount), profile)

	median := energies[order[numFrames/2]]
	if median <= 1e-12 {
		return nil, ErrSilentSignal
	}
	if quietEnergy > 0 && median/quietEnergy < opts.MinContrast {
		return nil, ErrStationarySignal
	}

	mask := make([][]float64, numFrames)
	for t, frame := range mags {
		row := make([]float64, bins)
		for k, m := range frame {
			if m > profile[k]*opts.Multiplier {
				row[k] = 1
			} else {
				row[k] = opts.Floor
			}
		}
		mask[t] = row
	}
	mask = smoothMask(mask, opts.Smoothing)

	for t, frame := range spec.Frames {
		for k := range frame {
			frame[k] *= complex(mask[t][k], 0)
		}
	}

	return ISTFT(spec), nil
}

// smoothMask averages each bin's gain over a centred window of frames
func smoothMask(mask [][]float64, width int) [][]float64 {
	if width <= 1 || len(mask) == 0 {
		return mask
	}
	half := width / 2
	out := make([][]float64, len(mask))
	for t := range mask {
		lo, hi := t-half, t+half
		if lo < 0 {
			lo = 0
		}
		if hi >= len(mask) {
			hi = len(mask) - 1
		}
		row := make([]float64, len(mask[t]))
		for s := lo; s <= hi; s++ {
			floats.Add(row, mask[s])
		}
		floats.Scale(1/float64(hi-lo+1), row)
		out[t] = row
	}
	return out
}
