package dsp

import (
	"fmt"
	"math"
)

// ResampleHalfTaps is the kernel half-width in output-rate zero crossings
const ResampleHalfTaps = 16

// maxPolyphases bounds the precomputed kernel table. Rate pairs with more
// phases than this evaluate the kernel per output sample.
const maxPolyphases = 4096

// tap is one kernel weight at input offset base-k
type tap struct {
	k int
	w float64
}

// Resample converts x from one sample rate to another with a Hann-windowed
// sinc interpolator. When downsampling the kernel cutoff drops to the new
// Nyquist frequency. The output holds ceil(len(x)*to/from) samples.
//
// Output sample n sits at input position n*from/to. Its fractional part
// takes only to/gcd(from, to) distinct values, so the kernel is computed
// once per phase and reused across the signal.
func Resample(x []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", from, to)
	}
	if from == to {
		return append([]float64(nil), x...), nil
	}

	cutoff := math.Min(1, float64(to)/float64(from))
	width := float64(ResampleHalfTaps) / cutoff
	reach := int(math.Ceil(width)) + 1

	g := gcd(from, to)
	phases := to / g

	var table [][]tap
	if phases <= maxPolyphases {
		table = make([][]tap, phases)
		for p := range table {
			table[p] = kernelTaps(nil, float64(p*g)/float64(to), cutoff, width, reach)
		}
	}

	outLen := int((int64(len(x))*int64(to) + int64(from) - 1) / int64(from))
	out := make([]float64, outLen)

	var scratch []tap
	for n := range out {
		num := int64(n) * int64(from)
		base := int(num / int64(to))
		rem := int(num % int64(to))

		var taps []tap
		if table != nil {
			taps = table[rem/g]
		} else {
			scratch = kernelTaps(scratch[:0], float64(rem)/float64(to), cutoff, width, reach)
			taps = scratch
		}

		var sum, weights float64
		for _, t := range taps {
			i := base - t.k
			if i < 0 || i >= len(x) {
				continue
			}
			sum += x[i] * t.w
			weights += t.w
		}
		if weights > 1e-12 {
			out[n] = sum / weights
		}
	}

	return out, nil
}

// kernelTaps appends the weights for an output sample whose input position
// is base+frac. Tap k reads input sample base-k at distance frac+k.
func kernelTaps(dst []tap, frac, cutoff, width float64, reach int) []tap {
	for k := -reach; k <= reach; k++ {
		d := frac + float64(k)
		if math.Abs(d) >= width {
			continue
		}
		w := cutoff * sinc(cutoff*d) * 0.5 * (1 + math.Cos(math.Pi*d/width))
		dst = append(dst, tap{k: k, w: w})
	}
	return dst
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
