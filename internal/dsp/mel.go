package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cepstral analysis geometry
const (
	MFCCFFTSize = 2048
	MFCCHop     = 512
	MelBands    = 40
	TopDB       = 80.0
	minPower    = 1e-10
)

// HzToMel converts a frequency to the HTK mel scale
func HzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// MelToHz converts an HTK mel value back to Hz
func MelToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// MelFilterbank builds bands triangular filters spanning [fmin, fmax] Hz.
// Each filter is area normalised so wide high bands do not dominate.
func MelFilterbank(sampleRate, fftSize, bands int, fmin, fmax float64) [][]float64 {
	nyquist := float64(sampleRate) / 2
	if fmax <= 0 || fmax > nyquist {
		fmax = nyquist
	}

	// band edge frequencies, evenly spaced in mel
	edges := make([]float64, bands+2)
	floats.Span(edges, HzToMel(fmin), HzToMel(fmax))
	for i, m := range edges {
		edges[i] = MelToHz(m)
	}

	bins := fftSize/2 + 1
	bank := make([][]float64, bands)
	for b := 0; b < bands; b++ {
		lo, centre, hi := edges[b], edges[b+1], edges[b+2]
		norm := 2 / (hi - lo)
		filter := make([]float64, bins)
		for k := 0; k < bins; k++ {
			f := BinFrequency(k, fftSize, sampleRate)
			var w float64
			switch {
			case f > lo && f <= centre:
				w = (f - lo) / (centre - lo)
			case f > centre && f < hi:
				w = (hi - f) / (hi - centre)
			}
			filter[k] = w * norm
		}
		bank[b] = filter
	}
	return bank
}

// PowerToDB converts power values to decibels in place, flooring at
// minPower and clamping everything to within topDB of the maximum.
func PowerToDB(rows [][]float64, topDB float64) {
	peak := math.Inf(-1)
	for _, row := range rows {
		for i, v := range row {
			db := 10 * math.Log10(math.Max(minPower, v))
			row[i] = db
			if db > peak {
				peak = db
			}
		}
	}
	if topDB <= 0 {
		return
	}
	floor := peak - topDB
	for _, row := range rows {
		for i, v := range row {
			if v < floor {
				row[i] = floor
			}
		}
	}
}

// DCT2 computes the first n orthonormal DCT-II coefficients of x
func DCT2(x []float64, n int) []float64 {
	size := len(x)
	if n > size {
		n = size
	}
	out := make([]float64, n)
	if size == 0 {
		return out
	}
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(size)))
		}
		scale := math.Sqrt(2 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1 / float64(size))
		}
		out[k] = sum * scale
	}
	return out
}

// MFCC returns coeffs mel-frequency cepstral coefficients per frame as
// result[c][t]: coefficient c of frame t.
func MFCC(x []float64, sampleRate, coeffs int) ([][]float64, error) {
	spec, err := STFT(x, MFCCFFTSize, MFCCHop)
	if err != nil {
		return nil, err
	}
	power := spec.Power()
	bank := MelFilterbank(sampleRate, MFCCFFTSize, MelBands, 0, 0)

	melSpec := make([][]float64, len(power))
	for t, frame := range power {
		row := make([]float64, MelBands)
		for b, filter := range bank {
			row[b] = floats.Dot(filter, frame)
		}
		melSpec[t] = row
	}
	PowerToDB(melSpec, TopDB)

	out := make([][]float64, coeffs)
	for c := range out {
		out[c] = make([]float64, len(melSpec))
	}
	for t, row := range melSpec {
		for c, v := range DCT2(row, coeffs) {
			out[c][t] = v
		}
	}
	return out, nil
}

// SpectralCentroid returns the magnitude-weighted mean frequency of each
// frame in Hz. Silent frames score 0.
func SpectralCentroid(x []float64, sampleRate, fftSize, hop int) ([]float64, error) {
	spec, err := STFT(x, fftSize, hop)
	if err != nil {
		return nil, err
	}

	mags := spec.Magnitudes()
	freqs := make([]float64, spec.Bins())
	for k := range freqs {
		freqs[k] = BinFrequency(k, fftSize, sampleRate)
	}

	out := make([]float64, len(mags))
	for t, frame := range mags {
		total := floats.Sum(frame)
		if total <= 1e-12 {
			continue
		}
		out[t] = floats.Dot(freqs, frame) / total
	}
	return out, nil
}
