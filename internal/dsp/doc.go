// Package dsp contains the numeric kernels behind analysis and enhancement:
// short-time Fourier transforms, mel cepstra, spectral gating, resampling
// and IIR filtering. Everything operates on mono float64 slices.
package dsp
