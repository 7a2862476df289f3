package dsp

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Spectrogram is a centered short-time Fourier transform of a mono signal.
// Frames[t][k] is bin k of frame t; each frame holds FFTSize/2+1 bins.
type Spectrogram struct {
	FFTSize int
	Hop     int
	Length  int // samples in the analysed signal
	Frames  [][]complex128
}

// Bins returns the number of frequency bins per frame
func (s *Spectrogram) Bins() int {
	return s.FFTSize/2 + 1
}

// Magnitudes returns |X| for every frame and bin
func (s *Spectrogram) Magnitudes() [][]float64 {
	out := make([][]float64, len(s.Frames))
	for t, frame := range s.Frames {
		row := make([]float64, len(frame))
		for k, c := range frame {
			row[k] = cmplx.Abs(c)
		}
		out[t] = row
	}
	return out
}

// Power returns |X|^2 for every frame and bin
func (s *Spectrogram) Power() [][]float64 {
	out := make([][]float64, len(s.Frames))
	for t, frame := range s.Frames {
		row := make([]float64, len(frame))
		for k, c := range frame {
			row[k] = real(c)*real(c) + imag(c)*imag(c)
		}
		out[t] = row
	}
	return out
}

// BinFrequency returns the centre frequency of bin k in Hz
func BinFrequency(k, fftSize, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(fftSize)
}

// HannWindow returns a Hann window of length n
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)
}

// STFT computes a Hann-windowed transform. The signal is zero padded by
// fftSize/2 on both sides so frame t is centred on sample t*hop, giving
// 1 + len(x)/hop frames.
func STFT(x []float64, fftSize, hop int) (*Spectrogram, error) {
	if fftSize < 2 || hop < 1 || hop > fftSize {
		return nil, fmt.Errorf("invalid STFT geometry: fft size %d, hop %d", fftSize, hop)
	}

	pad := fftSize / 2
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)

	numFrames := 1 + (len(padded)-fftSize)/hop
	win := HannWindow(fftSize)
	fft := fourier.NewFFT(fftSize)
	segment := make([]float64, fftSize)

	spec := &Spectrogram{
		FFTSize: fftSize,
		Hop:     hop,
		Length:  len(x),
		Frames:  make([][]complex128, numFrames),
	}
	for t := 0; t < numFrames; t++ {
		start := t * hop
		for i := range segment {
			segment[i] = padded[start+i] * win[i]
		}
		spec.Frames[t] = fft.Coefficients(nil, segment)
	}

	return spec, nil
}

// ISTFT inverts a spectrogram by weighted overlap-add, normalising by the
// summed squared window. The output has spec.Length samples.
func ISTFT(spec *Spectrogram) []float64 {
	n := spec.FFTSize
	pad := n / 2
	if len(spec.Frames) == 0 {
		return make([]float64, spec.Length)
	}

	total := n + spec.Hop*(len(spec.Frames)-1)
	out := make([]float64, total)
	norm := make([]float64, total)
	win := HannWindow(n)
	fft := fourier.NewFFT(n)
	frame := make([]float64, n)
	scale := 1.0 / float64(n)

	for t, coeffs := range spec.Frames {
		fft.Sequence(frame, coeffs)
		start := t * spec.Hop
		for i, v := range frame {
			out[start+i] += v * scale * win[i]
			norm[start+i] += win[i] * win[i]
		}
	}

	for i := range out {
		if norm[i] > 1e-8 {
			out[i] /= norm[i]
		}
	}

	result := make([]float64, spec.Length)
	end := pad + spec.Length
	if end > total {
		end = total
	}
	if pad < end {
		copy(result, out[pad:end])
	}
	return result
}
