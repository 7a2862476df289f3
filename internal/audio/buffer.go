package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptyBuffer is returned when an operation needs at least one sample
var ErrEmptyBuffer = errors.New("audio buffer is empty")

// Buffer holds decoded audio as planar float64 samples in [-1, 1]
type Buffer struct {
	SampleRate int
	Channels   [][]float64 // Channels[c][i] is frame i of channel c
}

// NewBuffer creates a zeroed buffer with the given shape
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	b := &Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float64, channels),
	}
	for c := range b.Channels {
		b.Channels[c] = make([]float64, frames)
	}
	return b
}

// NewMonoBuffer wraps a single channel of samples without copying
func NewMonoBuffer(samples []float64, sampleRate int) *Buffer {
	return &Buffer{
		SampleRate: sampleRate,
		Channels:   [][]float64{samples},
	}
}

// NumChannels returns the channel count
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// NumFrames returns the number of frames (samples per channel)
func (b *Buffer) NumFrames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Seconds returns the buffer duration in seconds
func (b *Buffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.NumFrames()) / float64(b.SampleRate)
}

// Duration returns the buffer duration as a time.Duration
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.Seconds() * float64(time.Second))
}

// Validate checks that the buffer is non-empty, rectangular and finite
func (b *Buffer) Validate() error {
	if b == nil || len(b.Channels) == 0 || len(b.Channels[0]) == 0 {
		return ErrEmptyBuffer
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}
	frames := len(b.Channels[0])
	for c, ch := range b.Channels {
		if len(ch) != frames {
			return fmt.Errorf("channel %d has %d frames, expected %d", c, len(ch), frames)
		}
		for i, v := range ch {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite sample at channel %d frame %d", c, i)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the buffer
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		SampleRate: b.SampleRate,
		Channels:   make([][]float64, len(b.Channels)),
	}
	for c, ch := range b.Channels {
		out.Channels[c] = append([]float64(nil), ch...)
	}
	return out
}

// Mixdown averages all channels into a new mono sample slice
func (b *Buffer) Mixdown() []float64 {
	frames := b.NumFrames()
	mono := make([]float64, frames)
	if len(b.Channels) == 1 {
		copy(mono, b.Channels[0])
		return mono
	}
	scale := 1.0 / float64(len(b.Channels))
	for _, ch := range b.Channels {
		for i, v := range ch {
			mono[i] += v * scale
		}
	}
	return mono
}

// Interleave returns the samples in frame-major order
func (b *Buffer) Interleave() []float64 {
	channels := b.NumChannels()
	frames := b.NumFrames()
	out := make([]float64, frames*channels)
	for c, ch := range b.Channels {
		for i, v := range ch {
			out[i*channels+c] = v
		}
	}
	return out
}

// Deinterleave builds a planar buffer from frame-major samples
func Deinterleave(samples []float64, channels, sampleRate int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	frames := len(samples) / channels
	b := NewBuffer(sampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			b.Channels[c][i] = samples[i*channels+c]
		}
	}
	return b
}
