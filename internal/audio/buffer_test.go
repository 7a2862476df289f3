package audio

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewBuffer(t *testing.T) {
	buffer := NewBuffer(8000, 2, 4000)

	if buffer == nil {
		t.Fatal("NewBuffer returned nil")
	}

	if buffer.NumChannels() != 2 {
		t.Errorf("Expected 2 channels, got %d", buffer.NumChannels())
	}

	if buffer.NumFrames() != 4000 {
		t.Errorf("Expected 4000 frames, got %d", buffer.NumFrames())
	}

	if buffer.Seconds() != 0.5 {
		t.Errorf("Expected 0.5 seconds, got %f", buffer.Seconds())
	}

	if buffer.Duration() != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", buffer.Duration())
	}
}

func TestBufferValidate(t *testing.T) {
	tests := []struct {
		name    string
		buffer  *Buffer
		wantErr bool
		empty   bool
	}{
		{"valid mono", NewMonoBuffer([]float64{0.1, 0.2}, 16000), false, false},
		{"nil buffer", nil, true, true},
		{"no channels", &Buffer{SampleRate: 16000}, true, true},
		{"zero frames", NewBuffer(16000, 1, 0), true, true},
		{"zero sample rate", NewMonoBuffer([]float64{0.1}, 0), true, false},
		{"ragged channels", &Buffer{SampleRate: 16000, Channels: [][]float64{{0.1, 0.2}, {0.1}}}, true, false},
		{"NaN sample", NewMonoBuffer([]float64{0.1, math.NaN()}, 16000), true, false},
		{"infinite sample", NewMonoBuffer([]float64{math.Inf(-1)}, 16000), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buffer.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.empty && !errors.Is(err, ErrEmptyBuffer) {
				t.Errorf("Expected ErrEmptyBuffer, got %v", err)
			}
		})
	}
}

func TestBufferMixdown(t *testing.T) {
	stereo := &Buffer{
		SampleRate: 16000,
		Channels: [][]float64{
			{1.0, 0.5, -1.0},
			{0.0, 0.5, 1.0},
		},
	}

	mono := stereo.Mixdown()
	expected := []float64{0.5, 0.5, 0.0}

	if len(mono) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(mono))
	}
	for i := range expected {
		if math.Abs(mono[i]-expected[i]) > 1e-12 {
			t.Errorf("Sample %d: expected %f, got %f", i, expected[i], mono[i])
		}
	}

	// Mono mixdown is a copy
	single := NewMonoBuffer([]float64{0.3}, 16000)
	out := single.Mixdown()
	out[0] = 0
	if single.Channels[0][0] != 0.3 {
		t.Error("Mixdown modified the source buffer")
	}
}

func TestBufferClone(t *testing.T) {
	original := NewMonoBuffer([]float64{0.1, 0.2, 0.3}, 22050)
	clone := original.Clone()

	clone.Channels[0][0] = 0.9

	if original.Channels[0][0] != 0.1 {
		t.Error("Clone shares sample storage with the original")
	}
	if clone.SampleRate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", clone.SampleRate)
	}
}

func TestInterleaveDeinterleave(t *testing.T) {
	interleaved := []float64{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}

	buffer := Deinterleave(interleaved, 2, 44100)

	if buffer.NumChannels() != 2 || buffer.NumFrames() != 3 {
		t.Fatalf("Expected 2x3 buffer, got %dx%d", buffer.NumChannels(), buffer.NumFrames())
	}
	if buffer.Channels[1][2] != -0.3 {
		t.Errorf("Expected -0.3 at channel 1 frame 2, got %f", buffer.Channels[1][2])
	}

	back := buffer.Interleave()
	for i := range interleaved {
		if back[i] != interleaved[i] {
			t.Errorf("Sample %d: expected %f, got %f", i, interleaved[i], back[i])
		}
	}

	// Trailing partial frames are dropped
	partial := Deinterleave([]float64{1, 2, 3}, 2, 8000)
	if partial.NumFrames() != 1 {
		t.Errorf("Expected 1 frame, got %d", partial.NumFrames())
	}
}
