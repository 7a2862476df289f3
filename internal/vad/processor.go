package vad

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/skypro1111/speech-prep-service/internal/dsp"
)

// Options configures the energy detector
type Options struct {
	FrameDuration   time.Duration // analysis frame length
	NoisePercentile float64       // frame-RMS percentile taken as the noise floor
	ThresholdRatio  float64       // voiced frames exceed floor * ratio
	MinEnergy       float64       // absolute RMS floor; quieter frames are never voiced
}

// DefaultOptions returns 32 ms frames with a 3x adaptive threshold
func DefaultOptions() Options {
	return Options{
		FrameDuration:   32 * time.Millisecond,
		NoisePercentile: 0.2,
		ThresholdRatio:  3,
		MinEnergy:       1e-4,
	}
}

// Processor is a frame-energy voice activity detector. It is stateless
// between calls and safe for concurrent use.
type Processor struct {
	opts Options
}

// VoiceSegment is a run of consecutive voiced frames
type VoiceSegment struct {
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Confidence float64       `json:"confidence"` // mean RMS over threshold, capped at 1
}

// Duration returns the segment length
func (s VoiceSegment) Duration() time.Duration {
	return s.End - s.Start
}

// ProcessorStats summarises one detection pass
type ProcessorStats struct {
	TotalFrames     int     `json:"total_frames"`
	VoiceFrames     int     `json:"voice_frames"`
	VoicePercentage float64 `json:"voice_percentage"`
	Threshold       float64 `json:"threshold"`
}

// NewProcessor creates a detector
func NewProcessor(opts Options) (*Processor, error) {
	if opts.FrameDuration <= 0 {
		return nil, fmt.Errorf("frame duration must be positive, got %v", opts.FrameDuration)
	}
	if opts.NoisePercentile < 0 || opts.NoisePercentile > 1 {
		return nil, fmt.Errorf("noise percentile must be between 0 and 1, got %f", opts.NoisePercentile)
	}
	if opts.ThresholdRatio < 1 {
		return nil, fmt.Errorf("threshold ratio must be at least 1, got %f", opts.ThresholdRatio)
	}
	if opts.MinEnergy < 0 {
		return nil, fmt.Errorf("minimum energy cannot be negative, got %f", opts.MinEnergy)
	}

	return &Processor{opts: opts}, nil
}

// Detect splits samples into frames and returns the voiced segments
func (p *Processor) Detect(samples []float64, sampleRate int) ([]VoiceSegment, ProcessorStats, error) {
	if sampleRate <= 0 {
		return nil, ProcessorStats{}, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	frameSize := int(int64(sampleRate) * int64(p.opts.FrameDuration) / int64(time.Second))
	if frameSize < 1 {
		frameSize = 1
	}

	energies := frameEnergies(samples, frameSize)
	stats := ProcessorStats{TotalFrames: len(energies)}
	if len(energies) == 0 {
		return nil, stats, nil
	}

	threshold := p.threshold(energies)
	stats.Threshold = threshold

	frameTime := func(i int) time.Duration {
		return time.Duration(int64(i*frameSize) * int64(time.Second) / int64(sampleRate))
	}

	var (
		segments   []VoiceSegment
		current    *VoiceSegment
		confidence float64
		runLength  int
	)
	closeSegment := func(end int) {
		current.End = frameTime(end)
		current.Confidence = confidence / float64(runLength)
		segments = append(segments, *current)
		current = nil
	}

	for i, e := range energies {
		if e > threshold {
			stats.VoiceFrames++
			if current == nil {
				current = &VoiceSegment{Start: frameTime(i)}
				confidence, runLength = 0, 0
			}
			confidence += math.Min(1, (e-threshold)/threshold)
			runLength++
			continue
		}
		if current != nil {
			closeSegment(i)
		}
	}
	if current != nil {
		closeSegment(len(energies))
	}

	stats.VoicePercentage = float64(stats.VoiceFrames) / float64(stats.TotalFrames) * 100
	return segments, stats, nil
}

// Score returns the fraction of voiced frames. It satisfies the analyzer's
// speech scorer interface.
func (p *Processor) Score(samples []float64, sampleRate int) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("no samples to score")
	}
	_, stats, err := p.Detect(samples, sampleRate)
	if err != nil {
		return 0, err
	}
	if stats.TotalFrames == 0 {
		return 0, nil
	}
	return float64(stats.VoiceFrames) / float64(stats.TotalFrames), nil
}

// threshold is the noise-floor percentile scaled by the ratio, never below MinEnergy
func (p *Processor) threshold(energies []float64) float64 {
	sorted := append([]float64(nil), energies...)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p.opts.NoisePercentile)
	floor := sorted[idx] * p.opts.ThresholdRatio
	if floor < p.opts.MinEnergy {
		floor = p.opts.MinEnergy
	}
	return floor
}

// frameEnergies returns the RMS of each complete frame plus any trailing partial frame
func frameEnergies(samples []float64, frameSize int) []float64 {
	count := (len(samples) + frameSize - 1) / frameSize
	out := make([]float64, count)
	for i := range out {
		start := i * frameSize
		end := start + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		out[i] = dsp.RMS(samples[start:end])
	}
	return out
}
