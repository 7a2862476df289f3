package optimizer

import (
	"math"
	"time"
)

// Recommendations returns advisories for metadata, in a fixed order
func Recommendations(meta AudioMetadata) []string {
	recs := []string{}

	if meta.QualityScore < 0.3 {
		recs = append(recs, "Audio quality is poor. Consider using a better recording setup.")
	}
	if meta.NoiseLevel > 0.5 {
		recs = append(recs, "High noise level detected. Enable noise reduction.")
	}
	if meta.SpeechProbability < 0.4 {
		recs = append(recs, "Low speech probability. Verify this is a speech recording.")
	}
	if meta.SampleRate > 48000 {
		recs = append(recs, "High sample rate detected. Consider downsampling for efficiency.")
	}
	if meta.Channels > 1 {
		recs = append(recs, "Stereo audio detected. Mono conversion recommended for speech.")
	}
	if meta.DurationSeconds > 300 {
		recs = append(recs, "Long audio file. Consider using chunked processing.")
	}

	return recs
}

// ShouldEnhance reports whether enhancement is worth running: low quality,
// noisy or long audio. Short, quiet, good recordings are left alone.
func (o *Optimizer) ShouldEnhance(meta AudioMetadata) bool {
	th := o.cfg.Enhancement
	return meta.QualityScore < th.QualityThreshold ||
		meta.NoiseLevel > th.NoiseThreshold ||
		meta.Duration() > th.GetDurationThreshold()
}

// Decoding profiles
const (
	ProfileStrict  = "strict"
	ProfileDefault = "default"
	ProfileRelaxed = "relaxed"
)

// Hints are decoding parameters suggested to a speech recognizer
type Hints struct {
	Profile                   string  `json:"profile"`
	Language                  string  `json:"language,omitempty"` // empty means auto-detect
	Temperature               float64 `json:"temperature"`
	BeamSize                  int     `json:"beam_size"`
	NoSpeechThreshold         float64 `json:"no_speech_threshold"`
	LogprobThreshold          float64 `json:"logprob_threshold"`
	CompressionRatioThreshold float64 `json:"compression_ratio_threshold"`
}

// RecognitionHints picks stricter decoding for poor or noisy audio and
// relaxed decoding for clean audio
func RecognitionHints(meta AudioMetadata) Hints {
	switch {
	case meta.QualityScore < 0.4 || meta.NoiseLevel > 0.5:
		return Hints{
			Profile:                   ProfileStrict,
			BeamSize:                  5,
			NoSpeechThreshold:         0.8,
			LogprobThreshold:          -0.5,
			CompressionRatioThreshold: 2.0,
		}
	case meta.QualityScore > 0.8:
		return Hints{
			Profile:                   ProfileRelaxed,
			BeamSize:                  1,
			NoSpeechThreshold:         0.4,
			LogprobThreshold:          -1.5,
			CompressionRatioThreshold: 2.8,
		}
	default:
		return Hints{
			Profile:                   ProfileDefault,
			BeamSize:                  5,
			NoSpeechThreshold:         0.6,
			LogprobThreshold:          -1.0,
			CompressionRatioThreshold: 2.4,
		}
	}
}

// Assessment is a human readable quality grade
type Assessment struct {
	Grade    string   `json:"overall"`
	Score    float64  `json:"score"`
	Factors  []string `json:"factors_affecting_quality"`
	Suitable bool     `json:"transcription_suitability"`
}

// Assess grades the quality score and lists what drags it down
func Assess(meta AudioMetadata) Assessment {
	a := Assessment{
		Score:    meta.QualityScore,
		Factors:  []string{},
		Suitable: meta.QualityScore > 0.3,
	}

	switch q := meta.QualityScore; {
	case q >= 0.8:
		a.Grade = "Excellent"
	case q >= 0.6:
		a.Grade = "Good"
	case q >= 0.4:
		a.Grade = "Fair"
	case q >= 0.2:
		a.Grade = "Poor"
	default:
		a.Grade = "Very Poor"
	}

	if meta.NoiseLevel > 0.5 {
		a.Factors = append(a.Factors, "High background noise detected")
	}
	if meta.SpeechProbability < 0.4 {
		a.Factors = append(a.Factors, "Low speech content probability")
	}
	if meta.SampleRate < 16000 {
		a.Factors = append(a.Factors, "Low sample rate may affect accuracy")
	}
	if meta.Channels > 1 {
		a.Factors = append(a.Factors, "Stereo audio - mono recommended for speech")
	}

	return a
}

// Estimate is a rough processing-time forecast
type Estimate struct {
	Seconds            float64 `json:"estimated_seconds"`
	QualityMultiplier  float64 `json:"quality_impact"`
	DurationMultiplier float64 `json:"processing_efficiency"`
	OptimizationNeeded bool    `json:"optimization_needed"`
}

// Duration returns the estimate as a time.Duration
func (e Estimate) Duration() time.Duration {
	return time.Duration(e.Seconds * float64(time.Second))
}

// EstimateProcessingTime forecasts processing time at 0.1 s per audio
// second, slower for poor audio and faster on the chunked route
func (o *Optimizer) EstimateProcessingTime(meta AudioMetadata) Estimate {
	e := Estimate{QualityMultiplier: 1, DurationMultiplier: 1}

	switch {
	case meta.QualityScore < 0.4:
		e.QualityMultiplier = 1.5
	case meta.QualityScore < 0.6:
		e.QualityMultiplier = 1.2
	}
	if meta.DurationSeconds > 300 {
		e.DurationMultiplier = 0.8
	}

	seconds := meta.DurationSeconds * 0.1 * e.QualityMultiplier * e.DurationMultiplier

	th := o.cfg.Enhancement
	e.OptimizationNeeded = meta.QualityScore < th.QualityThreshold || meta.NoiseLevel > th.NoiseThreshold
	if e.OptimizationNeeded {
		seconds += meta.DurationSeconds * 0.05
	}
	e.Seconds = math.Round(seconds*10) / 10

	return e
}
