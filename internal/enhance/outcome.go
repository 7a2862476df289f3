package enhance

import (
	"time"
)

// Stage names, also used as keys of the improvements map
const (
	StageVolume   = "volume_normalization"
	StageNoise    = "noise_reduction"
	StageResample = "resampling"
	StageDownmix  = "mono_conversion"
	StageHighPass = "highpass_filter"
)

// Outcome is the tagged result of one stage: applied with a change
// magnitude, or skipped with a reason
type Outcome struct {
	Stage   string        `json:"stage"`
	Applied bool          `json:"applied"`
	Delta   float64       `json:"delta,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Applied builds an outcome for a stage that changed the buffer
func Applied(stage string, delta float64) Outcome {
	return Outcome{Stage: stage, Applied: true, Delta: delta}
}

// Skipped builds an outcome for a stage that left the buffer untouched
func Skipped(stage, reason string) Outcome {
	return Outcome{Stage: stage, Reason: reason}
}

// Report lists stage outcomes in pipeline order
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Improvements maps each applied stage to its delta
func (r Report) Improvements() map[string]float64 {
	out := make(map[string]float64, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Applied {
			out[o.Stage] = o.Delta
		}
	}
	return out
}

// Outcome returns the outcome recorded for a stage
func (r Report) Outcome(stage string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Stage == stage {
			return o, true
		}
	}
	return Outcome{}, false
}
