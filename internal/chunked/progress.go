package chunked

import (
	"fmt"
	"time"
)

// Progress is an advisory snapshot of a chunked run
type Progress struct {
	TotalChunks        int           `json:"total_chunks"`
	ProcessedChunks    int           `json:"processed_chunks"`
	CurrentStage       string        `json:"current_stage"`
	EstimatedRemaining time.Duration `json:"estimated_time_remaining"`
	StartedAt          time.Time     `json:"started_at"`
	Errors             []string      `json:"errors,omitempty"`
}

// ProgressFunc receives a copy of the progress after each chunk
type ProgressFunc func(Progress)

// Percentage returns the completed share in [0, 100]
func (p Progress) Percentage() float64 {
	if p.TotalChunks <= 0 {
		return 0
	}
	return float64(p.ProcessedChunks) / float64(p.TotalChunks) * 100
}

// String renders the status line passed to progress callbacks
func (p Progress) String() string {
	return fmt.Sprintf("%s (%d/%d, %.0f%%)", p.CurrentStage, p.ProcessedChunks, p.TotalChunks, p.Percentage())
}

func (p *Progress) advance(stage string) {
	p.ProcessedChunks++
	p.CurrentStage = stage

	elapsed := time.Since(p.StartedAt)
	remaining := p.TotalChunks - p.ProcessedChunks
	if p.ProcessedChunks > 0 && remaining > 0 {
		p.EstimatedRemaining = elapsed / time.Duration(p.ProcessedChunks) * time.Duration(remaining)
	} else {
		p.EstimatedRemaining = 0
	}
}

// snapshot copies the progress so callbacks cannot alias the error list
func (p *Progress) snapshot() Progress {
	out := *p
	out.Errors = append([]string(nil), p.Errors...)
	return out
}
