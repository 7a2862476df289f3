package optimizer

import (
	"errors"
	"time"

	"github.com/skypro1111/speech-prep-service/internal/chunked"
)

var (
	// ErrStopped is reported for jobs submitted to, or still queued in, a stopped optimizer
	ErrStopped = errors.New("optimizer stopped")
	// ErrQueueFull is reported for jobs submitted while the queue is at capacity
	ErrQueueFull = errors.New("job queue is full")
)

// FormatError marks metadata of a file that could not be analyzed
const FormatError = "error"

// Processing routes
const (
	RouteChunked     = "chunked"
	RouteEnhanced    = "enhanced"
	RoutePassthrough = "passthrough"
)

// AudioMetadata is the analysis snapshot of one file
type AudioMetadata struct {
	DurationSeconds   float64 `json:"duration_seconds"`
	SampleRate        int     `json:"sample_rate"`
	Channels          int     `json:"channels"`
	Format            string  `json:"format"`
	FileSizeBytes     int64   `json:"file_size_bytes"`
	QualityScore      float64 `json:"quality_score"`
	NoiseLevel        float64 `json:"noise_level"`
	SpeechProbability float64 `json:"speech_probability"`
}

// Duration returns the audio length as a time.Duration
func (m AudioMetadata) Duration() time.Duration {
	return time.Duration(m.DurationSeconds * float64(time.Second))
}

// ProcessOptions selects what Process may do with a file
type ProcessOptions struct {
	EnhanceQuality  bool `json:"enhance_quality"`
	ChunkLargeFiles bool `json:"chunk_large_files"`
	// OnlyWhenNeeded passes through audio that ShouldEnhance rejects
	OnlyWhenNeeded bool `json:"only_when_needed"`
}

// DefaultProcessOptions enables enhancement and chunking
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		EnhanceQuality:  true,
		ChunkLargeFiles: true,
	}
}

// Result describes one Process run. ProcessedFile is set only when the
// run succeeded and produced a new file; the caller owns and must delete it.
type Result struct {
	Success             bool               `json:"success"`
	Route               string             `json:"route"`
	OriginalFile        string             `json:"original_file"`
	ProcessedFile       string             `json:"processed_file,omitempty"`
	Metadata            AudioMetadata      `json:"metadata"`
	ProcessingTime      time.Duration      `json:"processing_time"`
	QualityImprovements map[string]float64 `json:"quality_improvements"`
	Error               string             `json:"error,omitempty"`
	ChunksProcessed     int                `json:"chunks_processed"`
}

// OutputFile returns the file a recognizer should consume: the processed
// file when one was produced, else the original.
func (r Result) OutputFile() string {
	if r.Success && r.ProcessedFile != "" {
		return r.ProcessedFile
	}
	return r.OriginalFile
}

// JobState is the lifecycle state of an async job
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the state is final
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobStatus is a point-in-time view of an async job
type JobStatus struct {
	ID          string            `json:"id"`
	File        string            `json:"file"`
	State       JobState          `json:"state"`
	Result      *Result           `json:"result,omitempty"`
	Progress    *chunked.Progress `json:"progress,omitempty"`
	Error       string            `json:"error,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	FinishedAt  time.Time         `json:"finished_at,omitempty"`
}

// CleanupReport summarises one scratch directory sweep
type CleanupReport struct {
	Dir          string   `json:"dir"`
	Removed      []string `json:"removed"`
	BytesRemoved int64    `json:"bytes_removed"`
	Failures     int      `json:"failures"`
}
