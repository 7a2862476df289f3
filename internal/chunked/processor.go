package chunked

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/skypro1111/speech-prep-service/internal/audio"
	"github.com/skypro1111/speech-prep-service/internal/enhance"
	"github.com/skypro1111/speech-prep-service/internal/metrics"
)

// Options configures chunk geometry and output location
type Options struct {
	ChunkDuration   time.Duration
	OverlapDuration time.Duration
	ScratchDir      string // empty selects the OS temp dir
}

// DefaultOptions returns 30 s chunks with a 2 s overlap
func DefaultOptions() Options {
	return Options{
		ChunkDuration:   30 * time.Second,
		OverlapDuration: 2 * time.Second,
	}
}

// Validate checks the chunk geometry
func (o Options) Validate() error {
	if o.ChunkDuration <= 0 {
		return fmt.Errorf("chunk duration must be positive, got %v", o.ChunkDuration)
	}
	if o.OverlapDuration < 0 || o.OverlapDuration >= o.ChunkDuration {
		return fmt.Errorf("overlap duration must be in [0, %v), got %v", o.ChunkDuration, o.OverlapDuration)
	}
	return nil
}

// Result describes a finished chunked run. ProcessedFile is set only on
// success and is owned by the caller.
type Result struct {
	Success         bool               `json:"success"`
	OriginalFile    string             `json:"original_file"`
	ProcessedFile   string             `json:"processed_file,omitempty"`
	ChunksProcessed int                `json:"chunks_processed"`
	ProcessingTime  time.Duration      `json:"processing_time"`
	Improvements    map[string]float64 `json:"quality_improvements"`
	SampleRate      int                `json:"sample_rate"`
	Channels        int                `json:"channels"`
	Frames          int64              `json:"frames"`
	SizeBytes       int64              `json:"file_size_bytes"`
	Error           string             `json:"error,omitempty"`
}

// Processor enhances long files window by window and stitches the results
type Processor struct {
	opts     Options
	enhancer *enhance.Enhancer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewProcessor creates a chunked processor on top of an enhancer; metrics may be nil
func NewProcessor(opts Options, enhancer *enhance.Enhancer, logger *slog.Logger, m *metrics.Metrics) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunking options: %w", err)
	}
	if enhancer == nil {
		return nil, fmt.Errorf("enhancer is required")
	}

	return &Processor{
		opts:     opts,
		enhancer: enhancer,
		logger:   logger,
		metrics:  m,
	}, nil
}

// Process enhances path in overlapping windows, strictly in index order,
// and writes the stitched mono output to a new scratch file. Any read,
// enhancement or write failure aborts the whole run without output.
func (p *Processor) Process(path string, onProgress ProgressFunc) Result {
	start := time.Now()
	progress := &Progress{StartedAt: start, CurrentStage: "Reading file info"}

	result, err := p.process(path, progress, onProgress)
	result.OriginalFile = path
	result.ProcessingTime = time.Since(start)

	if err != nil {
		p.logger.Error("Chunked processing failed",
			slog.String("file", path),
			slog.Int("chunks_done", progress.ProcessedChunks),
			slog.String("error", err.Error()))

		progress.Errors = append(progress.Errors, err.Error())
		progress.CurrentStage = "Failed"
		if onProgress != nil {
			onProgress(progress.snapshot())
		}

		return Result{
			OriginalFile:    path,
			ProcessingTime:  result.ProcessingTime,
			ChunksProcessed: progress.ProcessedChunks,
			Improvements:    map[string]float64{},
			Error:           err.Error(),
		}
	}

	p.logger.Info("Chunked processing completed",
		slog.String("file", path),
		slog.String("output", result.ProcessedFile),
		slog.Int("chunks", result.ChunksProcessed),
		slog.Duration("elapsed", result.ProcessingTime))

	return result
}

func (p *Processor) process(path string, progress *Progress, onProgress ProgressFunc) (Result, error) {
	src, err := audio.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer src.Close()

	info := src.Info()
	plan, err := audio.PlanChunks(info.Frames, info.SampleRate, p.opts.ChunkDuration, p.opts.OverlapDuration)
	if err != nil {
		return Result{}, fmt.Errorf("failed to plan chunks: %w", err)
	}
	progress.TotalChunks = len(plan.Windows)

	targetRate := p.enhancer.Options().TargetSampleRate
	overlapOut := int(math.Round(float64(plan.OverlapFrames) * float64(targetRate) / float64(info.SampleRate)))

	p.logger.Info("Processing file in chunks",
		slog.String("file", path),
		slog.Int("chunks", len(plan.Windows)),
		slog.Float64("duration_seconds", info.Seconds()))

	chunks := make([][]float64, 0, len(plan.Windows))
	totals := make(map[string]float64)
	for _, w := range plan.Windows {
		chunkStart := time.Now()

		buf, err := src.ReadFrames(w.Start, w.Length)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read chunk %d: %w", w.Index, err)
		}
		if buf.NumFrames() == 0 {
			return Result{}, fmt.Errorf("chunk %d is empty", w.Index)
		}

		enhanced, report := p.enhancer.Enhance(buf)
		if enhanced.SampleRate != targetRate || enhanced.NumChannels() != 1 {
			return Result{}, fmt.Errorf("chunk %d could not be converted to %d Hz mono", w.Index, targetRate)
		}
		chunks = append(chunks, enhanced.Channels[0])
		for stage, delta := range report.Improvements() {
			totals[stage] += delta
		}

		p.metrics.RecordChunk(time.Since(chunkStart))
		progress.advance(fmt.Sprintf("Processed chunk %d/%d", w.Index+1, len(plan.Windows)))
		p.logger.Debug("Chunk enhanced",
			slog.Int("index", w.Index),
			slog.Int64("start_frame", w.Start),
			slog.Int64("frames", w.Length))
		if onProgress != nil {
			onProgress(progress.snapshot())
		}
	}

	stitched := audio.NewMonoBuffer(audio.Stitch(chunks, overlapOut), targetRate)
	outPath, size, err := audio.WriteTemp(p.opts.ScratchDir, stitched)
	if err != nil {
		return Result{}, fmt.Errorf("failed to write stitched output: %w", err)
	}

	improvements := make(map[string]float64, len(totals))
	for stage, sum := range totals {
		improvements[stage] = sum / float64(len(chunks))
	}

	return Result{
		Success:         true,
		ProcessedFile:   outPath,
		ChunksProcessed: len(chunks),
		Improvements:    improvements,
		SampleRate:      targetRate,
		Channels:        1,
		Frames:          int64(stitched.NumFrames()),
		SizeBytes:       size,
	}, nil
}
