package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/speech-prep-service/internal/audio"
	"github.com/skypro1111/speech-prep-service/internal/chunked"
	"github.com/skypro1111/speech-prep-service/internal/config"
	"github.com/skypro1111/speech-prep-service/internal/dsp"
	"github.com/skypro1111/speech-prep-service/internal/enhance"
	"github.com/skypro1111/speech-prep-service/internal/metrics"
	"github.com/skypro1111/speech-prep-service/internal/quality"
	"github.com/skypro1111/speech-prep-service/internal/vad"
)

// job is one queued ProcessAsync request
type job struct {
	id   string
	path string
	opts ProcessOptions
}

// Optimizer analyzes audio files and routes them through enhancement,
// chunked enhancement or pass-through. Synchronous calls run on the
// caller's goroutine; async jobs are serialized on one background worker.
type Optimizer struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	analyzer *quality.Analyzer
	enhancer *enhance.Enhancer
	chunker  *chunked.Processor

	jobs    map[string]*JobStatus
	mu      sync.RWMutex
	queue   chan job
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an optimizer from a validated configuration. A nil cfg
// selects config.Default(); metrics may be nil. New spawns no goroutines:
// jobs submitted with ProcessAsync stay queued until Start is called.
func New(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Optimizer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	scorer, err := newSpeechScorer(cfg.Analysis.SpeechScorer)
	if err != nil {
		return nil, err
	}

	gate := dsp.DefaultGateOptions()
	gate.Multiplier = cfg.Audio.NoiseGateMultiplier

	enhancer, err := enhance.New(enhance.Options{
		TargetSampleRate: cfg.Audio.TargetSampleRate,
		TargetRMS:        cfg.Audio.TargetRMS,
		HighPassCutoff:   cfg.Audio.HighPassCutoff,
		Gate:             gate,
	}, logger, m)
	if err != nil {
		return nil, err
	}

	chunker, err := chunked.NewProcessor(chunked.Options{
		ChunkDuration:   cfg.Chunking.GetChunkDuration(),
		OverlapDuration: cfg.Chunking.GetOverlapDuration(),
		ScratchDir:      cfg.Cleanup.ScratchDir,
	}, enhancer, logger, m)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Optimizer{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		analyzer: quality.NewAnalyzer(logger, scorer),
		enhancer: enhancer,
		chunker:  chunker,
		jobs:     make(map[string]*JobStatus),
		queue:    make(chan job, cfg.Queue.Capacity),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func newSpeechScorer(name string) (quality.SpeechScorer, error) {
	switch name {
	case "cepstral", "":
		return quality.CepstralScorer{}, nil
	case "energy":
		p, err := vad.NewProcessor(vad.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to create energy speech scorer: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown speech scorer %q", name)
	}
}

// Start launches the background worker and the janitor. It is a no-op
// when already started and fails after Stop.
func (o *Optimizer) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return ErrStopped
	}
	if o.started {
		return nil
	}
	o.started = true

	o.wg.Add(2)
	go o.runWorker()
	go o.runJanitor()

	o.logger.Info("Optimizer started",
		slog.Int("queue_capacity", cap(o.queue)),
		slog.Duration("job_retention", o.cfg.Queue.GetJobRetention()),
		slog.Duration("cleanup_interval", o.cfg.Cleanup.GetInterval()),
	)
	return nil
}

// Stop rejects queued jobs, lets a running job finish and waits for the
// background goroutines or ctx, whichever comes first.
func (o *Optimizer) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.stopped = true
	o.mu.Unlock()

	o.logger.Info("Stopping optimizer...")
	o.cancel()
	rejected := o.rejectQueued()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		o.logger.Warn("Optimizer stop timed out, running job abandoned",
			slog.String("error", ctx.Err().Error()))
		return ctx.Err()
	}

	o.logger.Info("Optimizer stopped",
		slog.Int("rejected_jobs", rejected),
		slog.Int("tracked_jobs", o.TrackedJobs()),
	)
	return nil
}

// Analyze decodes path and returns its metadata. It never fails: an
// unreadable file yields neutral metadata with Format "error".
func (o *Optimizer) Analyze(path string) AudioMetadata {
	meta, err := o.analyze(path)
	if err != nil {
		o.logger.Error("Failed to analyze audio",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errorMetadata()
	}
	return meta
}

func (o *Optimizer) analyze(path string) (AudioMetadata, error) {
	start := time.Now()

	buf, info, err := audio.ReadFile(path)
	if err != nil {
		o.metrics.RecordAnalysis(false, 0, time.Since(start))
		return AudioMetadata{}, err
	}

	q := o.analyzer.Analyze(buf)
	meta := AudioMetadata{
		DurationSeconds:   info.Seconds(),
		SampleRate:        info.SampleRate,
		Channels:          info.Channels,
		Format:            info.Format,
		FileSizeBytes:     info.SizeBytes,
		QualityScore:      q.QualityScore,
		NoiseLevel:        q.NoiseLevel,
		SpeechProbability: q.SpeechProbability,
	}

	elapsed := time.Since(start)
	o.metrics.RecordAnalysis(true, meta.QualityScore, elapsed)
	o.logger.Debug("Analyzed audio",
		slog.String("file", path),
		slog.Float64("duration_seconds", meta.DurationSeconds),
		slog.Float64("quality", meta.QualityScore),
		slog.Duration("elapsed", elapsed))

	return meta, nil
}

func errorMetadata() AudioMetadata {
	neutral := quality.Neutral()
	return AudioMetadata{
		Format:            FormatError,
		QualityScore:      neutral.QualityScore,
		NoiseLevel:        neutral.NoiseLevel,
		SpeechProbability: neutral.SpeechProbability,
	}
}

// Process analyzes path and runs it through the chunked, enhanced or
// pass-through route on the caller's goroutine. Failures are reported in
// the result; the original file is never modified.
func (o *Optimizer) Process(path string, opts ProcessOptions) Result {
	return o.process(path, opts, nil)
}

func (o *Optimizer) process(path string, opts ProcessOptions, onProgress chunked.ProgressFunc) Result {
	start := time.Now()

	meta, err := o.analyze(path)
	if err != nil {
		o.logger.Error("Cannot process unreadable audio",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return Result{
			OriginalFile:        path,
			Metadata:            errorMetadata(),
			ProcessingTime:      time.Since(start),
			QualityImprovements: map[string]float64{},
			Error:               err.Error(),
		}
	}

	route := o.route(meta, opts)

	var result Result
	switch route {
	case RouteChunked:
		result = o.processChunked(path, meta, onProgress)
	case RouteEnhanced:
		result = o.processEnhanced(path, meta)
	default:
		result = Result{
			Success:             true,
			Metadata:            meta,
			QualityImprovements: map[string]float64{},
		}
	}

	result.Route = route
	result.OriginalFile = path
	result.ProcessingTime = time.Since(start)
	o.metrics.RecordProcess(route, result.Success, result.ProcessingTime)

	if result.Success {
		o.logger.Info("Processed audio",
			slog.String("file", path),
			slog.String("route", route),
			slog.String("output", result.OutputFile()),
			slog.Int("chunks", result.ChunksProcessed),
			slog.Duration("elapsed", result.ProcessingTime))
	} else {
		o.logger.Error("Audio processing failed",
			slog.String("file", path),
			slog.String("route", route),
			slog.String("error", result.Error))
	}

	return result
}

func (o *Optimizer) route(meta AudioMetadata, opts ProcessOptions) string {
	switch {
	case opts.ChunkLargeFiles && meta.Duration() > o.cfg.Chunking.GetMinDuration():
		return RouteChunked
	case opts.EnhanceQuality && (!opts.OnlyWhenNeeded || o.ShouldEnhance(meta)):
		return RouteEnhanced
	default:
		return RoutePassthrough
	}
}

func (o *Optimizer) processEnhanced(path string, meta AudioMetadata) Result {
	failed := func(err error) Result {
		return Result{Metadata: meta, QualityImprovements: map[string]float64{}, Error: err.Error()}
	}

	buf, _, err := audio.ReadFile(path)
	if err != nil {
		return failed(err)
	}

	enhanced, report := o.enhancer.Enhance(buf)
	for _, outcome := range report.Outcomes {
		if !outcome.Applied {
			o.logger.Debug("Enhancement stage skipped",
				slog.String("stage", outcome.Stage),
				slog.String("reason", outcome.Reason))
		}
	}

	out, _, err := audio.WriteTemp(o.cfg.Cleanup.ScratchDir, enhanced)
	if err != nil {
		return failed(err)
	}

	after, err := o.analyze(out)
	if err != nil {
		os.Remove(out)
		return failed(fmt.Errorf("failed to analyze enhanced output: %w", err))
	}

	return Result{
		Success:             true,
		ProcessedFile:       out,
		Metadata:            after,
		QualityImprovements: report.Improvements(),
	}
}

func (o *Optimizer) processChunked(path string, meta AudioMetadata, onProgress chunked.ProgressFunc) Result {
	res := o.chunker.Process(path, onProgress)
	if !res.Success {
		return Result{
			Metadata:            meta,
			QualityImprovements: res.Improvements,
			Error:               res.Error,
			ChunksProcessed:     res.ChunksProcessed,
		}
	}

	after, err := o.analyze(res.ProcessedFile)
	if err != nil {
		os.Remove(res.ProcessedFile)
		return Result{
			Metadata:            meta,
			QualityImprovements: map[string]float64{},
			Error:               fmt.Sprintf("failed to analyze stitched output: %v", err),
			ChunksProcessed:     res.ChunksProcessed,
		}
	}

	return Result{
		Success:             true,
		ProcessedFile:       res.ProcessedFile,
		Metadata:            after,
		QualityImprovements: res.Improvements,
		ChunksProcessed:     res.ChunksProcessed,
	}
}

// ProcessAsync queues path for the background worker and returns the job
// id. It never blocks: a full queue or a stopped optimizer registers the
// job as failed. Before Start the job is accepted but stays JobQueued
// until the worker is launched.
func (o *Optimizer) ProcessAsync(path string, opts ProcessOptions) string {
	id := uuid.NewString()
	status := &JobStatus{
		ID:          id,
		File:        path,
		State:       JobQueued,
		SubmittedAt: time.Now(),
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.jobs[id] = status
	o.metrics.SetTrackedJobs(len(o.jobs))

	if o.stopped {
		o.failLocked(status, ErrStopped)
		return id
	}

	select {
	case o.queue <- job{id: id, path: path, opts: opts}:
		o.metrics.SetQueueSize(len(o.queue))
		o.logger.Info("Queued audio processing job",
			slog.String("job_id", id),
			slog.String("file", path),
			slog.Int("queue_size", len(o.queue)))
		if !o.started {
			o.logger.Warn("Job queued before optimizer start, it will not run until Start is called",
				slog.String("job_id", id))
		}
	default:
		o.failLocked(status, ErrQueueFull)
	}

	return id
}

// Status returns a copy of the job status
func (o *Optimizer) Status(id string) (JobStatus, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status, ok := o.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return *status, true
}

// TrackedJobs returns the number of job statuses held in memory
func (o *Optimizer) TrackedJobs() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.jobs)
}

// failLocked marks a job failed; o.mu must be held
func (o *Optimizer) failLocked(status *JobStatus, err error) {
	status.State = JobFailed
	status.Error = err.Error()
	status.FinishedAt = time.Now()
	o.metrics.RecordJob(string(JobFailed))

	o.logger.Warn("Rejected audio processing job",
		slog.String("job_id", status.ID),
		slog.String("file", status.File),
		slog.String("error", status.Error))
}

func (o *Optimizer) rejectQueued() int {
	rejected := 0
	for {
		select {
		case j := <-o.queue:
			o.mu.Lock()
			if status, ok := o.jobs[j.id]; ok {
				o.failLocked(status, ErrStopped)
			}
			o.mu.Unlock()
			rejected++
		default:
			o.metrics.SetQueueSize(0)
			return rejected
		}
	}
}

// runWorker drains the queue one job at a time until Stop
func (o *Optimizer) runWorker() {
	defer o.wg.Done()

	o.logger.Info("Processing worker started")

	for {
		select {
		case <-o.ctx.Done():
			o.logger.Info("Processing worker stopping")
			return

		case j := <-o.queue:
			o.metrics.SetQueueSize(len(o.queue))
			if o.ctx.Err() != nil {
				o.mu.Lock()
				if status, ok := o.jobs[j.id]; ok {
					o.failLocked(status, ErrStopped)
				}
				o.mu.Unlock()
				continue
			}
			o.runJob(j)
		}
	}
}

func (o *Optimizer) runJob(j job) {
	o.updateJob(j.id, func(s *JobStatus) {
		s.State = JobRunning
		s.StartedAt = time.Now()
	})

	result := o.process(j.path, j.opts, func(p chunked.Progress) {
		o.updateJob(j.id, func(s *JobStatus) {
			s.Progress = &p
		})
	})

	state := JobCompleted
	if !result.Success {
		state = JobFailed
	}

	o.updateJob(j.id, func(s *JobStatus) {
		s.State = state
		s.Result = &result
		s.Error = result.Error
		s.FinishedAt = time.Now()
	})
	o.metrics.RecordJob(string(state))

	o.logger.Info("Audio processing job finished",
		slog.String("job_id", j.id),
		slog.String("state", string(state)),
		slog.Duration("elapsed", result.ProcessingTime))
}

func (o *Optimizer) updateJob(id string, update func(*JobStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if status, ok := o.jobs[id]; ok {
		update(status)
	}
}

// runJanitor evicts expired job statuses and, when configured, sweeps the
// scratch directory
func (o *Optimizer) runJanitor() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.Queue.GetJanitorInterval())
	defer ticker.Stop()

	var sweep <-chan time.Time
	if interval := o.cfg.Cleanup.GetInterval(); interval > 0 {
		sweepTicker := time.NewTicker(interval)
		defer sweepTicker.Stop()
		sweep = sweepTicker.C
	}

	for {
		select {
		case <-o.ctx.Done():
			return

		case now := <-ticker.C:
			o.evictExpired(now)

		case <-sweep:
			o.Cleanup(o.cfg.Cleanup.MaxAgeHours)
		}
	}
}

// evictExpired drops terminal jobs that finished more than the retention ago
func (o *Optimizer) evictExpired(now time.Time) int {
	retention := o.cfg.Queue.GetJobRetention()

	o.mu.Lock()
	defer o.mu.Unlock()

	evicted := 0
	for id, status := range o.jobs {
		if status.State.Terminal() && now.Sub(status.FinishedAt) > retention {
			delete(o.jobs, id)
			evicted++
		}
	}
	o.metrics.SetTrackedJobs(len(o.jobs))

	if evicted > 0 {
		o.logger.Info("Evicted expired job statuses",
			slog.Int("evicted", evicted),
			slog.Int("remaining", len(o.jobs)))
	}
	return evicted
}
