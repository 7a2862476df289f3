package enhance

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skypro1111/speech-prep-service/internal/audio"
	"github.com/skypro1111/speech-prep-service/internal/dsp"
	"github.com/skypro1111/speech-prep-service/internal/metrics"
)

// Options configures the enhancement pipeline
type Options struct {
	TargetSampleRate int
	TargetRMS        float64
	HighPassCutoff   float64
	Gate             dsp.GateOptions
}

// DefaultOptions returns the speech recognition defaults: 16 kHz, RMS 0.1, 80 Hz high-pass
func DefaultOptions() Options {
	return Options{
		TargetSampleRate: 16000,
		TargetRMS:        0.1,
		HighPassCutoff:   80,
		Gate:             dsp.DefaultGateOptions(),
	}
}

// Validate checks the options
func (o Options) Validate() error {
	if o.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive, got %d", o.TargetSampleRate)
	}
	if o.TargetRMS <= 0 || o.TargetRMS > 1 {
		return fmt.Errorf("target RMS must be in (0, 1], got %f", o.TargetRMS)
	}
	if o.HighPassCutoff <= 0 || o.HighPassCutoff >= float64(o.TargetSampleRate)/2 {
		return fmt.Errorf("high-pass cutoff %.1f Hz must be below Nyquist of %d Hz", o.HighPassCutoff, o.TargetSampleRate)
	}
	if o.Gate.Multiplier <= 0 {
		return fmt.Errorf("noise gate multiplier must be positive, got %f", o.Gate.Multiplier)
	}
	return nil
}

// stageFunc transforms a buffer and reports the change magnitude. It
// returns a skip error when there is nothing to do.
type stageFunc func(in *audio.Buffer) (*audio.Buffer, float64, error)

type stage struct {
	name string
	run  stageFunc
}

// skipError marks a stage that declined to run
type skipError struct {
	reason string
}

func (e *skipError) Error() string {
	return e.reason
}

func skip(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

// Enhancer runs the fixed five-stage pipeline. Each stage is isolated: a
// stage that errors, panics or produces non-finite samples is skipped and
// the pre-stage buffer carries on.
type Enhancer struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	stages  []stage
}

// New creates an enhancer; metrics may be nil
func New(opts Options, logger *slog.Logger, m *metrics.Metrics) (*Enhancer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enhancement options: %w", err)
	}

	e := &Enhancer{
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
	e.stages = []stage{
		{StageVolume, e.normalizeVolume},
		{StageNoise, e.reduceNoise},
		{StageResample, e.resample},
		{StageDownmix, e.downmix},
		{StageHighPass, e.highPass},
	}
	return e, nil
}

// Options returns the pipeline options
func (e *Enhancer) Options() Options {
	return e.opts
}

// Enhance runs every stage in order on a copy of in. It never fails; an
// invalid input buffer is returned unchanged with every stage skipped.
func (e *Enhancer) Enhance(in *audio.Buffer) (*audio.Buffer, Report) {
	var report Report

	if err := in.Validate(); err != nil {
		e.logger.Warn("Skipping enhancement of invalid buffer", slog.String("error", err.Error()))
		for _, s := range e.stages {
			report.Outcomes = append(report.Outcomes, Skipped(s.name, err.Error()))
		}
		return in, report
	}

	current := in.Clone()
	for _, s := range e.stages {
		next, outcome := e.runStage(s, current)
		e.metrics.RecordStage(outcome.Stage, outcome.Applied, outcome.Elapsed)
		report.Outcomes = append(report.Outcomes, outcome)
		current = next
	}

	return current, report
}

// runStage executes one stage, reverting to the input on any failure
func (e *Enhancer) runStage(s stage, in *audio.Buffer) (out *audio.Buffer, outcome Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Enhancement stage panicked",
				slog.String("stage", s.name),
				slog.String("panic", fmt.Sprint(r)))
			out = in
			outcome = Skipped(s.name, fmt.Sprintf("panic: %v", r))
		}
		outcome.Elapsed = time.Since(start)
	}()

	result, delta, err := s.run(in)
	if err != nil {
		var se *skipError
		if errors.As(err, &se) {
			e.logger.Debug("Enhancement stage skipped",
				slog.String("stage", s.name),
				slog.String("reason", se.reason))
			return in, Skipped(s.name, se.reason)
		}
		e.logger.Warn("Enhancement stage failed",
			slog.String("stage", s.name),
			slog.String("error", err.Error()))
		return in, Skipped(s.name, err.Error())
	}

	if err := result.Validate(); err != nil {
		e.logger.Warn("Enhancement stage produced an invalid buffer",
			slog.String("stage", s.name),
			slog.String("error", err.Error()))
		return in, Skipped(s.name, fmt.Sprintf("invalid output: %v", err))
	}

	e.logger.Debug("Enhancement stage applied",
		slog.String("stage", s.name),
		slog.Float64("delta", delta))
	return result, Applied(s.name, delta)
}
