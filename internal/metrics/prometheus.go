package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the speech preparation service.
// All Record and Set methods are safe on a nil *Metrics.
type Metrics struct {
	// Analysis metrics
	Analyses         *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	QualityScore     prometheus.Histogram

	// Processing metrics
	ProcessRuns     *prometheus.CounterVec
	ProcessDuration *prometheus.HistogramVec

	// Enhancement stage metrics
	Stages        *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Chunking metrics
	ChunksProcessed prometheus.Counter
	ChunkDuration   prometheus.Histogram

	// Queue metrics
	QueueSize   prometheus.Gauge
	TrackedJobs prometheus.Gauge
	Jobs        *prometheus.CounterVec

	// Cleanup metrics
	FilesRemoved  prometheus.Counter
	BytesRemoved  prometheus.Counter
	CleanupErrors prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg. A nil
// registerer creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Analysis metrics
		Analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioprep_analyses_total",
			Help: "Total number of file analyses by result",
		}, []string{"result"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioprep_analysis_duration_seconds",
			Help:    "Time spent analyzing a file",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		QualityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioprep_quality_score",
			Help:    "Quality score of analyzed files",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),

		// Processing metrics
		ProcessRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioprep_process_runs_total",
			Help: "Total number of process runs by route and result",
		}, []string{"route", "result"}),
		ProcessDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audioprep_process_duration_seconds",
			Help:    "Wall time of process runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7 minutes
		}, []string{"route"}),

		// Enhancement stage metrics
		Stages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioprep_enhancement_stages_total",
			Help: "Total number of enhancement stage runs by outcome",
		}, []string{"stage", "outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audioprep_enhancement_stage_duration_seconds",
			Help:    "Time spent in each enhancement stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		}, []string{"stage"}),

		// Chunking metrics
		ChunksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioprep_chunks_processed_total",
			Help: "Total number of chunks enhanced by the chunked processor",
		}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioprep_chunk_duration_seconds",
			Help:    "Time spent reading and enhancing one chunk",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		// Queue metrics
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audioprep_queue_size",
			Help: "Current number of jobs waiting for the background worker",
		}),
		TrackedJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audioprep_tracked_jobs",
			Help: "Current number of job statuses held in memory",
		}),
		Jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioprep_jobs_total",
			Help: "Total number of async jobs by terminal state",
		}, []string{"state"}),

		// Cleanup metrics
		FilesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioprep_cleanup_files_removed_total",
			Help: "Total number of scratch files removed by cleanup",
		}),
		BytesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioprep_cleanup_bytes_removed_total",
			Help: "Total bytes reclaimed by cleanup",
		}),
		CleanupErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioprep_cleanup_errors_total",
			Help: "Total number of files cleanup failed to remove",
		}),
	}
}

// RecordAnalysis records one analysis and its quality score
func (m *Metrics) RecordAnalysis(ok bool, quality float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(resultLabel(ok)).Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
	if ok {
		m.QualityScore.Observe(quality)
	}
}

// RecordProcess records a finished process run for a route
func (m *Metrics) RecordProcess(route string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProcessRuns.WithLabelValues(route, resultLabel(ok)).Inc()
	m.ProcessDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordStage records one enhancement stage outcome
func (m *Metrics) RecordStage(stage string, applied bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "skipped"
	if applied {
		outcome = "applied"
	}
	m.Stages.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordChunk records one processed chunk
func (m *Metrics) RecordChunk(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ChunksProcessed.Inc()
	m.ChunkDuration.Observe(elapsed.Seconds())
}

// SetQueueSize sets the current queue size
func (m *Metrics) SetQueueSize(size int) {
	if m == nil {
		return
	}
	m.QueueSize.Set(float64(size))
}

// SetTrackedJobs sets the number of job statuses held in memory
func (m *Metrics) SetTrackedJobs(count int) {
	if m == nil {
		return
	}
	m.TrackedJobs.Set(float64(count))
}

// RecordJob records an async job reaching a terminal state
func (m *Metrics) RecordJob(state string) {
	if m == nil {
		return
	}
	m.Jobs.WithLabelValues(state).Inc()
}

// RecordCleanup records the outcome of a cleanup sweep
func (m *Metrics) RecordCleanup(removed int, bytes int64, failures int) {
	if m == nil {
		return
	}
	m.FilesRemoved.Add(float64(removed))
	m.BytesRemoved.Add(float64(bytes))
	m.CleanupErrors.Add(float64(failures))
}

// WriteTextfile writes everything gathered from g in the text exposition
// format, for the node exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
