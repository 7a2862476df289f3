// Package optimizer decides, per file, whether audio is chunked, enhanced or
// passed through before speech recognition.
//
// Optimizer.Process runs synchronously on the caller's goroutine.
// Optimizer.ProcessAsync queues work for a single background worker that
// drains a bounded FIFO queue, so async jobs run strictly one at a time in
// submission order. Job statuses are kept until the configured retention
// after completion. Queued and running jobs cannot be cancelled; Stop
// rejects jobs that have not started yet.
//
// No operation fails the caller: analysis, processing and cleanup errors
// are reported through AudioMetadata.Format, Result.Error, JobStatus and
// CleanupReport.
package optimizer
