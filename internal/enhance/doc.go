// Package enhance prepares audio for speech recognition with a fixed
// pipeline: volume normalization, spectral-gating noise reduction,
// resampling, mono downmix and an 80 Hz high-pass. Every stage reports an
// Applied or Skipped outcome and a failing stage never aborts the pipeline.
package enhance
