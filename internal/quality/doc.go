// Package quality scores decoded audio for speech recognition. It reports
// energy, zero-crossing rate, spectral brightness, a noise floor estimate and
// a speech likelihood, and folds them into one weighted quality score.
//
// Analysis never fails. Degenerate input produces the Neutral record with
// the noise level pinned to 1.
package quality
