// Package vad provides frame-energy voice activity detection with an adaptive
// threshold derived from the quietest frames. A Processor can also serve as
// the analyzer's speech scorer, reporting the voiced share of a recording.
package vad
