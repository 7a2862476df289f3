package quality

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/skypro1111/speech-prep-service/internal/dsp"
)

// SpeechScorer estimates how likely mono samples contain speech, in [0, 1]
type SpeechScorer interface {
	Score(samples []float64, sampleRate int) (float64, error)
}

// SpeechScorerFunc adapts a function to SpeechScorer
type SpeechScorerFunc func(samples []float64, sampleRate int) (float64, error)

// Score calls f
func (f SpeechScorerFunc) Score(samples []float64, sampleRate int) (float64, error) {
	return f(samples, sampleRate)
}

// Cepstral heuristic thresholds
const (
	cepstralCoefficients = 13
	c1MeanThreshold      = -20.0
	c1VarianceThreshold  = 2.0
	c2to4MeanThreshold   = -15.0
)

// CepstralScorer is the default heuristic: three checks on the second
// cepstral coefficient and on coefficients three to five. The score is the
// fraction of checks that pass.
type CepstralScorer struct{}

// Score implements SpeechScorer
func (CepstralScorer) Score(samples []float64, sampleRate int) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("no samples to score")
	}

	mfcc, err := dsp.MFCC(samples, sampleRate, cepstralCoefficients)
	if err != nil {
		return 0, fmt.Errorf("failed to compute cepstral coefficients: %w", err)
	}

	c1 := mfcc[1]
	var upper []float64
	for _, row := range mfcc[2:5] {
		upper = append(upper, row...)
	}

	passed := 0
	if stat.Mean(c1, nil) > c1MeanThreshold {
		passed++
	}
	if stat.PopVariance(c1, nil) > c1VarianceThreshold {
		passed++
	}
	if stat.Mean(upper, nil) > c2to4MeanThreshold {
		passed++
	}

	return float64(passed) / 3, nil
}
