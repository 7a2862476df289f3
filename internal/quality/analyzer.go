package quality

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/skypro1111/speech-prep-service/internal/audio"
	"github.com/skypro1111/speech-prep-service/internal/dsp"
)

// Sub-score weights
const (
	weightEnergy     = 0.3
	weightZCR        = 0.2
	weightBrightness = 0.2
	weightNoise      = 0.2
	weightSpeech     = 0.1
)

// Analysis frame geometry for the spectral centroid
const (
	centroidFFTSize = 2048
	centroidHop     = 512
)

// neutralSpeech is used when the speech scorer fails
const neutralSpeech = 0.5

// Metrics is the scalar summary of one sample buffer
type Metrics struct {
	RMSEnergy         float64 `json:"rms_energy"`
	ZeroCrossingRate  float64 `json:"zero_crossing_rate"`
	SpectralCentroid  float64 `json:"spectral_centroid"`
	NoiseLevel        float64 `json:"noise_level"`
	SpeechProbability float64 `json:"speech_probability"`
	QualityScore      float64 `json:"quality_score"`
}

// Neutral returns the record reported when analysis cannot run.
// Noise is pinned to the worst case.
func Neutral() Metrics {
	return Metrics{NoiseLevel: 1}
}

// Analyzer computes quality metrics for decoded audio
type Analyzer struct {
	logger *slog.Logger
	scorer SpeechScorer
}

// NewAnalyzer creates an analyzer; a nil scorer selects CepstralScorer
func NewAnalyzer(logger *slog.Logger, scorer SpeechScorer) *Analyzer {
	if scorer == nil {
		scorer = CepstralScorer{}
	}
	return &Analyzer{
		logger: logger,
		scorer: scorer,
	}
}

// Analyze computes metrics on the mono mixdown of b. It never fails:
// empty, non-finite or otherwise degenerate input yields Neutral().
func (a *Analyzer) Analyze(b *audio.Buffer) (m Metrics) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("Quality analysis panicked",
				slog.String("panic", fmt.Sprint(r)))
			m = Neutral()
		}
	}()

	if err := b.Validate(); err != nil {
		a.logger.Warn("Cannot analyze buffer", slog.String("error", err.Error()))
		return Neutral()
	}

	mono := b.Mixdown()
	m = Metrics{
		RMSEnergy:        dsp.RMS(mono),
		ZeroCrossingRate: dsp.ZeroCrossingRate(mono),
		NoiseLevel:       NoiseLevel(mono),
	}

	centroids, err := dsp.SpectralCentroid(mono, b.SampleRate, centroidFFTSize, centroidHop)
	if err != nil {
		a.logger.Warn("Cannot compute spectral centroid", slog.String("error", err.Error()))
		return Neutral()
	}
	m.SpectralCentroid = stat.Mean(centroids, nil)

	speech, err := a.scorer.Score(mono, b.SampleRate)
	if err != nil {
		a.logger.Warn("Speech scorer failed, using neutral probability",
			slog.String("error", err.Error()))
		speech = neutralSpeech
	}
	m.SpeechProbability = clip01(speech)

	m.QualityScore = Score(m.RMSEnergy, m.ZeroCrossingRate, m.SpectralCentroid, m.NoiseLevel, m.SpeechProbability)

	if !m.finite() {
		a.logger.Warn("Quality analysis produced non-finite metrics")
		return Neutral()
	}

	a.logger.Debug("Analyzed buffer",
		slog.Float64("quality", m.QualityScore),
		slog.Float64("noise", m.NoiseLevel),
		slog.Float64("speech", m.SpeechProbability))

	return m
}

// NoiseLevel scores the noise floor of mono samples in [0, 1]: the mean of
// the quietest 10% of magnitudes, scaled by 10 and clipped.
func NoiseLevel(mono []float64) float64 {
	return clip01(dsp.NoiseFloor(mono, 0.1) * 10)
}

// Score combines the sub-scores into the overall quality score
func Score(rms, zcr, centroid, noise, speech float64) float64 {
	energyScore := math.Min(rms*10, 1)
	zcrScore := math.Min(zcr*1000, 1)
	brightnessScore := math.Min(centroid/4000, 1)
	noiseScore := 1 - noise

	total := weightEnergy*clip01(energyScore) +
		weightZCR*clip01(zcrScore) +
		weightBrightness*clip01(brightnessScore) +
		weightNoise*clip01(noiseScore) +
		weightSpeech*clip01(speech)

	return clip01(total)
}

func (m Metrics) finite() bool {
	for _, v := range []float64{m.RMSEnergy, m.ZeroCrossingRate, m.SpectralCentroid, m.NoiseLevel, m.SpeechProbability, m.QualityScore} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clip01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
