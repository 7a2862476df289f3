package quality

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/speech-prep-service/internal/audio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func filled(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestAnalyzeStaysInUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const rate = 16000

	tests := []struct {
		name    string
		samples []float64
	}{
		{"all zero", make([]float64, rate)},
		{"saturated positive", filled(rate, func(int) float64 { return 1 })},
		{"saturated negative", filled(rate, func(int) float64 { return -1 })},
		{"saturated square", filled(rate, func(i int) float64 {
			if (i/20)%2 == 0 {
				return 1
			}
			return -1
		})},
		{"white noise", filled(rate, func(int) float64 { return math.Max(-1, math.Min(1, 0.3*rng.NormFloat64())) })},
		{"sine", filled(rate, func(i int) float64 { return 0.5 * math.Sin(2*math.Pi*220*float64(i)/rate) })},
		{"single sample", []float64{0.4}},
	}

	analyzer := NewAnalyzer(testLogger(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := analyzer.Analyze(audio.NewMonoBuffer(tt.samples, rate))

			for name, v := range map[string]float64{
				"quality": m.QualityScore,
				"noise":   m.NoiseLevel,
				"speech":  m.SpeechProbability,
			} {
				assert.GreaterOrEqual(t, v, 0.0, name)
				assert.LessOrEqual(t, v, 1.0, name)
			}
		})
	}
}

func TestAnalyzeDegenerateInputIsNeutral(t *testing.T) {
	analyzer := NewAnalyzer(testLogger(), nil)

	assert.Equal(t, Neutral(), analyzer.Analyze(audio.NewBuffer(16000, 1, 0)))
	assert.Equal(t, Neutral(), analyzer.Analyze(audio.NewMonoBuffer([]float64{0.1, math.NaN()}, 16000)))
	assert.Equal(t, Neutral(), analyzer.Analyze(nil))

	neutral := Neutral()
	assert.Equal(t, 1.0, neutral.NoiseLevel)
	assert.Equal(t, 0.0, neutral.QualityScore)
	assert.Equal(t, 0.0, neutral.SpeechProbability)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	samples := filled(24000, func(int) float64 { return 0.2 * rng.NormFloat64() })
	analyzer := NewAnalyzer(testLogger(), nil)

	first := analyzer.Analyze(audio.NewMonoBuffer(samples, 16000))
	second := analyzer.Analyze(audio.NewMonoBuffer(samples, 16000))

	assert.Equal(t, first, second)
}

func TestAnalyzeMixesDownChannels(t *testing.T) {
	left := filled(16000, func(i int) float64 { return 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000) })
	right := filled(16000, func(i int) float64 { return -left[i] })

	m := NewAnalyzer(testLogger(), nil).Analyze(&audio.Buffer{
		SampleRate: 16000,
		Channels:   [][]float64{left, right},
	})

	assert.Equal(t, 0.0, m.RMSEnergy)
	assert.Equal(t, 0.0, m.NoiseLevel)
}

func TestScorerFailureFallsBackToNeutralSpeech(t *testing.T) {
	failing := SpeechScorerFunc(func([]float64, int) (float64, error) {
		return 0, errors.New("model unavailable")
	})

	m := NewAnalyzer(testLogger(), failing).Analyze(audio.NewMonoBuffer(filled(8000, func(i int) float64 {
		return 0.1 * math.Sin(float64(i))
	}), 16000))

	assert.Equal(t, 0.5, m.SpeechProbability)
}

func TestScorerPanicYieldsNeutral(t *testing.T) {
	panicking := SpeechScorerFunc(func([]float64, int) (float64, error) {
		panic("index out of range")
	})

	m := NewAnalyzer(testLogger(), panicking).Analyze(audio.NewMonoBuffer([]float64{0.1, 0.2}, 16000))

	assert.Equal(t, Neutral(), m)
}

func TestScore(t *testing.T) {
	assert.InDelta(t, 0.61, Score(0.05, 0.0005, 2000, 0.2, 1), 1e-12)
	assert.InDelta(t, 1.0, Score(1, 1, 8000, 0, 1), 1e-12)
	assert.InDelta(t, 0.2, Score(0, 0, 0, 0, 0), 1e-12)
	assert.InDelta(t, 0.0, Score(0, 0, 0, 1, 0), 1e-12)
}

func TestNoiseLevel(t *testing.T) {
	assert.InDelta(t, 0.5, NoiseLevel(filled(100, func(int) float64 { return 0.05 })), 1e-12)
	assert.Equal(t, 1.0, NoiseLevel(filled(100, func(int) float64 { return -0.2 })))
	assert.Equal(t, 0.0, NoiseLevel(make([]float64, 100)))
}

func TestCepstralScorer(t *testing.T) {
	_, err := CepstralScorer{}.Score(nil, 16000)
	require.Error(t, err)

	score, err := CepstralScorer{}.Score(filled(16000, func(i int) float64 {
		return 0.3 * math.Sin(2*math.Pi*300*float64(i)/16000)
	}), 16000)
	require.NoError(t, err)
	assert.Contains(t, []float64{0, 1.0 / 3, 2.0 / 3, 1}, score)
}
