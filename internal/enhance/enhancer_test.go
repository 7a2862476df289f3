package enhance

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/speech-prep-service/internal/audio"
	"github.com/skypro1111/speech-prep-service/internal/dsp"
	"github.com/skypro1111/speech-prep-service/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnhancer(t *testing.T) *Enhancer {
	t.Helper()
	e, err := New(DefaultOptions(), testLogger(), nil)
	require.NoError(t, err)
	return e
}

func sineBuffer(rate, channels int, seconds, freq, amp float64) *audio.Buffer {
	frames := int(float64(rate) * seconds)
	b := audio.NewBuffer(rate, channels, frames)
	for c := range b.Channels {
		for i := range b.Channels[c] {
			b.Channels[c][i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		}
	}
	return b
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero rate", func(o *Options) { o.TargetSampleRate = 0 }},
		{"rms above one", func(o *Options) { o.TargetRMS = 2 }},
		{"cutoff above nyquist", func(o *Options) { o.HighPassCutoff = 9000 }},
		{"zero gate multiplier", func(o *Options) { o.Gate.Multiplier = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			assert.Error(t, opts.Validate())
			_, err := New(opts, testLogger(), nil)
			assert.Error(t, err)
		})
	}
}

func TestEnhanceMonoTargetRateSine(t *testing.T) {
	in := sineBuffer(16000, 1, 12, 440, 0.3)

	out, report := newEnhancer(t).Enhance(in)

	assert.Equal(t, 16000, out.SampleRate)
	assert.Equal(t, 1, out.NumChannels())
	assert.Equal(t, in.NumFrames(), out.NumFrames())
	require.Len(t, report.Outcomes, 5)

	for i, name := range []string{StageVolume, StageNoise, StageResample, StageDownmix, StageHighPass} {
		assert.Equal(t, name, report.Outcomes[i].Stage)
	}

	volume, _ := report.Outcome(StageVolume)
	assert.True(t, volume.Applied)
	noise, _ := report.Outcome(StageNoise)
	assert.False(t, noise.Applied)
	assert.Equal(t, dsp.ErrStationarySignal.Error(), noise.Reason)
	resample, _ := report.Outcome(StageResample)
	assert.Equal(t, "already at 16000 Hz", resample.Reason)
	downmix, _ := report.Outcome(StageDownmix)
	assert.Equal(t, "already mono", downmix.Reason)
	highpass, _ := report.Outcome(StageHighPass)
	assert.True(t, highpass.Applied)

	// normalized to RMS 0.1 and the high-pass barely touches 440 Hz
	assert.InDelta(t, 0.1, dsp.RMS(out.Channels[0][16000:]), 0.005)

	improvements := report.Improvements()
	assert.Len(t, improvements, 2)
	assert.InDelta(t, 0.3/math.Sqrt2-0.1, improvements[StageVolume], 1e-3)

	// input untouched
	assert.InDelta(t, 0.3/math.Sqrt2, dsp.RMS(in.Channels[0]), 1e-3)
}

func TestEnhanceStereoHighRate(t *testing.T) {
	in := sineBuffer(44100, 2, 1, 1000, 0.5)

	out, report := newEnhancer(t).Enhance(in)

	assert.Equal(t, 16000, out.SampleRate)
	assert.Equal(t, 1, out.NumChannels())
	assert.Equal(t, 16000, out.NumFrames())

	improvements := report.Improvements()
	assert.InDelta(t, (44100.0-16000)/44100, improvements[StageResample], 1e-12)
	assert.Equal(t, 1.0, improvements[StageDownmix])
}

func TestVolumeNormalizationNeverClips(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = 0.001 * rng.NormFloat64()
	}
	samples[8000] = 0.05 // sparse spike dominates the peak

	e := newEnhancer(t)
	out, delta, err := e.normalizeVolume(audio.NewMonoBuffer(samples, 16000))
	require.NoError(t, err)

	assert.LessOrEqual(t, dsp.Peak(out.Channels[0]), 1.0)
	assert.InDelta(t, 1.0, dsp.Peak(out.Channels[0]), 1e-12)
	assert.Greater(t, delta, 0.0)

	loud := audio.NewMonoBuffer([]float64{0.9, -0.95, 0.99, -0.9}, 16000)
	out, _, err = e.normalizeVolume(loud)
	require.NoError(t, err)
	assert.LessOrEqual(t, dsp.Peak(out.Channels[0]), 1.0)
}

func TestEnhanceSilenceSkipsLevelStages(t *testing.T) {
	in := audio.NewBuffer(16000, 1, 16000)

	out, report := newEnhancer(t).Enhance(in)

	assert.Equal(t, in.Channels, out.Channels)
	assert.Empty(t, report.Improvements())

	volume, _ := report.Outcome(StageVolume)
	assert.Equal(t, "silent input", volume.Reason)
	highpass, _ := report.Outcome(StageHighPass)
	assert.Equal(t, "silent input", highpass.Reason)
}

func TestEnhanceInvalidBufferSkipsEverything(t *testing.T) {
	in := audio.NewBuffer(16000, 1, 0)

	out, report := newEnhancer(t).Enhance(in)

	assert.Same(t, in, out)
	require.Len(t, report.Outcomes, 5)
	for _, o := range report.Outcomes {
		assert.False(t, o.Applied)
		assert.Equal(t, audio.ErrEmptyBuffer.Error(), o.Reason)
	}
}

func TestFailingStagesAreIsolated(t *testing.T) {
	e := newEnhancer(t)
	e.stages = []stage{
		{"panics", func(*audio.Buffer) (*audio.Buffer, float64, error) {
			var s []float64
			return nil, s[3], nil
		}},
		{"errors", func(*audio.Buffer) (*audio.Buffer, float64, error) {
			return nil, 0, errors.New("decoder exploded")
		}},
		{"poisons", func(in *audio.Buffer) (*audio.Buffer, float64, error) {
			out := in.Clone()
			out.Channels[0][0] = math.NaN()
			return out, 1, nil
		}},
		{"doubles", func(in *audio.Buffer) (*audio.Buffer, float64, error) {
			out := in.Clone()
			for i := range out.Channels[0] {
				out.Channels[0][i] *= 2
			}
			return out, 2, nil
		}},
	}

	out, report := e.Enhance(audio.NewMonoBuffer([]float64{0.1, 0.2}, 16000))

	assert.Equal(t, []float64{0.2, 0.4}, out.Channels[0])
	require.Len(t, report.Outcomes, 4)
	assert.Contains(t, report.Outcomes[0].Reason, "panic")
	assert.Equal(t, "decoder exploded", report.Outcomes[1].Reason)
	assert.Contains(t, report.Outcomes[2].Reason, "non-finite")
	assert.Equal(t, map[string]float64{"doubles": 2}, report.Improvements())
}

func TestEnhanceRecordsStageMetrics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	e, err := New(DefaultOptions(), testLogger(), m)
	require.NoError(t, err)

	e.Enhance(sineBuffer(8000, 1, 0.5, 440, 0.2))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Stages.WithLabelValues(StageResample, "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Stages.WithLabelValues(StageDownmix, "skipped")))
}

func TestEnhanceIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	in := audio.NewBuffer(22050, 2, 22050)
	for c := range in.Channels {
		for i := range in.Channels[c] {
			in.Channels[c][i] = 0.1 * rng.NormFloat64()
		}
	}

	e := newEnhancer(t)
	first, _ := e.Enhance(in)
	second, _ := e.Enhance(in)

	assert.Equal(t, first.Channels, second.Channels)
}
