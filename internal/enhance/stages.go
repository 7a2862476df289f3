package enhance

import (
	"errors"
	"math"

	"github.com/skypro1111/speech-prep-service/internal/audio"
	"github.com/skypro1111/speech-prep-service/internal/dsp"
)

// normalizeVolume scales toward the target RMS, capped so the peak stays at or below 1
func (e *Enhancer) normalizeVolume(in *audio.Buffer) (*audio.Buffer, float64, error) {
	samples := in.Interleave()
	rms := dsp.RMS(samples)
	peak := dsp.Peak(samples)
	if rms == 0 || peak == 0 {
		return nil, 0, skip("silent input")
	}

	scale := math.Min(e.opts.TargetRMS/rms, 1/peak)

	out := audio.NewBuffer(in.SampleRate, in.NumChannels(), in.NumFrames())
	for c, ch := range in.Channels {
		for i, v := range ch {
			out.Channels[c][i] = math.Max(-1, math.Min(1, v*scale))
		}
	}

	return out, math.Abs(dsp.RMS(out.Interleave()) - rms), nil
}

// reduceNoise applies spectral gating per channel. Channels without a
// usable noise profile pass through untouched.
func (e *Enhancer) reduceNoise(in *audio.Buffer) (*audio.Buffer, float64, error) {
	out := &audio.Buffer{
		SampleRate: in.SampleRate,
		Channels:   make([][]float64, in.NumChannels()),
	}

	var (
		gated     int
		skipCause error
	)
	for c, ch := range in.Channels {
		cleaned, err := dsp.SpectralGate(ch, e.opts.Gate)
		switch {
		case errors.Is(err, dsp.ErrStationarySignal), errors.Is(err, dsp.ErrSilentSignal):
			out.Channels[c] = ch
			if skipCause == nil {
				skipCause = err
			}
		case err != nil:
			return nil, 0, err
		default:
			out.Channels[c] = cleaned
			gated++
		}
	}
	if gated == 0 {
		return nil, 0, skip("%v", skipCause)
	}

	before := dsp.NoiseFloor(in.Mixdown(), 0.1)
	after := dsp.NoiseFloor(out.Mixdown(), 0.1)
	return out, math.Max(0, before-after), nil
}

// resample converts every channel to the target rate
func (e *Enhancer) resample(in *audio.Buffer) (*audio.Buffer, float64, error) {
	target := e.opts.TargetSampleRate
	if in.SampleRate == target {
		return nil, 0, skip("already at %d Hz", target)
	}

	out := &audio.Buffer{
		SampleRate: target,
		Channels:   make([][]float64, in.NumChannels()),
	}
	for c, ch := range in.Channels {
		resampled, err := dsp.Resample(ch, in.SampleRate, target)
		if err != nil {
			return nil, 0, err
		}
		out.Channels[c] = resampled
	}

	return out, math.Abs(float64(in.SampleRate-target)) / float64(in.SampleRate), nil
}

// downmix averages all channels to mono
func (e *Enhancer) downmix(in *audio.Buffer) (*audio.Buffer, float64, error) {
	if in.NumChannels() == 1 {
		return nil, 0, skip("already mono")
	}
	return audio.NewMonoBuffer(in.Mixdown(), in.SampleRate), 1.0, nil
}

// highPass removes rumble below the cutoff and reports the removed energy share
func (e *Enhancer) highPass(in *audio.Buffer) (*audio.Buffer, float64, error) {
	filter, err := dsp.NewHighPass(e.opts.HighPassCutoff, in.SampleRate)
	if err != nil {
		return nil, 0, err
	}

	var energyIn, energyOut float64
	out := &audio.Buffer{
		SampleRate: in.SampleRate,
		Channels:   make([][]float64, in.NumChannels()),
	}
	for c, ch := range in.Channels {
		filtered := filter.Apply(ch)
		energyIn += dsp.Energy(ch)
		energyOut += dsp.Energy(filtered)
		out.Channels[c] = filtered
	}
	if energyIn == 0 {
		return nil, 0, skip("silent input")
	}

	return out, math.Max(0, 1-energyOut/energyIn), nil
}
