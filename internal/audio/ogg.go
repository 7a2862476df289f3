package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// oggSource decodes Ogg Vorbis files; seeking is delegated to the vorbis reader
type oggSource struct {
	file   *os.File
	reader *oggvorbis.Reader
	info   Info
}

func openOgg(file *os.File, size int64) (*oggSource, error) {
	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Ogg Vorbis stream: %w", err)
	}
	if reader.Channels() < 1 || reader.SampleRate() <= 0 {
		return nil, fmt.Errorf("invalid Ogg Vorbis stream: %d channels at %d Hz", reader.Channels(), reader.SampleRate())
	}

	return &oggSource{
		file:   file,
		reader: reader,
		info: Info{
			Format:     FormatOGG,
			SampleRate: reader.SampleRate(),
			Channels:   reader.Channels(),
			Frames:     reader.Length(),
			SizeBytes:  size,
		},
	}, nil
}

// Info returns the stream description
func (s *oggSource) Info() Info {
	return s.info
}

// ReadFrames positions the vorbis reader and decodes count frames
func (s *oggSource) ReadFrames(offset, count int64) (*Buffer, error) {
	offset, count = clipRange(offset, count, s.info.Frames)
	if count == 0 {
		return NewBuffer(s.info.SampleRate, s.info.Channels, 0), nil
	}

	if err := s.reader.SetPosition(offset); err != nil {
		return nil, fmt.Errorf("failed to seek to frame %d: %w", offset, err)
	}

	return s.decode(count)
}

// ReadAll decodes from the start of the stream to its end
func (s *oggSource) ReadAll() (*Buffer, error) {
	if err := s.reader.SetPosition(0); err != nil {
		return nil, fmt.Errorf("failed to rewind Ogg Vorbis stream: %w", err)
	}
	return s.decode(s.info.Frames)
}

func (s *oggSource) decode(frames int64) (*Buffer, error) {
	channels := s.info.Channels
	want := int(frames) * channels
	samples := make([]float64, 0, want)
	block := make([]float32, 4096*channels)

	for len(samples) < want {
		n, err := s.reader.Read(block)
		for _, v := range block[:n] {
			samples = append(samples, float64(v))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode Ogg Vorbis audio: %w", err)
		}
		if n == 0 {
			break
		}
	}
	if len(samples) > want {
		samples = samples[:want]
	}

	return Deinterleave(samples, channels, s.info.SampleRate), nil
}

// Close releases the underlying file
func (s *oggSource) Close() error {
	return s.file.Close()
}
