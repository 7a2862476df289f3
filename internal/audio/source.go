package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupportedFormat is returned for containers the decoder does not understand
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Container format names reported in Info.Format
const (
	FormatWAV = "WAV"
	FormatOGG = "OGG"
)

// Info describes an audio file without decoding its samples
type Info struct {
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"` // 0 for compressed sources
	Frames     int64  `json:"frames"`
	SizeBytes  int64  `json:"file_size_bytes"`
}

// Seconds returns the file duration in seconds
func (i Info) Seconds() float64 {
	if i.SampleRate <= 0 {
		return 0
	}
	return float64(i.Frames) / float64(i.SampleRate)
}

// Source is an opened audio file that supports ranged frame reads
type Source interface {
	// Info returns the header-derived description of the file
	Info() Info
	// ReadFrames decodes count frames starting at frame offset; the range is
	// clipped to the file, so the returned buffer may be shorter than count
	ReadFrames(offset, count int64) (*Buffer, error)
	// ReadAll decodes the whole file
	ReadAll() (*Buffer, error)
	Close() error
}

// Open detects the container by its magic bytes and returns a Source
func Open(path string) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat audio file %s: %w", path, err)
	}

	magic := make([]byte, 12)
	if _, err := io.ReadFull(file, magic); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}

	var src Source
	switch {
	case bytes.Equal(magic[0:4], []byte("RIFF")) && bytes.Equal(magic[8:12], []byte("WAVE")):
		src, err = openWAV(file, stat.Size())
	case bytes.Equal(magic[0:4], []byte("OggS")):
		src, err = openOgg(file, stat.Size())
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return src, nil
}

// Probe returns the Info of a file without decoding samples
func Probe(path string) (Info, error) {
	src, err := Open(path)
	if err != nil {
		return Info{}, err
	}
	defer src.Close()
	return src.Info(), nil
}

// ReadFile decodes an entire file into memory
func ReadFile(path string) (*Buffer, Info, error) {
	src, err := Open(path)
	if err != nil {
		return nil, Info{}, err
	}
	defer src.Close()

	buf, err := src.ReadAll()
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, src.Info(), nil
}

// clipRange bounds a frame range to [0, total)
func clipRange(offset, count, total int64) (int64, int64) {
	if offset < 0 {
		count += offset
		offset = 0
	}
	if offset > total {
		offset = total
	}
	if count < 0 {
		count = 0
	}
	if offset+count > total {
		count = total - offset
	}
	return offset, count
}
