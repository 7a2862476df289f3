package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// OutputBitDepth is the sample width of every WAV this package writes
	OutputBitDepth = 16
)

// riffHeader is the 12-byte preamble of a WAV file
type riffHeader struct {
	ChunkID   [4]byte // "RIFF"
	ChunkSize uint32  // File size - 8 bytes
	Format    [4]byte // "WAVE"
}

// chunkHeader precedes every RIFF sub-chunk
type chunkHeader struct {
	ID   [4]byte
	Size uint32
}

// fmtChunk is the PCM portion of the "fmt " sub-chunk
type fmtChunk struct {
	AudioFormat   uint16 // 1 for PCM, 0xFFFE for extensible (resolved to the SubFormat tag)
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
}

// fmtExtension follows fmtChunk when AudioFormat is extensible
type fmtExtension struct {
	CbSize      uint16
	ValidBits   uint16
	ChannelMask uint32
	SubFormat   [16]byte // GUID; the first two bytes carry the format tag
}

// wavSource reads PCM frames straight from the data chunk, seeking by frame
type wavSource struct {
	file       *os.File
	info       Info
	dataOffset int64
	blockAlign int
}

// openWAV walks the RIFF chunks to locate "fmt " and "data"
func openWAV(file *os.File, size int64) (*wavSource, error) {
	var header riffHeader
	if err := binary.Read(file, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var format *fmtChunk
	for {
		var ch chunkHeader
		if err := binary.Read(file, binary.LittleEndian, &ch); err != nil {
			return nil, fmt.Errorf("invalid WAV file: missing data chunk: %w", err)
		}

		switch string(ch.ID[:]) {
		case "fmt ":
			if ch.Size < 16 {
				return nil, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", ch.Size)
			}
			format = &fmtChunk{}
			if err := binary.Read(file, binary.LittleEndian, format); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			rest := int64(ch.Size) - 16
			if format.AudioFormat == wavFormatExtensible {
				if rest < 24 {
					return nil, fmt.Errorf("invalid WAV file: extensible fmt chunk too short (%d bytes)", ch.Size)
				}
				var ext fmtExtension
				if err := binary.Read(file, binary.LittleEndian, &ext); err != nil {
					return nil, fmt.Errorf("failed to read fmt extension: %w", err)
				}
				rest -= 24
				format.AudioFormat = binary.LittleEndian.Uint16(ext.SubFormat[:2])
			}
			if err := skipChunk(file, rest); err != nil {
				return nil, err
			}

		case "data":
			if format == nil {
				return nil, fmt.Errorf("invalid WAV file: data chunk before fmt chunk")
			}
			offset, err := file.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, fmt.Errorf("failed to locate data chunk: %w", err)
			}
			return newWAVSource(file, format, offset, int64(ch.Size), size)

		default:
			if err := skipChunk(file, int64(ch.Size)); err != nil {
				return nil, err
			}
		}
	}
}

func newWAVSource(file *os.File, format *fmtChunk, offset, dataSize, fileSize int64) (*wavSource, error) {
	if format.AudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV audio format %d (only PCM is supported)", ErrUnsupportedFormat, format.AudioFormat)
	}
	switch format.BitsPerSample {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: bit depth %d (16, 24 or 32 supported)", ErrUnsupportedFormat, format.BitsPerSample)
	}
	if format.NumChannels == 0 {
		return nil, fmt.Errorf("invalid WAV file: zero channels")
	}
	if format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	blockAlign := int(format.NumChannels) * int(format.BitsPerSample) / 8

	// Streaming writers leave the size at 0 or 0xFFFFFFFF; trust the file length then
	if remaining := fileSize - offset; dataSize == 0 || dataSize > remaining {
		dataSize = remaining
	}

	return &wavSource{
		file: file,
		info: Info{
			Format:     FormatWAV,
			SampleRate: int(format.SampleRate),
			Channels:   int(format.NumChannels),
			BitDepth:   int(format.BitsPerSample),
			Frames:     dataSize / int64(blockAlign),
			SizeBytes:  fileSize,
		},
		dataOffset: offset,
		blockAlign: blockAlign,
	}, nil
}

func skipChunk(file *os.File, size int64) error {
	if size < 0 {
		return fmt.Errorf("invalid WAV chunk size %d", size)
	}
	// RIFF chunks are word aligned
	if size%2 == 1 {
		size++
	}
	if _, err := file.Seek(size, io.SeekCurrent); err != nil {
		return fmt.Errorf("failed to skip WAV chunk: %w", err)
	}
	return nil
}

// Info returns the header-derived description
func (s *wavSource) Info() Info {
	return s.info
}

// ReadFrames seeks into the data chunk and decodes the requested range
func (s *wavSource) ReadFrames(offset, count int64) (*Buffer, error) {
	offset, count = clipRange(offset, count, s.info.Frames)

	buf := NewBuffer(s.info.SampleRate, s.info.Channels, int(count))
	if count == 0 {
		return buf, nil
	}

	if _, err := s.file.Seek(s.dataOffset+offset*int64(s.blockAlign), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to frame %d: %w", offset, err)
	}

	raw := make([]byte, count*int64(s.blockAlign))
	if _, err := io.ReadFull(s.file, raw); err != nil {
		return nil, fmt.Errorf("failed to read %d frames at %d: %w", count, offset, err)
	}

	width := s.info.BitDepth / 8
	scale := 1.0 / math.Exp2(float64(s.info.BitDepth-1))
	channels := s.info.Channels
	for i := 0; i < int(count); i++ {
		for c := 0; c < channels; c++ {
			pos := i*s.blockAlign + c*width
			buf.Channels[c][i] = float64(decodePCM(raw[pos:pos+width])) * scale
		}
	}

	return buf, nil
}

// decodePCM converts one little-endian signed PCM sample
func decodePCM(b []byte) int32 {
	switch len(b) {
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return v
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}

// ReadAll decodes the whole file through the go-audio decoder
func (s *wavSource) ReadAll() (*Buffer, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind WAV file: %w", err)
	}

	decoder := wav.NewDecoder(s.file)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if pcm == nil || pcm.Format == nil {
		return nil, errors.New("decoder returned no PCM data")
	}

	channels := pcm.Format.NumChannels
	if channels < 1 {
		channels = s.info.Channels
	}
	scale := 1.0 / math.Exp2(float64(s.info.BitDepth-1))

	frames := len(pcm.Data) / channels
	buf := NewBuffer(s.info.SampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			buf.Channels[c][i] = float64(pcm.Data[i*channels+c]) * scale
		}
	}

	return buf, nil
}

// Close releases the underlying file
func (s *wavSource) Close() error {
	return s.file.Close()
}

// EncodeWAV writes the buffer as 16-bit PCM WAV
func EncodeWAV(w io.WriteSeeker, b *Buffer) error {
	if b.NumFrames() == 0 {
		return ErrEmptyBuffer
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}

	channels := b.NumChannels()
	const peak = 1<<(OutputBitDepth-1) - 1

	interleaved := b.Interleave()
	data := make([]int, len(interleaved))
	for i, v := range interleaved {
		data[i] = int(math.Round(clamp(v, -1, 1) * peak))
	}

	pcm := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: OutputBitDepth,
	}

	encoder := wav.NewEncoder(w, b.SampleRate, OutputBitDepth, channels, wavFormatPCM)
	if err := encoder.Write(pcm); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}

	return nil
}

// WriteWAV creates path and encodes the buffer into it
func WriteWAV(path string, b *Buffer) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeWAV(file, b); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
