package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quantum = 2.0 / 32767

func sineBuffer(sampleRate, channels int, seconds, frequency, amplitude float64) *Buffer {
	frames := int(float64(sampleRate) * seconds)
	b := NewBuffer(sampleRate, channels, frames)
	for c := 0; c < channels; c++ {
		for i := 0; i < frames; i++ {
			t := float64(i) / float64(sampleRate)
			b.Channels[c][i] = amplitude * math.Sin(2*math.Pi*frequency*t+float64(c))
		}
	}
	return b
}

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sine.wav")
	original := sineBuffer(16000, 2, 0.5, 440, 0.5)

	require.NoError(t, WriteWAV(path, original))

	decoded, info, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, FormatWAV, info.Format)
	assert.Equal(t, 16000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 16, info.BitDepth)
	assert.Equal(t, int64(8000), info.Frames)
	assert.InDelta(t, 0.5, info.Seconds(), 1e-9)

	require.Equal(t, original.NumChannels(), decoded.NumChannels())
	require.Equal(t, original.NumFrames(), decoded.NumFrames())
	for c := range original.Channels {
		for i := range original.Channels[c] {
			if math.Abs(original.Channels[c][i]-decoded.Channels[c][i]) > quantum {
				t.Fatalf("sample %d/%d: expected %.6f, got %.6f", c, i, original.Channels[c][i], decoded.Channels[c][i])
			}
		}
	}
}

func TestReadFramesMatchesReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranged.wav")
	require.NoError(t, WriteWAV(path, sineBuffer(8000, 1, 1.0, 300, 0.8)))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	all, err := src.ReadAll()
	require.NoError(t, err)

	part, err := src.ReadFrames(1000, 500)
	require.NoError(t, err)
	require.Equal(t, 500, part.NumFrames())
	assert.Equal(t, all.Channels[0][1000:1500], part.Channels[0])

	// Ranges past the end are clipped
	tail, err := src.ReadFrames(7900, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, tail.NumFrames())

	empty, err := src.ReadFrames(9000, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NumFrames())
}

// handcrafted file with a LIST chunk between fmt and data
func TestOpenSkipsUnknownChunks(t *testing.T) {
	samples := []int16{100, -200, 300, -400, 500}

	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.LittleEndian, samples))

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(16)))
	require.NoError(t, binary.Write(&body, binary.LittleEndian, fmtChunk{
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    8000,
		ByteRate:      16000,
		BlockAlign:    2,
		BitsPerSample: 16,
	}))
	body.WriteString("LIST")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(3)))
	body.Write([]byte{'a', 'b', 'c', 0}) // odd size plus pad byte
	body.WriteString("data")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(data.Len())))
	body.Write(data.Bytes())

	var file bytes.Buffer
	file.WriteString("RIFF")
	require.NoError(t, binary.Write(&file, binary.LittleEndian, uint32(body.Len())))
	file.Write(body.Bytes())

	path := filepath.Join(t.TempDir(), "list.wav")
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o644))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(5), src.Info().Frames)

	buf, err := src.ReadFrames(0, 5)
	require.NoError(t, err)
	for i, s := range samples {
		assert.InDelta(t, float64(s)/32768, buf.Channels[0][i], 1e-12)
	}
}

// writeExtensibleWAV writes a mono 16-bit WAVE_FORMAT_EXTENSIBLE file whose
// SubFormat GUID starts with subFormat
func writeExtensibleWAV(t *testing.T, subFormat uint16, samples []int16) string {
	t.Helper()

	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.LittleEndian, samples))

	ext := fmtExtension{CbSize: 22, ValidBits: 16, ChannelMask: 0x4}
	binary.LittleEndian.PutUint16(ext.SubFormat[:2], subFormat)
	copy(ext.SubFormat[2:], []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(40)))
	require.NoError(t, binary.Write(&body, binary.LittleEndian, fmtChunk{
		AudioFormat:   wavFormatExtensible,
		NumChannels:   1,
		SampleRate:    16000,
		ByteRate:      32000,
		BlockAlign:    2,
		BitsPerSample: 16,
	}))
	require.NoError(t, binary.Write(&body, binary.LittleEndian, ext))
	body.WriteString("data")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(data.Len())))
	body.Write(data.Bytes())

	var file bytes.Buffer
	file.WriteString("RIFF")
	require.NoError(t, binary.Write(&file, binary.LittleEndian, uint32(body.Len())))
	file.Write(body.Bytes())

	path := filepath.Join(t.TempDir(), "extensible.wav")
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o644))
	return path
}

func TestOpenExtensiblePCM(t *testing.T) {
	samples := []int16{1000, -2000, 3000, -4000}
	path := writeExtensibleWAV(t, wavFormatPCM, samples)

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 16000, src.Info().SampleRate)
	assert.Equal(t, int64(4), src.Info().Frames)

	buf, err := src.ReadFrames(0, 4)
	require.NoError(t, err)
	for i, s := range samples {
		assert.InDelta(t, float64(s)/32768, buf.Channels[0][i], 1e-12)
	}
}

func TestOpenRejectsExtensibleFloat(t *testing.T) {
	path := writeExtensibleWAV(t, 3, []int16{0, 0, 0, 0}) // IEEE float

	_, err := Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "WAV audio format 3")
}

func TestOpenRejectsTruncatedExtensibleHeader(t *testing.T) {
	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(18)))
	require.NoError(t, binary.Write(&body, binary.LittleEndian, fmtChunk{
		AudioFormat:   wavFormatExtensible,
		NumChannels:   1,
		SampleRate:    16000,
		ByteRate:      32000,
		BlockAlign:    2,
		BitsPerSample: 16,
	}))
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint16(0)))

	var file bytes.Buffer
	file.WriteString("RIFF")
	require.NoError(t, binary.Write(&file, binary.LittleEndian, uint32(body.Len())))
	file.Write(body.Bytes())

	path := filepath.Join(t.TempDir(), "short.wav")
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extensible fmt chunk too short")
}

func TestOpenRejectsUnknownContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x42}, 64), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Probe(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestEncodeWAVClipsAndRejectsEmpty(t *testing.T) {
	dir := t.TempDir()

	err := WriteWAV(filepath.Join(dir, "empty.wav"), NewBuffer(16000, 1, 0))
	assert.ErrorIs(t, err, ErrEmptyBuffer)

	hot := NewMonoBuffer([]float64{2.0, -3.0, 0.25}, 16000)
	path := filepath.Join(dir, "hot.wav")
	require.NoError(t, WriteWAV(path, hot))

	decoded, _, err := ReadFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, decoded.Channels[0][0], quantum)
	assert.InDelta(t, -1.0, decoded.Channels[0][1], quantum)
	assert.InDelta(t, 0.25, decoded.Channels[0][2], quantum)
}

func TestWriteTemp(t *testing.T) {
	dir := t.TempDir()

	path, size, err := WriteTemp(dir, sineBuffer(16000, 1, 0.1, 440, 0.3))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, IsTempFile(path))
	assert.Equal(t, int64(44+1600*2), size)

	other, _, err := WriteTemp(dir, sineBuffer(16000, 1, 0.1, 440, 0.3))
	require.NoError(t, err)
	assert.NotEqual(t, path, other)

	assert.False(t, IsTempFile(filepath.Join(dir, "upload.wav")))
	assert.False(t, IsTempFile(filepath.Join(dir, "audioprep-notes.txt")))
}
