package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempPrefix marks files written by WriteTemp so sweeps never touch foreign files
const TempPrefix = "audioprep-"

// WriteTemp encodes the buffer into a uniquely named WAV in dir (the OS temp
// dir when empty) and returns its path and size. The caller owns the file.
func WriteTemp(dir string, b *Buffer) (string, int64, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	file, err := os.CreateTemp(dir, TempPrefix+"*.wav")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	path := file.Name()

	if err := EncodeWAV(file, b); err != nil {
		file.Close()
		os.Remove(path)
		return "", 0, err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to close %s: %w", path, err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return path, stat.Size(), nil
}

// IsTempFile reports whether a path looks like a WriteTemp output
func IsTempFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, TempPrefix) && strings.HasSuffix(name, ".wav")
}
