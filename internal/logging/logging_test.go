package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/speech-prep-service/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestFileOutputWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audioprep.log")

	logger, closer := New(config.LoggingConfig{
		Level:      "warn",
		Format:     "json",
		Output:     path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	})

	logger.Info("Dropped below level")
	logger.Warn("Stage skipped", slog.String("stage", "noise_reduction"))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "Stage skipped", record["msg"])
	assert.Equal(t, "noise_reduction", record["stage"])
}

func TestStandardStreamsHaveNoopCloser(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", ""} {
		logger, closer := New(config.LoggingConfig{Level: "info", Format: "text", Output: output})
		assert.NotNil(t, logger)
		assert.NoError(t, closer.Close())
	}
}
