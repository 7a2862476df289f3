package optimizer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/speech-prep-service/internal/metrics"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF0000WAVE"), 0644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestCleanupRemovesOnlyOldTempFiles(t *testing.T) {
	cfg := testConfig(t)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	o := newOptimizer(t, cfg, m)
	dir := cfg.Cleanup.ScratchDir

	recent := writeAged(t, dir, "audioprep-recent.wav", time.Hour)
	old := writeAged(t, dir, "audioprep-old.wav", 30*time.Hour)
	foreign := writeAged(t, dir, "recording.wav", 30*time.Hour)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "audioprep-dir.wav"), 0755))

	report := o.Cleanup(24)

	assert.Equal(t, dir, report.Dir)
	assert.Equal(t, []string{old}, report.Removed)
	assert.Equal(t, int64(12), report.BytesRemoved)
	assert.Zero(t, report.Failures)

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	for _, kept := range []string{recent, foreign} {
		_, err := os.Stat(kept)
		assert.NoError(t, err, kept)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesRemoved))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.BytesRemoved))
}

func TestCleanupNegativeAgeUsesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.MaxAgeHours = 2
	o := newOptimizer(t, cfg, nil)

	stale := writeAged(t, cfg.Cleanup.ScratchDir, "audioprep-stale.wav", 3*time.Hour)
	report := o.Cleanup(-1)
	assert.Equal(t, []string{stale}, report.Removed)
}

func TestCleanupMissingDirectory(t *testing.T) {
	cfg := testConfig(t)
	o := newOptimizer(t, cfg, nil)
	require.NoError(t, os.RemoveAll(cfg.Cleanup.ScratchDir))

	report := o.Cleanup(24)
	assert.Empty(t, report.Removed)
	assert.Equal(t, 1, report.Failures)
}

func TestCleanupRemovesProcessedOutput(t *testing.T) {
	cfg := testConfig(t)
	o := newOptimizer(t, cfg, nil)
	path := writeSine(t, t.TempDir(), "short.wav", 16000, 1, 2)

	result := o.Process(path, ProcessOptions{EnhanceQuality: true})
	require.True(t, result.Success, result.Error)

	assert.Empty(t, o.Cleanup(1).Removed, "fresh output is kept")
	assert.Equal(t, []string{result.ProcessedFile}, o.Cleanup(0).Removed)
}
