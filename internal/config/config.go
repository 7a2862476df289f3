package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Enhancement EnhancementConfig `yaml:"enhancement"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Queue       QueueConfig       `yaml:"queue"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// AudioConfig contains the output format and enhancement parameters
type AudioConfig struct {
	TargetSampleRate    int     `yaml:"target_sample_rate"`
	TargetChannels      int     `yaml:"target_channels"`
	TargetRMS           float64 `yaml:"target_rms"`
	HighPassCutoff      float64 `yaml:"highpass_cutoff_hz"`
	NoiseGateMultiplier float64 `yaml:"noise_gate_multiplier"`
}

// ChunkingConfig contains chunked processing parameters
type ChunkingConfig struct {
	ChunkDuration   float64 `yaml:"chunk_duration"`   // seconds
	OverlapDuration float64 `yaml:"overlap_duration"` // seconds
	MinDuration     float64 `yaml:"min_duration"`     // seconds; longer files take the chunked route
}

// EnhancementConfig contains the should-enhance thresholds
type EnhancementConfig struct {
	QualityThreshold  float64 `yaml:"quality_threshold"`
	NoiseThreshold    float64 `yaml:"noise_threshold"`
	DurationThreshold float64 `yaml:"duration_threshold"` // seconds
}

// AnalysisConfig selects the speech scorer
type AnalysisConfig struct {
	SpeechScorer string `yaml:"speech_scorer"` // cepstral or energy
}

// QueueConfig contains background worker parameters
type QueueConfig struct {
	Capacity        int `yaml:"capacity"`
	JobRetention    int `yaml:"job_retention"`    // seconds
	JanitorInterval int `yaml:"janitor_interval"` // seconds
}

// CleanupConfig contains scratch directory housekeeping parameters
type CleanupConfig struct {
	ScratchDir  string  `yaml:"scratch_dir"`
	MaxAgeHours float64 `yaml:"max_age_hours"`
	Interval    int     `yaml:"interval"` // seconds, 0 disables periodic sweeps
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig contains metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty disables export
}

// Default returns the documented defaults
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			TargetSampleRate:    16000,
			TargetChannels:      1,
			TargetRMS:           0.1,
			HighPassCutoff:      80,
			NoiseGateMultiplier: 1.5,
		},
		Chunking: ChunkingConfig{
			ChunkDuration:   30,
			OverlapDuration: 2,
			MinDuration:     60,
		},
		Enhancement: EnhancementConfig{
			QualityThreshold:  0.6,
			NoiseThreshold:    0.3,
			DurationThreshold: 300,
		},
		Analysis: AnalysisConfig{
			SpeechScorer: "cepstral",
		},
		Queue: QueueConfig{
			Capacity:        64,
			JobRetention:    3600,
			JanitorInterval: 60,
		},
		Cleanup: CleanupConfig{
			MaxAgeHours: 24,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the configuration file over the defaults and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}

	if err := c.Enhancement.Validate(); err != nil {
		return fmt.Errorf("enhancement config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Cleanup.Validate(); err != nil {
		return fmt.Errorf("cleanup config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate < 8000 || a.TargetSampleRate > 192000 {
		return fmt.Errorf("target_sample_rate must be between 8000 and 192000 Hz, got %d", a.TargetSampleRate)
	}

	if a.TargetChannels != 1 {
		return fmt.Errorf("target_channels must be 1 (mono), got %d", a.TargetChannels)
	}

	if a.TargetRMS <= 0 || a.TargetRMS > 1 {
		return fmt.Errorf("target_rms must be in (0, 1], got %f", a.TargetRMS)
	}

	if a.HighPassCutoff <= 0 || a.HighPassCutoff >= float64(a.TargetSampleRate)/2 {
		return fmt.Errorf("highpass_cutoff_hz must be between 0 and %d, got %f", a.TargetSampleRate/2, a.HighPassCutoff)
	}

	if a.NoiseGateMultiplier <= 0 {
		return fmt.Errorf("noise_gate_multiplier must be positive, got %f", a.NoiseGateMultiplier)
	}

	return nil
}

// Validate validates chunking configuration
func (c *ChunkingConfig) Validate() error {
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", c.ChunkDuration)
	}

	if c.OverlapDuration < 0 || c.OverlapDuration >= c.ChunkDuration {
		return fmt.Errorf("overlap_duration (%f) must be non-negative and shorter than chunk_duration (%f)",
			c.OverlapDuration, c.ChunkDuration)
	}

	if c.MinDuration < 0 {
		return fmt.Errorf("min_duration cannot be negative, got %f", c.MinDuration)
	}

	return nil
}

// Validate validates enhancement thresholds
func (e *EnhancementConfig) Validate() error {
	if e.QualityThreshold < 0 || e.QualityThreshold > 1 {
		return fmt.Errorf("quality_threshold must be between 0 and 1, got %f", e.QualityThreshold)
	}

	if e.NoiseThreshold < 0 || e.NoiseThreshold > 1 {
		return fmt.Errorf("noise_threshold must be between 0 and 1, got %f", e.NoiseThreshold)
	}

	if e.DurationThreshold <= 0 {
		return fmt.Errorf("duration_threshold must be positive, got %f", e.DurationThreshold)
	}

	return nil
}

// Validate validates analysis configuration
func (a *AnalysisConfig) Validate() error {
	validScorers := map[string]bool{"cepstral": true, "energy": true}
	if !validScorers[a.SpeechScorer] {
		return fmt.Errorf("speech_scorer must be 'cepstral' or 'energy', got '%s'", a.SpeechScorer)
	}

	return nil
}

// Validate validates queue configuration
func (q *QueueConfig) Validate() error {
	if q.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", q.Capacity)
	}

	if q.JobRetention < 1 {
		return fmt.Errorf("job_retention must be at least 1 second, got %d", q.JobRetention)
	}

	if q.JanitorInterval < 1 {
		return fmt.Errorf("janitor_interval must be at least 1 second, got %d", q.JanitorInterval)
	}

	return nil
}

// Validate validates cleanup configuration
func (c *CleanupConfig) Validate() error {
	if c.MaxAgeHours < 0 {
		return fmt.Errorf("max_age_hours cannot be negative, got %f", c.MaxAgeHours)
	}

	if c.Interval < 0 {
		return fmt.Errorf("interval cannot be negative, got %d", c.Interval)
	}

	if c.ScratchDir != "" {
		info, err := os.Stat(c.ScratchDir)
		if err != nil {
			return fmt.Errorf("scratch_dir %s is not accessible: %w", c.ScratchDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("scratch_dir %s is not a directory", c.ScratchDir)
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return fmt.Errorf("rotation limits cannot be negative")
	}

	return nil
}

// GetChunkDuration returns the chunk duration as a time.Duration
func (c *ChunkingConfig) GetChunkDuration() time.Duration {
	return time.Duration(c.ChunkDuration * float64(time.Second))
}

// GetOverlapDuration returns the chunk overlap as a time.Duration
func (c *ChunkingConfig) GetOverlapDuration() time.Duration {
	return time.Duration(c.OverlapDuration * float64(time.Second))
}

// GetMinDuration returns the chunked-route threshold as a time.Duration
func (c *ChunkingConfig) GetMinDuration() time.Duration {
	return time.Duration(c.MinDuration * float64(time.Second))
}

// GetDurationThreshold returns the should-enhance duration threshold as a time.Duration
func (e *EnhancementConfig) GetDurationThreshold() time.Duration {
	return time.Duration(e.DurationThreshold * float64(time.Second))
}

// GetJobRetention returns how long finished job statuses are kept
func (q *QueueConfig) GetJobRetention() time.Duration {
	return time.Duration(q.JobRetention) * time.Second
}

// GetJanitorInterval returns the janitor tick as a time.Duration
func (q *QueueConfig) GetJanitorInterval() time.Duration {
	return time.Duration(q.JanitorInterval) * time.Second
}

// GetMaxAge returns the cleanup age threshold as a time.Duration
func (c *CleanupConfig) GetMaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours * float64(time.Hour))
}

// GetInterval returns the periodic sweep interval as a time.Duration
func (c *CleanupConfig) GetInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}
