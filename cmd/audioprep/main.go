package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/skypro1111/speech-prep-service/internal/config"
	"github.com/skypro1111/speech-prep-service/internal/logging"
	"github.com/skypro1111/speech-prep-service/internal/metrics"
	"github.com/skypro1111/speech-prep-service/internal/optimizer"
)

const (
	serviceName    = "audioprep"
	serviceVersion = "1.0.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs; it is built before a command
// runs and torn down after it
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	registry  *prometheus.Registry
	optimizer *optimizer.Optimizer
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     serviceName,
		Short:   "Prepare audio files for speech recognition",
		Version: serviceVersion,
		Long: `audioprep analyzes audio files and prepares them for a speech recognizer.

It scores recording quality, noise and speech likelihood, and can normalize
volume, reduce noise, resample to the recognizer rate, downmix to mono and
remove low-frequency rumble. Long files are processed in overlapping chunks
that are crossfaded back together.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (defaults apply when empty)")

	run := func(fn func(a *app) error) error {
		a, err := newApp(configPath)
		if err != nil {
			return err
		}
		runErr := fn(a)
		if err := a.close(); err != nil && runErr == nil {
			return err
		}
		return runErr
	}

	root.AddCommand(newAnalyzeCmd(run))
	root.AddCommand(newProcessCmd(run))
	root.AddCommand(newCleanupCmd(run))

	return root
}

// runner builds the app, runs fn and tears the app down
type runner func(fn func(a *app) error) error

func newApp(configPath string) (*app, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	// stdout carries command output
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	logger, closer := logging.New(cfg.Logging)

	logger.Debug("Configuration loaded",
		slog.String("config_path", configPath),
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.Float64("chunk_duration", cfg.Chunking.ChunkDuration),
		slog.Float64("overlap_duration", cfg.Chunking.OverlapDuration),
		slog.String("speech_scorer", cfg.Analysis.SpeechScorer),
		slog.String("scratch_dir", cfg.Cleanup.ScratchDir),
	)

	registry := prometheus.NewRegistry()
	opt, err := optimizer.New(cfg, logger, metrics.NewMetrics(registry))
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to create optimizer: %w", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: closer,
		registry:  registry,
		optimizer: opt,
	}, nil
}

// close stops the optimizer, exports metrics and releases the log output
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.optimizer.Stop(ctx); err != nil {
		a.logger.Warn("Optimizer did not stop cleanly", slog.String("error", err.Error()))
	}

	var exportErr error
	if path := a.cfg.Metrics.Textfile; path != "" {
		if exportErr = metrics.WriteTextfile(path, a.registry); exportErr != nil {
			a.logger.Error("Failed to export metrics", slog.String("error", exportErr.Error()))
		} else {
			a.logger.Debug("Metrics exported", slog.String("path", path))
		}
	}

	if err := a.logCloser.Close(); err != nil && exportErr == nil {
		return fmt.Errorf("failed to close log output: %w", err)
	}
	return exportErr
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
