package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skypro1111/speech-prep-service/internal/optimizer"
)

const pollInterval = 200 * time.Millisecond

func newProcessCmd(run runner) *cobra.Command {
	opts := optimizer.DefaultProcessOptions()
	var async bool

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Enhance an audio file for speech recognition",
		Long: `Process analyzes the file and writes an enhanced copy to the scratch
directory. Files longer than chunking.min_duration are enhanced in
overlapping chunks when --chunk is set. The result, including the path of
the processed file, is printed as JSON. The processed file is not removed
automatically; see the cleanup command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(a *app) error {
				if async {
					return processAsync(cmd, a, args[0], opts)
				}

				result := a.optimizer.Process(args[0], opts)
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if !result.Success {
					return fmt.Errorf("processing failed: %s", result.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.EnhanceQuality, "enhance", opts.EnhanceQuality, "Run the enhancement pipeline")
	cmd.Flags().BoolVar(&opts.ChunkLargeFiles, "chunk", opts.ChunkLargeFiles, "Process long files in overlapping chunks")
	cmd.Flags().BoolVar(&opts.OnlyWhenNeeded, "only-when-needed", opts.OnlyWhenNeeded, "Skip enhancement of short, quiet, good quality audio")
	cmd.Flags().BoolVar(&async, "async", false, "Run on the background worker and report progress")

	return cmd
}

// processAsync submits the file to the background worker and polls its
// status until it finishes or the command is interrupted
func processAsync(cmd *cobra.Command, a *app, file string, opts optimizer.ProcessOptions) error {
	if err := a.optimizer.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id := a.optimizer.ProcessAsync(file, opts)
	fmt.Fprintf(cmd.ErrOrStderr(), "Job %s queued\n", id)

	status, err := waitForJob(ctx, a.optimizer, id, func(s optimizer.JobStatus) {
		if s.Progress != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Job %s: %s\n", id, s.Progress)
		}
	})
	if err != nil {
		return fmt.Errorf("stopped waiting for job %s: %w", id, err)
	}

	if err := writeJSON(cmd.OutOrStdout(), status); err != nil {
		return err
	}
	if status.State == optimizer.JobFailed {
		return fmt.Errorf("job %s failed: %s", id, status.Error)
	}
	return nil
}

// waitForJob polls until the job is terminal, calling onChange whenever
// the state or progress moves
func waitForJob(ctx context.Context, opt *optimizer.Optimizer, id string, onChange func(optimizer.JobStatus)) (optimizer.JobStatus, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastState optimizer.JobState
	lastChunks := -1

	for {
		status, ok := opt.Status(id)
		if !ok {
			return optimizer.JobStatus{}, fmt.Errorf("job %s is no longer tracked", id)
		}
		if status.State.Terminal() {
			return status, nil
		}

		chunks := -1
		if status.Progress != nil {
			chunks = status.Progress.ProcessedChunks
		}
		if status.State != lastState || chunks != lastChunks {
			lastState, lastChunks = status.State, chunks
			onChange(status)
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}
