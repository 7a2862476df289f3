package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skypro1111/speech-prep-service/internal/optimizer"
)

// analysisReport is the analyze output for one file
type analysisReport struct {
	File            string                  `json:"file"`
	Metadata        optimizer.AudioMetadata `json:"metadata"`
	Assessment      optimizer.Assessment    `json:"quality_assessment"`
	Hints           optimizer.Hints         `json:"recognition_hints"`
	Recommendations []string                `json:"recommendations"`
	ShouldEnhance   bool                    `json:"should_enhance"`
	Estimate        optimizer.Estimate      `json:"estimated_processing_time"`
}

func newAnalyzeCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze audio quality",
		Long: `Analyze decodes each file and prints its metadata, a quality grade,
decoding hints for the recognizer and recommendations as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(a *app) error {
				reports := make([]analysisReport, 0, len(args))
				failed := 0

				for _, file := range args {
					meta := a.optimizer.Analyze(file)
					if meta.Format == optimizer.FormatError {
						failed++
					}
					reports = append(reports, analysisReport{
						File:            file,
						Metadata:        meta,
						Assessment:      optimizer.Assess(meta),
						Hints:           optimizer.RecognitionHints(meta),
						Recommendations: optimizer.Recommendations(meta),
						ShouldEnhance:   a.optimizer.ShouldEnhance(meta),
						Estimate:        a.optimizer.EstimateProcessingTime(meta),
					})
				}

				if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files could not be analyzed", failed, len(args))
				}
				return nil
			})
		},
	}
}
