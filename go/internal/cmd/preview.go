package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timez-app/timez/go/internal/config"
)

var previewFlags sessionFlags

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the total time for a session setup",
	Args:  cobra.NoArgs,
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	addSessionFlags(previewCmd, &previewFlags)
}

func addSessionFlags(cmd *cobra.Command, f *sessionFlags) {
	cmd.Flags().IntVar(&f.questions, "questions", 0, fmt.Sprintf("Number of questions (%d-%d)", config.MinQuestions, config.MaxQuestions))
	cmd.Flags().IntVar(&f.minutes, "minutes", 0, fmt.Sprintf("Minutes per question (0-%d)", config.MaxMinutes))
	cmd.Flags().IntVar(&f.seconds, "seconds", 0, fmt.Sprintf("Seconds per question (0-%d)", config.MaxSeconds))
}

func runPreview(cmd *cobra.Command, args []string) error {
	questions, secs := previewFlags.resolve(cfg, cmd.Flags().Changed)
	if err := validateSetup(questions, secs); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderPreview(questions, secs))
	return nil
}

func validateSetup(questions, secondsPerQuestion int) error {
	if questions < config.MinQuestions || questions > config.MaxQuestions {
		return fmt.Errorf("questions must be between %d and %d, got %d", config.MinQuestions, config.MaxQuestions, questions)
	}
	if secondsPerQuestion <= 0 {
		return fmt.Errorf("time per question must be greater than zero")
	}
	if secondsPerQuestion > config.MaxSecondsPerQuestion {
		return fmt.Errorf("time per question must be at most %dm%02ds, got %ds", config.MaxMinutes, config.MaxSeconds, secondsPerQuestion)
	}
	return nil
}
