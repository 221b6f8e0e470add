// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/internal/executor"
	"github.com/petar-djukic/vibe-blender/internal/history"
	"github.com/petar-djukic/vibe-blender/pkg/agent"
	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// newGenerateCmd creates the "generate" command.
func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a 3D model from a text prompt",
		Long:  "Generate plans the scene, writes a Blender Python script, renders it headlessly, and refines it until the render passes critique.",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}

	cmd.Flags().StringSliceP("image", "i", nil, "Reference image for style guidance (repeatable)")
	cmd.Flags().Bool("non-interactive", false, "Skip clarification questions")

	return cmd
}

// runGenerate executes the pipeline for one prompt.
func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := args[0]
	images, _ := cmd.Flags().GetStringSlice("image")
	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")

	logger, err := buildLogger(viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Each run gets its own timestamped directory.
	outputDir := filepath.Join(viper.GetString("output"), time.Now().Format("20060102_150405"))

	cfg := agent.Config{
		Model:           viper.GetString("model"),
		Region:          viper.GetString("region"),
		Profile:         viper.GetString("profile"),
		BlenderPath:     viper.GetString("blender"),
		OutputDir:       outputDir,
		MaxIterations:   viper.GetInt("max-iterations"),
		TimeoutSeconds:  viper.GetInt("timeout"),
		ReferenceImages: images,
		NoHistory:       viper.GetBool("no-history"),
		Logger:          logger,
		OnIteration:     printIteration,
	}
	if !nonInteractive {
		cfg.OnClarify = askClarifications
	}

	a, err := agent.New(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("Generating: %s\n", prompt)
	fmt.Printf("Output directory: %s\n\n", outputDir)

	result, err := a.Run(ctx, prompt)
	printResult(result)
	return err
}

// printIteration reports each iteration's outcome as it completes.
func printIteration(rec types.IterationRecord) {
	switch {
	case rec.Error != "":
		fmt.Printf("Iteration %d: ERROR: %s\n", rec.Iteration, rec.Error)
	case rec.Critique != nil:
		fmt.Printf("Iteration %d: %s (%.1f/10)\n",
			rec.Iteration, strings.ToUpper(string(rec.Critique.Verdict)), rec.Critique.Score)
	default:
		fmt.Printf("Iteration %d: no critique\n", rec.Iteration)
	}
}

// askClarifications prompts the user on stdin for each planner question.
func askClarifications(req *types.ClarificationRequest) *types.ClarificationResponse {
	fmt.Printf("\nThe prompt needs clarification: %s\n", req.Reason)
	fmt.Println("Press Enter to skip a question.")

	reader := bufio.NewReader(os.Stdin)
	answers := make(map[string]string)

	for _, q := range req.Questions {
		fmt.Printf("  %s", q.Question)
		if len(q.Suggestions) > 0 {
			fmt.Printf(" (e.g. %s)", strings.Join(q.Suggestions, ", "))
		}
		fmt.Print(" ")

		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if answer := strings.TrimSpace(line); answer != "" {
			answers[q.Key] = answer
		}
	}

	if len(answers) == 0 {
		return nil
	}
	return &types.ClarificationResponse{Answers: answers}
}

// printResult summarizes the run for the user.
func printResult(result *agent.Result) {
	if result == nil {
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Iterations: %d\n", result.Iterations)
	if result.Score > 0 {
		fmt.Printf("Score: %.1f/10\n", result.Score)
	}
	fmt.Printf("Tokens used: %d\n", result.TokensUsed.Total())
	if result.BlendFile != "" {
		fmt.Printf("Blend file: %s\n", result.BlendFile)
	}
	if result.GridImage != "" {
		fmt.Printf("Grid image: %s\n", result.GridImage)
	}
	if result.TurntableGIF != "" {
		fmt.Printf("Turntable GIF: %s\n", result.TurntableGIF)
	}
	fmt.Println(strings.Repeat("=", 50))
}

// newValidateCmd creates the "validate" command.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that Blender is installed and runnable",
		RunE: func(cmd *cobra.Command, args []string) error {
			exec := executor.New(executor.Config{BlenderPath: viper.GetString("blender")})

			version, err := exec.Validate(cmd.Context())
			if err != nil {
				return fmt.Errorf("blender validation failed: %w", err)
			}

			fmt.Printf("Blender OK: %s\n", version)
			return nil
		},
	}
}

// newUndoCmd creates the "undo" command.
func newUndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo [run-dir]",
		Short: "Revert the latest script snapshot in a run directory",
		Long:  "Undo restores the previous iteration's script in the given run directory. Only snapshots made by vibe-blender can be reverted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := history.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening run history: %w", err)
			}

			if err := repo.Undo(); err != nil {
				return fmt.Errorf("undo failed: %w", err)
			}

			fmt.Println("Reverted to the previous script snapshot.")
			return nil
		},
	}
	return cmd
}

// buildLogger creates the CLI logger; verbose selects debug level.
func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
