// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/internal/critic"
	"github.com/petar-djukic/vibe-blender/internal/executor"
	"github.com/petar-djukic/vibe-blender/internal/generator"
	"github.com/petar-djukic/vibe-blender/internal/llm"
	"github.com/petar-djukic/vibe-blender/internal/pipeline"
	"github.com/petar-djukic/vibe-blender/internal/planner"
	"github.com/petar-djukic/vibe-blender/pkg/types"
)

const (
	defaultBlenderPath   = "blender"
	defaultOutputDir     = "output"
	defaultMaxIterations = 5
	defaultTimeout       = 300
	defaultLLMTimeout    = 5 * time.Minute
)

// New validates the config, initializes the Bedrock client and all
// pipeline components, and returns a ready-to-use Agent. Blender itself
// is not probed until Run.
func New(cfg Config) (Agent, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)

	client, err := llm.NewClient(context.Background(), llm.ClientConfig{
		ModelID: cfg.Model,
		Region:  cfg.Region,
		Profile: cfg.Profile,
		Timeout: defaultLLMTimeout,
		OnToken: cfg.OnToken,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMFailure, err)
	}

	plan, err := planner.New(client, planner.Options{Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	refImages, err := llm.LoadImages(cfg.ReferenceImages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	runner := pipeline.NewRunner(pipeline.Deps{
		Planner:   plan,
		Generator: generator.New(client, generator.Options{Logger: cfg.Logger}),
		Critic:    critic.New(client, critic.Options{Logger: cfg.Logger}),
		Executor: executor.New(executor.Config{
			BlenderPath: cfg.BlenderPath,
			Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
			Logger:      cfg.Logger,
		}),
		MaxRetries:      cfg.MaxIterations,
		ReferenceImages: refImages,
		OnClarify:       cfg.OnClarify,
		OnIteration:     cfg.OnIteration,
		NoHistory:       cfg.NoHistory,
		Logger:          cfg.Logger,
	})

	return &agentAdapter{runner: runner, client: client, outputDir: cfg.OutputDir}, nil
}

// agentAdapter adapts internal/pipeline.Runner to the public Agent interface.
type agentAdapter struct {
	runner    *pipeline.Runner
	client    *llm.Client
	outputDir string
}

func (a *agentAdapter) Run(ctx context.Context, prompt string) (*Result, error) {
	state, err := a.runner.Run(ctx, prompt, a.outputDir)
	result := resultFromState(state)
	result.TokensUsed = a.client.CumulativeUsage()
	return result, err
}

func resultFromState(state *types.PipelineState) *Result {
	if state == nil {
		return &Result{}
	}

	result := &Result{
		Status:     state.Status,
		Iterations: state.CurrentIteration(),
		OutputDir:  state.OutputDir,
		Success:    state.Status == types.StatusSuccess,
	}
	if critique := state.LatestCritique(); critique != nil {
		result.Score = critique.Score
	}
	if out := state.FinalOutput; out != nil {
		result.BlendFile = out.BlendFile
		result.GridImage = out.GridImage
		result.TurntableGIF = out.TurntableGIF
	}
	return result
}

// validateConfig checks that required fields are present.
func validateConfig(cfg Config) error {
	if cfg.Model == "" {
		return fmt.Errorf("Model is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("Region is required")
	}
	if cfg.MaxIterations < 0 {
		return fmt.Errorf("MaxIterations must not be negative")
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.BlenderPath == "" {
		cfg.BlenderPath = defaultBlenderPath
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}
