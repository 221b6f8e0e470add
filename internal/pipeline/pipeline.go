// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline implements the ReAct loop that coordinates the
// planner, generator, executor, and critic until a render passes
// critique or the watchdog calls the run off.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/internal/history"
	"github.com/petar-djukic/vibe-blender/internal/llm"
	"github.com/petar-djukic/vibe-blender/internal/watchdog"
	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// Planner abstracts the scene planning agent.
type Planner interface {
	CheckClarity(ctx context.Context, userPrompt string) (*types.ClarificationRequest, error)
	Plan(ctx context.Context, userPrompt string, clarifications *types.ClarificationResponse) (*types.SceneDescription, error)
}

// Generator abstracts script generation and refinement.
type Generator interface {
	Generate(ctx context.Context, scene *types.SceneDescription, iteration int, feedback string, refImages []llm.Image) (*types.GeneratedScript, error)
	Refine(ctx context.Context, original *types.GeneratedScript, scene *types.SceneDescription, feedback string, iteration int, refImages []llm.Image) (*types.GeneratedScript, error)
}

// Executor abstracts the headless Blender run.
type Executor interface {
	Execute(ctx context.Context, script *types.GeneratedScript, outputDir string) (*types.RenderOutput, error)
}

// Critic abstracts render evaluation.
type Critic interface {
	Critique(ctx context.Context, render *types.RenderOutput, userPrompt string, scene *types.SceneDescription, iteration int) (*types.CritiqueResult, error)
}

// ClarifyFunc collects answers to the planner's clarification questions.
// Returning nil proceeds without clarifications.
type ClarifyFunc func(*types.ClarificationRequest) *types.ClarificationResponse

// Deps holds injected dependencies for the runner.
type Deps struct {
	Planner   Planner
	Generator Generator
	Executor  Executor
	Critic    Critic

	// MaxRetries bounds the refine loop; <= 0 selects the default.
	MaxRetries int
	// ReferenceImages are forwarded to the generator for style guidance.
	ReferenceImages []llm.Image
	// OnClarify, when set, enables the clarification phase.
	OnClarify ClarifyFunc
	// OnIteration is called after each recorded iteration.
	OnIteration func(types.IterationRecord)
	// NoHistory disables script snapshots in the output directory.
	NoHistory bool
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Runner orchestrates one pipeline run.
type Runner struct {
	deps     Deps
	watchdog *watchdog.Watchdog
	logger   *zap.Logger
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		deps:     deps,
		watchdog: watchdog.New(deps.MaxRetries, logger),
		logger:   logger,
	}
}

// Run executes the full pipeline: clarify, plan, then the generate,
// execute, critique loop. The returned state is always populated, even
// when the error is non-nil.
func (r *Runner) Run(ctx context.Context, prompt, outputDir string) (*types.PipelineState, error) {
	state := &types.PipelineState{
		Prompt:     prompt,
		Status:     types.StatusRunning,
		MaxRetries: r.deps.MaxRetries,
		OutputDir:  outputDir,
		StartedAt:  time.Now(),
	}
	if state.MaxRetries <= 0 {
		state.MaxRetries = watchdog.DefaultMaxRetries
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		r.watchdog.MarkFailure(state, err.Error())
		return state, fmt.Errorf("creating output directory: %w", err)
	}

	r.logger.Info("starting pipeline",
		zap.String("output_dir", outputDir),
		zap.Int("max_retries", state.MaxRetries))

	clarifications, err := r.clarify(ctx, prompt)
	if err != nil {
		r.watchdog.MarkFailure(state, err.Error())
		return state, err
	}

	scene, err := r.deps.Planner.Plan(ctx, prompt, clarifications)
	if err != nil {
		r.watchdog.MarkFailure(state, err.Error())
		return state, fmt.Errorf("planning scene: %w", err)
	}
	state.Scene = scene
	r.logger.Info("scene planned", zap.String("summary", scene.Summary))

	var snapshots *history.Repo
	if !r.deps.NoHistory {
		snapshots, err = history.Init(outputDir)
		if err != nil {
			r.logger.Warn("script history disabled", zap.Error(err))
			snapshots = nil
		}
	}

	if err := r.runLoop(ctx, state, snapshots); err != nil {
		return state, err
	}

	r.logger.Info("pipeline complete",
		zap.String("status", string(state.Status)),
		zap.Int("iterations", state.CurrentIteration()),
		zap.Duration("duration", state.CompletedAt.Sub(state.StartedAt)))

	return state, nil
}

// clarify runs the clarification phase when a handler is configured.
func (r *Runner) clarify(ctx context.Context, prompt string) (*types.ClarificationResponse, error) {
	if r.deps.OnClarify == nil {
		return nil, nil
	}

	request, err := r.deps.Planner.CheckClarity(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("checking prompt clarity: %w", err)
	}
	if !request.NeedsClarification {
		return nil, nil
	}

	r.logger.Info("clarification needed",
		zap.String("reason", request.Reason),
		zap.Int("questions", len(request.Questions)))

	response := r.deps.OnClarify(request)
	if response == nil {
		r.logger.Info("no clarifications provided, proceeding with assumptions")
	}
	return response, nil
}

func (r *Runner) runLoop(ctx context.Context, state *types.PipelineState, snapshots *history.Repo) error {
	var feedback string

	for r.watchdog.CanContinue(state) {
		if err := ctx.Err(); err != nil {
			r.watchdog.MarkFailure(state, err.Error())
			return err
		}

		iteration := state.CurrentIteration() + 1
		r.logger.Info("iteration starting",
			zap.Int("iteration", iteration),
			zap.Int("max_retries", state.MaxRetries))

		record := r.runIteration(ctx, state, iteration, &feedback)
		state.AddIteration(record)

		if snapshots != nil && record.Script != nil {
			r.snapshot(snapshots, record)
		}
		if r.deps.OnIteration != nil {
			r.deps.OnIteration(record)
		}

		if err := ctx.Err(); err != nil {
			r.watchdog.MarkFailure(state, err.Error())
			return err
		}

		if r.watchdog.CheckCompletion(state) {
			r.logger.Info("render passed critique", zap.Int("iteration", iteration))
			r.watchdog.MarkSuccess(state)
			return nil
		}

		if stop, reason := r.watchdog.ShouldStopEarly(state); stop {
			r.logger.Warn("stopping early", zap.String("reason", reason))
			r.watchdog.MarkFailure(state, reason)
			return nil
		}
	}

	r.logger.Warn("max retries reached", zap.String("history", r.watchdog.IterationSummary(state)))
	r.watchdog.MarkMaxRetries(state)
	return nil
}

// runIteration performs one generate, execute, critique pass. Failures
// become the record's Error and next iteration's feedback rather than
// aborting the loop.
func (r *Runner) runIteration(ctx context.Context, state *types.PipelineState, iteration int, feedback *string) types.IterationRecord {
	record := types.IterationRecord{Iteration: iteration, Timestamp: time.Now()}

	script, err := r.generate(ctx, state, iteration, *feedback)
	if err != nil {
		return r.failIteration(record, feedback, fmt.Errorf("generating script: %w", err))
	}
	record.Script = script

	render, err := r.deps.Executor.Execute(ctx, script, state.OutputDir)
	if err != nil {
		return r.failIteration(record, feedback, fmt.Errorf("executing script: %w", err))
	}
	record.Render = render

	critique, err := r.deps.Critic.Critique(ctx, render, state.Prompt, state.Scene, iteration)
	if err != nil {
		return r.failIteration(record, feedback, fmt.Errorf("critiquing render: %w", err))
	}
	record.Critique = critique

	r.logger.Info("iteration critiqued",
		zap.Int("iteration", iteration),
		zap.String("verdict", string(critique.Verdict)),
		zap.Float64("score", critique.Score))

	if critique.Verdict == types.VerdictFail {
		*feedback = critique.CombinedFeedback()
	}
	return record
}

// generate produces the first script or refines the previous one.
func (r *Runner) generate(ctx context.Context, state *types.PipelineState, iteration int, feedback string) (*types.GeneratedScript, error) {
	if feedback == "" || len(state.Iterations) == 0 {
		return r.deps.Generator.Generate(ctx, state.Scene, iteration, feedback, r.deps.ReferenceImages)
	}

	previous := state.Iterations[len(state.Iterations)-1].Script
	if previous == nil {
		return r.deps.Generator.Generate(ctx, state.Scene, iteration, feedback, r.deps.ReferenceImages)
	}
	return r.deps.Generator.Refine(ctx, previous, state.Scene, feedback, iteration, r.deps.ReferenceImages)
}

func (r *Runner) failIteration(record types.IterationRecord, feedback *string, err error) types.IterationRecord {
	r.logger.Error("iteration failed",
		zap.Int("iteration", record.Iteration),
		zap.Error(err))
	record.Error = err.Error()
	*feedback = "Error in previous iteration: " + err.Error()
	return record
}

func (r *Runner) snapshot(snapshots *history.Repo, record types.IterationRecord) {
	verdict := "ERROR"
	if record.Critique != nil {
		verdict = fmt.Sprintf("%s (%.1f/10)", strings.ToUpper(string(record.Critique.Verdict)), record.Critique.Score)
	}

	if err := snapshots.Snapshot(record.Iteration, verdict, []string{"script.py"}); err != nil {
		r.logger.Warn("snapshot failed",
			zap.Int("iteration", record.Iteration),
			zap.Error(err))
	}
}
