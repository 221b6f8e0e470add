// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package agent defines the public interface for vibe-blender, an agent
// pipeline that turns text prompts into rendered Blender scenes.
package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// Error types for the Agent API.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrLLMFailure     = errors.New("LLM call failed")
	ErrBlenderFailure = errors.New("blender execution failed")
)

// Config configures an Agent instance.
type Config struct {
	Model           string   // Bedrock model ID (required)
	Region          string   // AWS region (required)
	Profile         string   // AWS profile (optional)
	BlenderPath     string   // Blender binary (default "blender")
	OutputDir       string   // Output directory (default "output")
	MaxIterations   int      // Maximum refine loop iterations (default 5)
	TimeoutSeconds  int      // Per-run Blender timeout (default 300)
	ReferenceImages []string // Reference image paths for style guidance
	NoHistory       bool     // Disable script snapshot history

	// OnClarify, when set, lets the caller answer the planner's
	// clarification questions. Nil skips the clarification phase.
	OnClarify func(*types.ClarificationRequest) *types.ClarificationResponse
	// OnIteration is called after each pipeline iteration.
	OnIteration func(types.IterationRecord)
	// OnToken receives streamed LLM output for progress display.
	OnToken func(string)
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Result holds the outcome of an Agent.Run invocation.
type Result struct {
	Status       types.PipelineStatus // Terminal pipeline status
	Iterations   int                  // Iterations performed
	Score        float64              // Score of the final critique, if any
	OutputDir    string               // Directory holding all artifacts
	BlendFile    string               // Saved .blend file (empty if not produced)
	GridImage    string               // 4-view grid render (empty if not produced)
	TurntableGIF string               // Turntable animation (empty if not produced)
	TokensUsed   types.TokenUsage     // Total LLM tokens consumed
	Success      bool                 // True when the render passed critique
}

// Agent runs the full prompt-to-render pipeline.
type Agent interface {
	// Run plans the scene, generates a Blender script, executes it
	// headlessly, and refines it with vision critique until it passes
	// or the iteration limit is reached.
	Run(ctx context.Context, prompt string) (*Result, error)
}
