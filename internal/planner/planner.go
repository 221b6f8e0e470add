// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package planner turns a free-form user prompt into a structured scene
// description, optionally asking clarifying questions first.
package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/internal/editformat"
	"github.com/petar-djukic/vibe-blender/internal/llm"
	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// Options tunes a Planner beyond its defaults.
type Options struct {
	// SystemPrompt overrides the embedded planning prompt.
	SystemPrompt string
	// ClarifyPrompt overrides the embedded clarification prompt.
	ClarifyPrompt string
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Planner parses user prompts into scene descriptions.
type Planner struct {
	prompter      llm.Prompter
	systemPrompt  string
	clarifyPrompt string
	logger        *zap.Logger
}

// New creates a Planner backed by the given prompter.
func New(prompter llm.Prompter, opts Options) (*Planner, error) {
	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		var err error
		systemPrompt, err = llm.RenderPlannerPrompt()
		if err != nil {
			return nil, err
		}
	}

	clarifyPrompt := opts.ClarifyPrompt
	if clarifyPrompt == "" {
		var err error
		clarifyPrompt, err = llm.RenderClarifyPrompt()
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Planner{
		prompter:      prompter,
		systemPrompt:  systemPrompt,
		clarifyPrompt: clarifyPrompt,
		logger:        logger,
	}, nil
}

// CheckClarity asks the model whether the prompt is specific enough to
// plan from. A response that cannot be parsed is treated as "no
// clarification needed" so a flaky model never blocks the pipeline.
func (p *Planner) CheckClarity(ctx context.Context, userPrompt string) (*types.ClarificationRequest, error) {
	p.logger.Info("checking prompt clarity", zap.String("prompt", truncate(userPrompt, 100)))

	response, err := p.prompter.Generate(ctx, p.clarifyPrompt, "User prompt: "+userPrompt)
	if err != nil {
		return nil, fmt.Errorf("clarity check: %w", err)
	}

	var req types.ClarificationRequest
	if err := editformat.DecodeJSONObject(response, &req); err != nil {
		p.logger.Warn("could not parse clarification response, assuming prompt is clear",
			zap.Error(err))
		return &types.ClarificationRequest{NeedsClarification: false}, nil
	}
	return &req, nil
}

// Plan parses the user prompt into a scene description, folding any
// clarification answers into the prompt first.
func (p *Planner) Plan(ctx context.Context, userPrompt string, clarifications *types.ClarificationResponse) (*types.SceneDescription, error) {
	enriched := types.EnrichPrompt(userPrompt, clarifications)
	p.logger.Info("planning scene", zap.String("prompt", truncate(userPrompt, 100)))

	response, err := p.prompter.Generate(ctx, p.systemPrompt, "User prompt: "+enriched)
	if err != nil {
		return nil, fmt.Errorf("planning scene: %w", err)
	}

	var scene types.SceneDescription
	if err := editformat.DecodeJSONObject(response, &scene); err != nil {
		return nil, fmt.Errorf("parsing scene description: %w", err)
	}
	if scene.Summary == "" {
		return nil, fmt.Errorf("parsing scene description: missing summary")
	}

	p.logger.Info("scene planned",
		zap.String("summary", scene.Summary),
		zap.Int("objects", len(scene.Objects)))
	return &scene, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
