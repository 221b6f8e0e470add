// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package generator produces Blender Python scripts from scene
// descriptions. Refinement prefers surgical edits against the previous
// script and falls back to full regeneration when the edits do not
// parse or do not apply.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/internal/editformat"
	"github.com/petar-djukic/vibe-blender/internal/editor"
	"github.com/petar-djukic/vibe-blender/internal/llm"
	"github.com/petar-djukic/vibe-blender/internal/outline"
	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// firstIterationFeedback fills the feedback slot when there is no prior
// critique.
const firstIterationFeedback = "None - this is the first iteration"

// Options tunes a Generator beyond its defaults.
type Options struct {
	// PromptTemplate overrides the embedded generation prompt.
	PromptTemplate string
	// RefineTemplate overrides the embedded refinement prompt. Set
	// DisableEdits to skip edit-based refinement entirely.
	RefineTemplate string
	DisableEdits   bool
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Generator writes and refines Blender Python scripts.
type Generator struct {
	prompter       llm.Prompter
	promptOverride string
	refineOverride string
	disableEdits   bool
	logger         *zap.Logger
}

// New creates a Generator backed by the given prompter.
func New(prompter llm.Prompter, opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		prompter:       prompter,
		promptOverride: opts.PromptTemplate,
		refineOverride: opts.RefineTemplate,
		disableEdits:   opts.DisableEdits,
		logger:         logger,
	}
}

// Generate produces a fresh script for the scene. Reference images, when
// given, go to the vision model alongside the prompt for style guidance.
func (g *Generator) Generate(ctx context.Context, scene *types.SceneDescription, iteration int, feedback string, refImages []llm.Image) (*types.GeneratedScript, error) {
	g.logger.Info("generating script", zap.Int("iteration", iteration))

	sceneJSON, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding scene: %w", err)
	}

	if feedback == "" {
		feedback = firstIterationFeedback
	}

	data := llm.GeneratorData{SceneJSON: string(sceneJSON), Feedback: feedback}
	prompt, err := g.renderPrompt(data)
	if err != nil {
		return nil, err
	}

	response, err := g.callLLM(ctx, prompt, refImages)
	if err != nil {
		return nil, fmt.Errorf("generating script: %w", err)
	}

	code := editformat.ExtractCode(response)
	if code == "" {
		return nil, errors.New("generating script: empty response")
	}

	return &types.GeneratedScript{
		Code:            code,
		Iteration:       iteration,
		BasedOnFeedback: feedback,
		Timestamp:       time.Now(),
	}, nil
}

// Refine improves an existing script based on critic feedback. It asks
// the model for {old_code, new_code} edits and applies them; any parse
// or application failure falls back to regenerating the whole script
// with the previous code folded into the feedback.
func (g *Generator) Refine(ctx context.Context, original *types.GeneratedScript, scene *types.SceneDescription, feedback string, iteration int, refImages []llm.Image) (*types.GeneratedScript, error) {
	if !g.disableEdits {
		script, err := g.refineWithEdits(ctx, original, feedback, iteration, refImages)
		if err == nil {
			return script, nil
		}
		if errors.Is(err, llm.ErrLLMFailure) || ctx.Err() != nil {
			return nil, err
		}
		g.logger.Warn("edit-based refinement failed, regenerating", zap.Error(err))
	}

	fullFeedback := fmt.Sprintf("Previous script (iteration %d):\n```python\n%s\n```\n\nCritic feedback:\n%s\n\nPlease fix the issues mentioned above while keeping what works well.",
		original.Iteration, original.Code, feedback)

	return g.Generate(ctx, scene, iteration, fullFeedback, refImages)
}

func (g *Generator) refineWithEdits(ctx context.Context, original *types.GeneratedScript, feedback string, iteration int, refImages []llm.Image) (*types.GeneratedScript, error) {
	data := llm.RefineData{
		CurrentCode: original.Code,
		Feedback:    feedback,
		Outline:     outline.Outline(ctx, original.Code),
	}

	var prompt string
	var err error
	if g.refineOverride != "" {
		prompt, err = llm.RenderText(g.refineOverride, data)
	} else {
		prompt, err = llm.RenderRefinePrompt(data)
	}
	if err != nil {
		return nil, err
	}

	response, err := g.callLLM(ctx, prompt, refImages)
	if err != nil {
		return nil, fmt.Errorf("requesting edits: %w", err)
	}

	edits, err := editformat.ParseEdits(response)
	if err != nil {
		return nil, err
	}

	result := editor.ApplyEdits(original.Code, edits)
	if !result.Success {
		return nil, errors.New(result.Error)
	}

	g.logger.Info("edit-based refinement succeeded",
		zap.Int("edits_applied", result.AppliedCount))

	return &types.GeneratedScript{
		Code:            result.Code,
		Iteration:       iteration,
		BasedOnFeedback: feedback,
		EditBased:       true,
		EditsApplied:    result.AppliedCount,
		Timestamp:       time.Now(),
	}, nil
}

func (g *Generator) renderPrompt(data llm.GeneratorData) (string, error) {
	if g.promptOverride != "" {
		return llm.RenderText(g.promptOverride, data)
	}
	return llm.RenderGeneratorPrompt(data)
}

// callLLM routes the prompt to the vision model when reference images
// are present, plain text generation otherwise.
func (g *Generator) callLLM(ctx context.Context, prompt string, refImages []llm.Image) (string, error) {
	if len(refImages) > 0 {
		g.logger.Debug("LLM call with reference images", zap.Int("images", len(refImages)))
		return g.prompter.AnalyzeImages(ctx, "", prompt, refImages)
	}
	return g.prompter.Generate(ctx, "", prompt)
}
