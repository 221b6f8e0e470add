// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package critic evaluates rendered iterations against the user's
// request with a vision model and produces the feedback the generator
// refines against.
package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/internal/editformat"
	"github.com/petar-djukic/vibe-blender/internal/llm"
	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// DefaultPassThreshold is the minimum score for a passing critique.
const DefaultPassThreshold = 7.0

// Options tunes a Critic beyond its defaults.
type Options struct {
	// PassThreshold defaults to DefaultPassThreshold.
	PassThreshold float64
	// PromptTemplate overrides the embedded critique prompt.
	PromptTemplate string
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Critic judges renders against the prompt that produced them.
type Critic struct {
	prompter       llm.Prompter
	passThreshold  float64
	promptOverride string
	logger         *zap.Logger
}

// New creates a Critic backed by the given vision-capable prompter.
func New(prompter llm.Prompter, opts Options) *Critic {
	threshold := opts.PassThreshold
	if threshold == 0 {
		threshold = DefaultPassThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Critic{
		prompter:       prompter,
		passThreshold:  threshold,
		promptOverride: opts.PromptTemplate,
		logger:         logger,
	}
}

// Critique analyzes one iteration's renders. A Blender execution error
// or missing render short-circuits to a failing critique without an LLM
// call, since there is nothing worth looking at.
func (c *Critic) Critique(ctx context.Context, render *types.RenderOutput, userPrompt string, scene *types.SceneDescription, iteration int) (*types.CritiqueResult, error) {
	c.logger.Info("critiquing render", zap.Int("iteration", iteration))

	if render.BlenderError != "" {
		c.logger.Error("script execution failed",
			zap.String("error", truncate(render.BlenderError, 200)))
		return &types.CritiqueResult{
			Verdict:     types.VerdictFail,
			Score:       0,
			Feedback:    "Blender script failed with error:\n" + render.BlenderError,
			Issues:      []string{"Script execution error"},
			Suggestions: []string{"Fix the Python error in the generated script"},
			Iteration:   iteration,
		}, nil
	}

	if render.GridImage == "" {
		c.logger.Error("no render images to critique")
		return &types.CritiqueResult{
			Verdict:     types.VerdictFail,
			Score:       0,
			Feedback:    "No render images were produced. The script may have failed. Check blender.log for details.",
			Issues:      []string{"No render output"},
			Suggestions: []string{"Check script for errors", "Verify Blender execution"},
			Iteration:   iteration,
		}, nil
	}

	images, err := llm.LoadImages([]string{render.GridImage})
	if err != nil {
		return nil, fmt.Errorf("critique: %w", err)
	}

	sceneJSON, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("critique: encoding scene: %w", err)
	}

	data := llm.CriticData{UserPrompt: userPrompt, SceneJSON: string(sceneJSON)}
	var prompt string
	if c.promptOverride != "" {
		prompt, err = llm.RenderText(c.promptOverride, data)
	} else {
		prompt, err = llm.RenderCriticPrompt(data)
	}
	if err != nil {
		return nil, err
	}

	response, err := c.prompter.AnalyzeImages(ctx, "", prompt, images)
	if err != nil {
		return nil, fmt.Errorf("critique: %w", err)
	}

	return c.parseResponse(response, iteration), nil
}

// rawCritique is the JSON shape the model is asked to return.
type rawCritique struct {
	Verdict     string   `json:"verdict"`
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// parseResponse turns the model's JSON into a CritiqueResult. An
// unparseable response becomes a failing critique carrying the raw text
// so the next iteration still has something to work from.
func (c *Critic) parseResponse(response string, iteration int) *types.CritiqueResult {
	var raw rawCritique
	if err := editformat.DecodeJSONObject(response, &raw); err != nil {
		c.logger.Warn("could not parse critique response", zap.Error(err))
		return &types.CritiqueResult{
			Verdict:   types.VerdictFail,
			Score:     0,
			Feedback:  "Could not parse critique response. Raw response:\n" + truncate(response, 500),
			Issues:    []string{"Unparseable critique"},
			Iteration: iteration,
		}
	}

	score := raw.Score
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	// Passing takes both the model's own verdict and a score at or
	// above the threshold. A high score with a "fail" verdict stays a
	// fail: the score grades quality, the verdict gates acceptance.
	verdict := types.VerdictFail
	if strings.EqualFold(strings.TrimSpace(raw.Verdict), "pass") && score >= c.passThreshold {
		verdict = types.VerdictPass
	}

	c.logger.Info("critique parsed",
		zap.String("verdict", string(verdict)),
		zap.Float64("score", score))

	return &types.CritiqueResult{
		Verdict:     verdict,
		Score:       score,
		Feedback:    raw.Feedback,
		Issues:      raw.Issues,
		Suggestions: raw.Suggestions,
		Iteration:   iteration,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
