// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package watchdog enforces iteration limits on the pipeline loop and
// detects runs that are going nowhere.
package watchdog

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// DefaultMaxRetries bounds the refine loop when no limit is configured.
const DefaultMaxRetries = 5

// earlyStopWindow is how many trailing iterations the early-stop checks
// look at.
const earlyStopWindow = 3

// Watchdog monitors pipeline state between iterations.
type Watchdog struct {
	maxRetries int
	logger     *zap.Logger
}

// New creates a Watchdog. maxRetries <= 0 selects DefaultMaxRetries.
func New(maxRetries int, logger *zap.Logger) *Watchdog {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watchdog{maxRetries: maxRetries, logger: logger}
}

// CanContinue reports whether another iteration is allowed.
func (w *Watchdog) CanContinue(state *types.PipelineState) bool {
	if state.Status != types.StatusRunning {
		w.logger.Info("pipeline not running", zap.String("status", string(state.Status)))
		return false
	}
	if state.CurrentIteration() >= w.maxRetries {
		w.logger.Warn("max retries reached", zap.Int("max_retries", w.maxRetries))
		return false
	}
	return true
}

// CheckCompletion reports whether the latest iteration passed critique.
func (w *Watchdog) CheckCompletion(state *types.PipelineState) bool {
	if len(state.Iterations) == 0 {
		return false
	}
	latest := state.Iterations[len(state.Iterations)-1]
	return latest.Critique != nil && latest.Critique.Verdict == types.VerdictPass
}

// ShouldStopEarly detects runs not worth finishing: the same error three
// times in a row, or three strictly declining scores ending below 3.
// Returns the reason when stopping.
func (w *Watchdog) ShouldStopEarly(state *types.PipelineState) (bool, string) {
	if len(state.Iterations) < earlyStopWindow {
		return false, ""
	}

	recent := state.Iterations[len(state.Iterations)-earlyStopWindow:]

	var errs []string
	for _, rec := range recent {
		if rec.Error != "" {
			errs = append(errs, rec.Error)
		}
	}
	if len(errs) == earlyStopWindow && errs[0] == errs[1] && errs[1] == errs[2] {
		return true, fmt.Sprintf("same error repeated %d times: %s", earlyStopWindow, firstN(errs[0], 100))
	}

	var scores []float64
	for _, rec := range recent {
		if rec.Critique != nil {
			scores = append(scores, rec.Critique.Score)
		}
	}
	if len(scores) == earlyStopWindow && scores[2] < scores[1] && scores[1] < scores[0] && scores[2] < 3 {
		return true, "scores declining and below threshold"
	}

	return false, ""
}

// IterationSummary renders the run history for logs and prompts.
func (w *Watchdog) IterationSummary(state *types.PipelineState) string {
	if len(state.Iterations) == 0 {
		return "No iterations completed yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Iteration History (%d total):\n", len(state.Iterations))
	for _, rec := range state.Iterations {
		status := "?"
		switch {
		case rec.Error != "":
			status = "ERROR"
		case rec.Critique != nil:
			status = fmt.Sprintf("%s (%.1f/10)", strings.ToUpper(string(rec.Critique.Verdict)), rec.Critique.Score)
		}
		fmt.Fprintf(&b, "  [%d] %s\n", rec.Iteration, status)

		if rec.Critique != nil && rec.Critique.Verdict == types.VerdictFail && rec.Critique.Feedback != "" {
			fmt.Fprintf(&b, "      %s\n", firstN(rec.Critique.Feedback, 100))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// MarkMaxRetries finalizes a run that hit the iteration limit, keeping
// the best-scoring iteration's output as the final result.
func (w *Watchdog) MarkMaxRetries(state *types.PipelineState) {
	state.Status = types.StatusMaxRetries
	state.CompletedAt = time.Now()

	bestScore := -1.0
	var best *types.IterationRecord
	for i := range state.Iterations {
		rec := &state.Iterations[i]
		if rec.Critique != nil && rec.Critique.Score > bestScore {
			bestScore = rec.Critique.Score
			best = rec
		}
	}
	if best != nil && best.Render != nil {
		state.FinalOutput = best.Render
		w.logger.Info("keeping best iteration",
			zap.Int("iteration", best.Iteration),
			zap.Float64("score", bestScore))
	}
}

// MarkSuccess finalizes a passing run with the latest output.
func (w *Watchdog) MarkSuccess(state *types.PipelineState) {
	state.Status = types.StatusSuccess
	state.CompletedAt = time.Now()

	if len(state.Iterations) > 0 {
		if render := state.Iterations[len(state.Iterations)-1].Render; render != nil {
			state.FinalOutput = render
		}
	}
}

// MarkFailure finalizes a run that cannot proceed.
func (w *Watchdog) MarkFailure(state *types.PipelineState, reason string) {
	state.Status = types.StatusFailed
	state.CompletedAt = time.Now()
	w.logger.Error("pipeline failed", zap.String("reason", reason))
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
