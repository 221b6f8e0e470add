// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import "time"

// PipelineStatus is the terminal (or running) state of a pipeline run.
type PipelineStatus string

const (
	StatusRunning    PipelineStatus = "running"
	StatusSuccess    PipelineStatus = "success"
	StatusFailed     PipelineStatus = "failed"
	StatusMaxRetries PipelineStatus = "max_retries"
)

// IterationRecord captures everything produced by a single loop iteration.
type IterationRecord struct {
	Iteration int
	Script    *GeneratedScript
	Render    *RenderOutput
	Critique  *CritiqueResult
	Error     string
	Timestamp time.Time
}

// PipelineState tracks one pipeline run from prompt to final output.
type PipelineState struct {
	Prompt      string
	Scene       *SceneDescription
	Iterations  []IterationRecord
	Status      PipelineStatus
	MaxRetries  int
	OutputDir   string
	FinalOutput *RenderOutput
	StartedAt   time.Time
	CompletedAt time.Time
}

// CurrentIteration returns the number of iterations recorded so far.
func (s *PipelineState) CurrentIteration() int {
	return len(s.Iterations)
}

// AddIteration appends a record to the run history.
func (s *PipelineState) AddIteration(rec IterationRecord) {
	s.Iterations = append(s.Iterations, rec)
}

// LatestCritique returns the most recent critique, or nil if none exists.
func (s *PipelineState) LatestCritique() *CritiqueResult {
	for i := len(s.Iterations) - 1; i >= 0; i-- {
		if s.Iterations[i].Critique != nil {
			return s.Iterations[i].Critique
		}
	}
	return nil
}

// TokenUsage tracks token consumption for LLM calls.
type TokenUsage struct {
	InputTokens  int // Tokens in the prompt
	OutputTokens int // Tokens in the response
}

// Total returns the sum of input and output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// StreamResponse holds the result of a streaming LLM call.
type StreamResponse struct {
	FullText string     // Accumulated response text
	Usage    TokenUsage // Token counts from API metadata
	Retries  int        // Retries performed due to rate limits
}
