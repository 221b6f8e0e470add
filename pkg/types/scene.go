// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"sort"
	"time"
)

// ObjectDescription describes a single object the planner wants in the scene.
type ObjectDescription struct {
	Name       string             `json:"name"`
	Shape      string             `json:"shape,omitempty"`
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
	Position   []float64          `json:"position,omitempty"`
	Details    string             `json:"details,omitempty"`
}

// MaterialDescription describes a material the planner wants applied.
type MaterialDescription struct {
	Name      string  `json:"name"`
	BaseColor string  `json:"base_color,omitempty"`
	Metallic  float64 `json:"metallic,omitempty"`
	Roughness float64 `json:"roughness,omitempty"`
	Emission  string  `json:"emission,omitempty"`
}

// SceneDescription is the planner's structured reading of the user prompt.
type SceneDescription struct {
	Summary     string                `json:"summary"`
	Style       string                `json:"style,omitempty"`
	Objects     []ObjectDescription   `json:"objects,omitempty"`
	Materials   []MaterialDescription `json:"materials,omitempty"`
	Lighting    string                `json:"lighting,omitempty"`
	CameraNotes string                `json:"camera_notes,omitempty"`
	Complexity  string                `json:"complexity,omitempty"`
}

// GeneratedScript is one iteration's Blender Python script.
type GeneratedScript struct {
	Code            string    // The Python source
	Iteration       int       // Iteration that produced it (1-based)
	BasedOnFeedback string    // Critic feedback this iteration addresses
	EditBased       bool      // Produced by applying edits rather than regeneration
	EditsApplied    int       // Number of edits applied (0 when regenerated)
	Timestamp       time.Time // When the script was produced
}

// ClarificationQuestion is a single question the planner wants answered
// before committing to a scene.
type ClarificationQuestion struct {
	Key         string   `json:"key"`
	Question    string   `json:"question"`
	Suggestions []string `json:"suggestions,omitempty"`
	Required    bool     `json:"required"`
}

// ClarificationRequest is the planner's judgment on prompt clarity.
type ClarificationRequest struct {
	NeedsClarification bool                    `json:"needs_clarification"`
	Reason             string                  `json:"reason,omitempty"`
	Questions          []ClarificationQuestion `json:"questions,omitempty"`
}

// ClarificationResponse carries the user's answers keyed by question key.
type ClarificationResponse struct {
	Answers map[string]string
}

// EnrichPrompt appends clarification answers to the original prompt text.
func EnrichPrompt(prompt string, resp *ClarificationResponse) string {
	if resp == nil || len(resp.Answers) == 0 {
		return prompt
	}
	keys := make([]string, 0, len(resp.Answers))
	for key := range resp.Answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := prompt + "\n\nAdditional details:\n"
	for _, key := range keys {
		out += "- " + key + ": " + resp.Answers[key] + "\n"
	}
	return out
}
