// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// Verdict is the critic's pass/fail judgment of a rendered iteration.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// CritiqueResult is the critic's analysis of one iteration's renders.
type CritiqueResult struct {
	Verdict     Verdict  // Final pass/fail judgment
	Score       float64  // Quality score, clamped to [0, 10]
	Feedback    string   // Detailed feedback for the next iteration
	Issues      []string // Specific problems identified
	Suggestions []string // Concrete changes to try next
	Iteration   int      // Iteration that was critiqued
}

// CombinedFeedback merges feedback, issues, and suggestions into the
// single text block handed to the generator for refinement.
func (c *CritiqueResult) CombinedFeedback() string {
	out := c.Feedback
	if len(c.Issues) > 0 {
		out += "\n\nKey Issues:\n"
		for _, issue := range c.Issues {
			out += "  - " + issue + "\n"
		}
	}
	if len(c.Suggestions) > 0 {
		out += "\nSuggestions:\n"
		for _, s := range c.Suggestions {
			out += "  - " + s + "\n"
		}
	}
	return out
}

// RenderOutput holds the artifact paths produced by one Blender run.
type RenderOutput struct {
	ScriptPath   string // Path to the executed script
	BlendFile    string // Saved .blend file (empty if not produced)
	GridImage    string // 4-view grid image (empty if not produced)
	TurntableGIF string // Turntable animation (empty if not produced)
	RenderDir    string // Directory containing all renders
	BlenderError string // Extracted Python error from stderr (empty if clean)
}
