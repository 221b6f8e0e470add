// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines the value types shared across the vibe-blender
// pipeline: edits and their application results, scene descriptions,
// critiques, and pipeline state records.
package types

import "fmt"

// Edit is a single requested substitution in a script: find OldCode,
// replace it with NewCode. OldCode must be non-empty; NewCode may be
// empty (deletion). Edits are ordered: earlier edits execute first and
// their output becomes the buffer later edits search.
type Edit struct {
	OldCode string `json:"old_code"` // Snippet to locate
	NewCode string `json:"new_code"` // Replacement text
}

// Span is a half-open [Start, End) character range into a specific
// buffer value. Spans found in a normalized view are only valid against
// the original buffer after remapping.
type Span struct {
	Start int
	End   int
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// MatchStage identifies which matching strategy located an edit target.
type MatchStage int

const (
	StageExact             MatchStage = iota // Byte-for-byte match
	StageLineTrimmed                         // Trailing-whitespace-stripped match
	StageIndentFlexible                      // Uniformly re-indented match
	StageBlankLineFlexible                   // Blank-lines-stripped match
	StageNone                                // No stage matched
)

func (s MatchStage) String() string {
	switch s {
	case StageExact:
		return "exact"
	case StageLineTrimmed:
		return "line_trimmed"
	case StageIndentFlexible:
		return "indent_flexible"
	case StageBlankLineFlexible:
		return "blank_line_flexible"
	case StageNone:
		return "none"
	default:
		return "unknown"
	}
}

// EditResult is the outcome of applying a batch of edits. When Success
// is false, Code is byte-identical to the input buffer and AppliedCount
// is zero; partial application never escapes.
type EditResult struct {
	Success      bool   // All edits located and applied
	Code         string // Resulting buffer (original buffer on failure)
	AppliedCount int    // Number of edits applied (0 on failure)
	Error        string // Failure description (empty on success)
}

// AmbiguityError reports that a snippet matched more than one location
// under a given stage, making substitution unsafe.
type AmbiguityError struct {
	Stage  MatchStage // Stage that found the duplicate
	Detail string     // What was duplicated
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("old_code (%s) appears multiple times in script; edit is ambiguous", e.Stage)
}
