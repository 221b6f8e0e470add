// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"fmt"
	"strings"

	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// ApplyEdits applies a batch of edits to script in order. Each edit is
// located in the working buffer produced by the edits before it, so
// later edits may target text introduced by earlier ones.
//
// Application is all-or-nothing: if any edit has an empty old_code,
// cannot be located, or is ambiguous, the result carries the original
// script unchanged, an applied count of zero, and an error message
// naming the failing edit by its 1-based position.
func ApplyEdits(script string, edits []types.Edit) types.EditResult {
	working := script

	for i, edit := range edits {
		if edit.OldCode == "" {
			return failure(script, fmt.Sprintf("edit %d: old_code is empty", i+1))
		}

		m, err := Locate(working, edit.OldCode)
		if err != nil {
			return failure(script, fmt.Sprintf("edit %d: %v", i+1, err))
		}
		if m == nil {
			msg := fmt.Sprintf("edit %d: old_code not found in script", i+1)
			if hint := closestMatchHint(working, edit.OldCode); hint != "" {
				msg += " " + hint
			}
			return failure(script, msg)
		}

		working = splice(working, m.Span, edit.NewCode)
	}

	return types.EditResult{
		Success:      true,
		Code:         working,
		AppliedCount: len(edits),
	}
}

// splice replaces the span of buffer with replacement, sized up front so
// the rebuild allocates once.
func splice(buffer string, span types.Span, replacement string) string {
	var b strings.Builder
	b.Grow(len(buffer) - span.Len() + len(replacement))
	b.WriteString(buffer[:span.Start])
	b.WriteString(replacement)
	b.WriteString(buffer[span.End:])
	return b.String()
}

func failure(script, msg string) types.EditResult {
	return types.EditResult{
		Success:      false,
		Code:         script,
		AppliedCount: 0,
		Error:        msg,
	}
}
