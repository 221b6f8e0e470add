// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"sort"
	"strings"

	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// trimmedView is a buffer with trailing whitespace stripped from every
// line, plus the tables needed to map positions in the stripped text
// back to the original. The tables are precomputed once so lookups are
// a binary search over line starts.
type trimmedView struct {
	text string

	// origStarts[i] is the offset of line i in the original buffer.
	origStarts []int
	// trimStarts[i] is the offset of line i in text.
	trimStarts []int
	// trimLens[i] is the length of line i in text, newline excluded.
	trimLens []int

	origLen int
}

func newTrimmedView(buffer string) *trimmedView {
	lines := strings.Split(buffer, "\n")
	v := &trimmedView{
		origStarts: make([]int, len(lines)),
		trimStarts: make([]int, len(lines)),
		trimLens:   make([]int, len(lines)),
		origLen:    len(buffer),
	}

	trimmed := make([]string, len(lines))
	origPos, trimPos := 0, 0
	for i, line := range lines {
		t := strings.TrimRight(line, " \t\r")
		trimmed[i] = t
		v.origStarts[i] = origPos
		v.trimStarts[i] = trimPos
		v.trimLens[i] = len(t)
		origPos += len(line) + 1
		trimPos += len(t) + 1
	}

	v.text = strings.Join(trimmed, "\n")
	return v
}

// toOriginal maps a position in the trimmed text back to the original
// buffer. A position inside line i at column c maps to the original
// start of line i plus c; columns never exceed the kept portion of a
// line, so the mapped offset lands before any stripped whitespace.
// Positions past the end of the trimmed text map to the original length.
func (v *trimmedView) toOriginal(pos int) int {
	if pos <= 0 {
		return 0
	}

	// First line whose content still covers pos. trimStarts[i+1] is
	// trimStarts[i]+trimLens[i]+1, so the predicate is monotonic.
	i := sort.Search(len(v.trimStarts), func(i int) bool {
		return pos <= v.trimStarts[i]+v.trimLens[i]
	})
	if i == len(v.trimStarts) {
		return v.origLen
	}
	return v.origStarts[i] + (pos - v.trimStarts[i])
}

// collapsedView is a buffer with all blank lines removed, plus a
// per-character table giving the original span each kept character came
// from. Remapping a position is a direct index into the table.
type collapsedView struct {
	text string

	// spans[i] is the original [start, end) span of text[i].
	spans []types.Span
}

func newCollapsedView(buffer string) *collapsedView {
	lines := strings.Split(buffer, "\n")

	var kept []string
	var spans []types.Span
	origPos := 0
	for i, line := range lines {
		start := origPos
		origPos += len(line)
		if i < len(lines)-1 {
			origPos++
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if len(kept) > 0 {
			// Joining newline between kept lines carries no original
			// span of its own; borrow the position after the previous
			// kept line.
			prevEnd := spans[len(spans)-1].End
			spans = append(spans, types.Span{Start: prevEnd, End: prevEnd + 1})
		}
		for j := 0; j < len(line); j++ {
			spans = append(spans, types.Span{Start: start + j, End: start + j + 1})
		}
		kept = append(kept, line)
	}

	return &collapsedView{text: strings.Join(kept, "\n"), spans: spans}
}

// toOriginal maps a position in the collapsed text back to the original
// buffer. In-range positions map to the start of the character's
// original span; positions at or past the end map to the end of the
// last span, so a match ending at the collapsed text's end covers the
// final kept character in the original.
func (v *collapsedView) toOriginal(pos int) int {
	if pos <= 0 || len(v.spans) == 0 {
		return 0
	}
	if pos >= len(v.spans) {
		return v.spans[len(v.spans)-1].End
	}
	return v.spans[pos].Start
}
