// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editor implements the edit-application engine: locating
// old_code snippets in a script through a cascade of progressively more
// permissive matchers, and applying batches of edits atomically.
package editor

import (
	"sort"
	"strings"

	"github.com/petar-djukic/vibe-blender/pkg/types"
)

// outcomeKind tags the three possible results of a single matcher.
// Ambiguous is distinct from NotFound: an ambiguous determination ends
// the whole lookup, while NotFound merely advances the cascade.
type outcomeKind int

const (
	outcomeNotFound outcomeKind = iota
	outcomeFound
	outcomeAmbiguous
)

// matchOutcome is one matcher's determination for (buffer, oldCode).
type matchOutcome struct {
	kind  outcomeKind
	span  types.Span
	stage types.MatchStage
}

func notFound() matchOutcome {
	return matchOutcome{kind: outcomeNotFound}
}

func foundAt(stage types.MatchStage, start, end int) matchOutcome {
	return matchOutcome{kind: outcomeFound, span: types.Span{Start: start, End: end}, stage: stage}
}

func ambiguousAt(stage types.MatchStage) matchOutcome {
	return matchOutcome{kind: outcomeAmbiguous, stage: stage}
}

// Match is a successful lookup: the unique span of oldCode in the
// original buffer and the stage that located it.
type Match struct {
	Span  types.Span
	Stage types.MatchStage
}

// Locate finds oldCode inside buffer using the four-stage cascade,
// strictest first. The first stage to produce a determination other than
// "not found" is final: a Found wins, and an Ambiguous fails the whole
// lookup without giving looser stages a chance.
//
// Returns (nil, nil) when no stage matches, and (nil, *AmbiguityError)
// when a stage found duplicates.
func Locate(buffer, oldCode string) (*Match, error) {
	matchers := []func(string, string) matchOutcome{
		exactMatch,
		lineTrimmedMatch,
		indentFlexibleMatch,
		blankLineFlexibleMatch,
	}

	for _, m := range matchers {
		out := m(buffer, oldCode)
		switch out.kind {
		case outcomeFound:
			return &Match{Span: out.span, Stage: out.stage}, nil
		case outcomeAmbiguous:
			return nil, &types.AmbiguityError{Stage: out.stage}
		}
	}

	return nil, nil
}

// exactMatch is stage 1: literal substring search. A verbatim duplicate
// cannot be disambiguated by loosening the match, so two or more
// occurrences end the lookup immediately.
func exactMatch(buffer, oldCode string) matchOutcome {
	first := strings.Index(buffer, oldCode)
	if first < 0 {
		return notFound()
	}
	if strings.Index(buffer[first+1:], oldCode) >= 0 {
		return ambiguousAt(types.StageExact)
	}
	return foundAt(types.StageExact, first, first+len(oldCode))
}

// lineTrimmedMatch is stage 2: search with trailing whitespace stripped
// from every line of both buffer and oldCode, remapping the unique hit
// back to original-buffer offsets.
func lineTrimmedMatch(buffer, oldCode string) matchOutcome {
	view := newTrimmedView(buffer)
	trimmedOld := trimLines(oldCode)
	if trimmedOld == "" {
		// A whitespace-only snippet would match everywhere in the
		// trimmed view; leave it to the blank-line stage.
		return notFound()
	}

	pos := strings.Index(view.text, trimmedOld)
	if pos < 0 {
		return notFound()
	}
	if strings.Index(view.text[pos+1:], trimmedOld) >= 0 {
		return ambiguousAt(types.StageLineTrimmed)
	}

	start := view.toOriginal(pos)
	end := view.toOriginal(pos + len(trimmedOld))
	return foundAt(types.StageLineTrimmed, start, end)
}

// indentFlexibleMatch is stage 3: re-indent oldCode uniformly to every
// indentation depth present in the buffer and search the literal buffer
// for each variant. Exactly one depth may produce exactly one hit.
func indentFlexibleMatch(buffer, oldCode string) matchOutcome {
	oldIndent, ok := detectIndent(oldCode)
	if !ok {
		// Entirely blank snippet: nothing to re-indent.
		return notFound()
	}

	depths := indentDepths(buffer)

	var hits []types.Span
	for _, depth := range depths {
		if depth == oldIndent {
			// Already covered by the exact and line-trimmed stages.
			continue
		}

		variant := reindent(oldCode, depth-oldIndent)
		pos := strings.Index(buffer, variant)
		if pos < 0 {
			continue
		}
		if strings.Index(buffer[pos+1:], variant) >= 0 {
			// Duplicate at a single depth.
			return ambiguousAt(types.StageIndentFlexible)
		}
		hits = append(hits, types.Span{Start: pos, End: pos + len(variant)})
	}

	switch len(hits) {
	case 0:
		return notFound()
	case 1:
		return foundAt(types.StageIndentFlexible, hits[0].Start, hits[0].End)
	default:
		// Distinct depths each matched once.
		return ambiguousAt(types.StageIndentFlexible)
	}
}

// blankLineFlexibleMatch is stage 4: strip all blank lines from both
// buffer and oldCode and search the collapsed views, remapping the
// unique hit through the per-character span table.
func blankLineFlexibleMatch(buffer, oldCode string) matchOutcome {
	view := newCollapsedView(buffer)
	strippedOld := stripBlankLines(oldCode)
	if strippedOld == "" {
		return notFound()
	}

	pos := strings.Index(view.text, strippedOld)
	if pos < 0 {
		return notFound()
	}
	if strings.Index(view.text[pos+1:], strippedOld) >= 0 {
		return ambiguousAt(types.StageBlankLineFlexible)
	}

	start := view.toOriginal(pos)
	end := view.toOriginal(pos + len(strippedOld))
	return foundAt(types.StageBlankLineFlexible, start, end)
}

// detectIndent returns the indentation width (leading spaces and tabs)
// of the first non-blank line. ok is false when every line is blank.
func detectIndent(text string) (indent int, ok bool) {
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimLeft(line, " \t")
		if stripped != "" {
			return len(line) - len(stripped), true
		}
	}
	return 0, false
}

// indentDepths returns the sorted set of distinct indentation depths of
// non-blank lines in the buffer.
func indentDepths(buffer string) []int {
	seen := make(map[int]bool)
	for _, line := range strings.Split(buffer, "\n") {
		stripped := strings.TrimLeft(line, " \t")
		if stripped != "" {
			seen[len(line)-len(stripped)] = true
		}
	}

	depths := make([]int, 0, len(seen))
	for d := range seen {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	return depths
}

// reindent shifts every line of text by delta spaces. Blank lines become
// empty strings so no spurious trailing whitespace is introduced, and
// indentation is clamped at zero.
func reindent(text string, delta int) string {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = ""
			continue
		}
		stripped := strings.TrimLeft(line, " \t")
		indent := len(line) - len(stripped) + delta
		if indent < 0 {
			indent = 0
		}
		out[i] = strings.Repeat(" ", indent) + stripped
	}
	return strings.Join(out, "\n")
}

// trimLines strips trailing whitespace from every line.
func trimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

// stripBlankLines removes all blank (whitespace-only) lines.
func stripBlankLines(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
