// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// minHintSimilarity is the similarity below which a closest-match hint
// is more likely to mislead than to help.
const minHintSimilarity = 0.5

// closestMatchHint finds the line window of script most similar to
// search and formats it as a parenthesized hint for not-found errors.
// Returns "" when nothing comes close enough.
func closestMatchHint(script, search string) string {
	sim, lineStart, lineEnd := findClosestMatch(script, search)
	if sim < minHintSimilarity {
		return ""
	}
	return fmt.Sprintf("(closest match at lines %d-%d, similarity %.2f)", lineStart, lineEnd, sim)
}

// findClosestMatch slides a window the height of search over the script
// lines and returns the best window's similarity and 1-based line range.
func findClosestMatch(script, search string) (sim float64, lineStart, lineEnd int) {
	if search == "" || script == "" {
		return 0, 0, 0
	}

	scriptLines := strings.Split(script, "\n")
	searchLines := strings.Split(search, "\n")
	searchLen := len(searchLines)

	if searchLen > len(scriptLines) {
		searchLen = len(scriptLines)
	}

	var bestSim float64
	var bestStart int

	for i := 0; i <= len(scriptLines)-searchLen; i++ {
		candidate := strings.Join(scriptLines[i:i+searchLen], "\n")
		s := similarity(candidate, search)
		if s > bestSim {
			bestSim = s
			bestStart = i
		}
	}

	if bestSim == 0 {
		return 0, 0, 0
	}
	return bestSim, bestStart + 1, bestStart + searchLen
}

// similarity computes the Levenshtein-based similarity ratio between two
// strings using the go-diff library. Returns a value between 0.0 and 1.0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
