// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editformat extracts structured content from LLM response
// text: Python code blocks, JSON edit arrays, and JSON objects. Models
// wrap their payloads in markdown fences inconsistently, so every
// extractor tries fenced forms first and degrades to raw scanning.
package editformat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/petar-djukic/vibe-blender/pkg/types"
)

var (
	pythonFenceRe = regexp.MustCompile("(?s)```python\n(.*?)```")
	bareFenceRe   = regexp.MustCompile("(?s)```\n(.*?)```")
	jsonFenceRe   = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFenceRe    = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")

	trailingCommaObjRe = regexp.MustCompile(`,\s*}`)
	trailingCommaArrRe = regexp.MustCompile(`,\s*]`)
)

// ParseError describes a response whose edit payload could not be
// turned into a valid edit list.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "parsing edits: " + e.Message
}

// ExtractCode pulls Python source out of a model response. Fenced
// ```python blocks win, then bare fences, then the raw response when it
// already looks like a script. The raw response is the last resort
// either way; callers validate downstream.
func ExtractCode(response string) string {
	if m := pythonFenceRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := bareFenceRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// ParseEdits extracts a JSON array of edits from a model response.
// Recognizes ```json fences, bare fences, and a naked array found by
// bracket matching, in that order. Trailing commas before a closing
// bracket are tolerated.
//
// Every entry must have a non-empty old_code string and a new_code
// string; the first invalid entry fails the whole parse so a malformed
// response never produces a partial edit batch.
func ParseEdits(response string) ([]types.Edit, error) {
	jsonStr := ""
	if m := jsonFenceRe.FindStringSubmatch(response); m != nil {
		jsonStr = strings.TrimSpace(m[1])
	}
	if jsonStr == "" {
		if m := anyFenceRe.FindStringSubmatch(response); m != nil {
			jsonStr = strings.TrimSpace(m[1])
		}
	}
	if jsonStr == "" {
		jsonStr = ExtractJSONArray(response)
	}
	if jsonStr == "" {
		return nil, &ParseError{Message: "no JSON array found in response"}
	}

	jsonStr = trailingCommaArrRe.ReplaceAllString(jsonStr, "]")

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	edits := make([]types.Edit, 0, len(raw))
	for i, item := range raw {
		var edit types.Edit
		if err := unmarshalString(item["old_code"], &edit.OldCode); err != nil || edit.OldCode == "" {
			return nil, &ParseError{Message: fmt.Sprintf("edit %d has invalid old_code", i+1)}
		}
		if err := unmarshalString(item["new_code"], &edit.NewCode); err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("edit %d has invalid new_code", i+1)}
		}
		edits = append(edits, edit)
	}
	return edits, nil
}

func unmarshalString(raw json.RawMessage, dst *string) error {
	if raw == nil {
		return fmt.Errorf("missing field")
	}
	return json.Unmarshal(raw, dst)
}

// ExtractJSONArray returns the first complete top-level JSON array in
// text, found by bracket-depth matching that is aware of strings and
// escapes. Returns "" when no balanced array exists.
func ExtractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// ExtractJSONObject returns the first complete top-level JSON object in
// text. Returns "" when no balanced object exists.
func ExtractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

func extractBalanced(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if c == '\\' && inString {
			escapeNext = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}

// DecodeJSONObject locates a JSON object in a model response the same
// way ParseEdits locates arrays (json fence, bare fence, brace
// matching) and unmarshals it into dst, retrying once with trailing
// commas removed.
func DecodeJSONObject(response string, dst any) error {
	jsonStr := ""
	if m := jsonFenceRe.FindStringSubmatch(response); m != nil {
		jsonStr = strings.TrimSpace(m[1])
	}
	if jsonStr == "" {
		if m := anyFenceRe.FindStringSubmatch(response); m != nil {
			jsonStr = strings.TrimSpace(m[1])
		}
	}
	if jsonStr == "" {
		jsonStr = ExtractJSONObject(response)
	}
	if jsonStr == "" {
		return &ParseError{Message: "no JSON object found in response"}
	}

	if err := json.Unmarshal([]byte(jsonStr), dst); err == nil {
		return nil
	}

	jsonStr = trailingCommaObjRe.ReplaceAllString(jsonStr, "}")
	jsonStr = trailingCommaArrRe.ReplaceAllString(jsonStr, "]")
	if err := json.Unmarshal([]byte(jsonStr), dst); err != nil {
		return &ParseError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}
