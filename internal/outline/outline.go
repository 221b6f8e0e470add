// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package outline summarizes a Blender Python script with tree-sitter:
// its functions, classes, and top-level bpy calls. The summary gives
// the refinement prompt a map of the script without resending it.
package outline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Symbol is one outlined item in a script.
type Symbol struct {
	Name string
	Kind Kind
	Line int // 1-based
}

// Kind classifies an outlined symbol.
type Kind string

const (
	KindFunction Kind = "def"
	KindClass    Kind = "class"
	KindCall     Kind = "call"
)

const defQuery = `
	(function_definition name: (identifier) @def)
	(class_definition name: (identifier) @class)
`

// callQuery captures calls made at module level; nested calls inside
// function bodies belong to their function's entry.
const callQuery = `
	(module (expression_statement (call function: (attribute) @call)))
`

// Extract parses Python source and returns its outline symbols sorted
// by line. Only bpy API calls are kept from the top-level calls; plain
// helper invocations say nothing about the scene.
func Extract(ctx context.Context, code string) ([]Symbol, error) {
	content := []byte(code)
	lang := python.GetLanguage()

	root, err := sitter.ParseCtx(ctx, content, lang)
	if err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	var symbols []Symbol
	for _, c := range runQuery(defQuery, lang, root, content) {
		kind := KindFunction
		if c.capture == "class" {
			kind = KindClass
		}
		symbols = append(symbols, Symbol{Name: c.text, Kind: kind, Line: c.line})
	}
	for _, c := range runQuery(callQuery, lang, root, content) {
		if !strings.HasPrefix(c.text, "bpy.") {
			continue
		}
		symbols = append(symbols, Symbol{Name: c.text, Kind: KindCall, Line: c.line})
	}

	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Line < symbols[j].Line })
	return symbols, nil
}

// Render formats symbols as one line each for prompt inclusion.
func Render(symbols []Symbol) string {
	var b strings.Builder
	for _, s := range symbols {
		fmt.Fprintf(&b, "line %d: %s %s\n", s.Line, s.Kind, s.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Outline extracts and renders in one step. Parse failures yield an
// empty outline rather than an error; the outline is advisory.
func Outline(ctx context.Context, code string) string {
	symbols, err := Extract(ctx, code)
	if err != nil {
		return ""
	}
	return Render(symbols)
}

type capture struct {
	capture string
	text    string
	line    int
}

func runQuery(pattern string, lang *sitter.Language, root *sitter.Node, content []byte) []capture {
	q, err := sitter.NewQuery([]byte(pattern), lang)
	if err != nil {
		return nil
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	seen := make(map[string]bool)
	var results []capture

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			text := c.Node.Content(content)
			line := int(c.Node.StartPoint().Row) + 1
			key := fmt.Sprintf("%s:%d", text, line)
			if text == "" || seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, capture{
				capture: q.CaptureNameForId(c.Index),
				text:    text,
				line:    line,
			})
		}
	}

	return results
}
