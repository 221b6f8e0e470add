// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package generator

import (
	"context"
	"fmt"
	"testing"

	"github.com/petar-djukic/vibe-blender/internal/llm"
	"github.com/petar-djukic/vibe-blender/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPrompter returns queued responses in order and records prompts.
type mockPrompter struct {
	responses []string
	err       error
	prompts   []string
	images    [][]llm.Image
}

func (m *mockPrompter) next() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock: no responses left")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

func (m *mockPrompter) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.images = append(m.images, nil)
	return m.next()
}

func (m *mockPrompter) AnalyzeImages(ctx context.Context, system, prompt string, images []llm.Image) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.images = append(m.images, images)
	return m.next()
}

func testScene() *types.SceneDescription {
	return &types.SceneDescription{
		Summary: "a red cube",
		Objects: []types.ObjectDescription{{Name: "cube", Shape: "cube"}},
	}
}

func TestGenerate(t *testing.T) {
	mock := &mockPrompter{responses: []string{
		"Here you go:\n```python\nimport bpy\nbpy.ops.mesh.primitive_cube_add()\n```",
	}}
	g := New(mock, Options{})

	script, err := g.Generate(context.Background(), testScene(), 1, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "import bpy\nbpy.ops.mesh.primitive_cube_add()", script.Code)
	assert.Equal(t, 1, script.Iteration)
	assert.False(t, script.EditBased)
	assert.False(t, script.Timestamp.IsZero())

	// Scene JSON and default feedback both land in the prompt.
	require.Len(t, mock.prompts, 1)
	assert.Contains(t, mock.prompts[0], `"a red cube"`)
	assert.Contains(t, mock.prompts[0], "first iteration")
}

func TestGenerate_ReferenceImagesUseVision(t *testing.T) {
	mock := &mockPrompter{responses: []string{"```python\nimport bpy\n```"}}
	g := New(mock, Options{})

	refs := []llm.Image{{Format: "png", Data: []byte{1}}}
	_, err := g.Generate(context.Background(), testScene(), 1, "", refs)
	require.NoError(t, err)

	require.Len(t, mock.images, 1)
	assert.Len(t, mock.images[0], 1)
}

func TestRefine_EditBased(t *testing.T) {
	original := &types.GeneratedScript{
		Code:      "import bpy\nbpy.ops.mesh.primitive_cube_add(size=2)\n",
		Iteration: 1,
	}
	mock := &mockPrompter{responses: []string{
		"```json\n[{\"old_code\": \"size=2\", \"new_code\": \"size=4\"}]\n```",
	}}
	g := New(mock, Options{})

	script, err := g.Refine(context.Background(), original, testScene(), "cube too small", 2, nil)
	require.NoError(t, err)
	assert.True(t, script.EditBased)
	assert.Equal(t, 1, script.EditsApplied)
	assert.Equal(t, 2, script.Iteration)
	assert.Contains(t, script.Code, "size=4")
	assert.NotContains(t, script.Code, "size=2")

	// Only the edit request went out; no regeneration call.
	assert.Len(t, mock.prompts, 1)
	assert.Contains(t, mock.prompts[0], "cube too small")
	assert.Contains(t, mock.prompts[0], original.Code)
}

func TestRefine_FallsBackWhenEditsDoNotParse(t *testing.T) {
	original := &types.GeneratedScript{Code: "import bpy\n", Iteration: 1}
	mock := &mockPrompter{responses: []string{
		"I think you should change the cube size.",
		"```python\nimport bpy\nbpy.ops.mesh.primitive_cube_add(size=4)\n```",
	}}
	g := New(mock, Options{})

	script, err := g.Refine(context.Background(), original, testScene(), "bigger cube", 2, nil)
	require.NoError(t, err)
	assert.False(t, script.EditBased)
	assert.Contains(t, script.Code, "size=4")

	// The regeneration prompt carries the previous script and feedback.
	require.Len(t, mock.prompts, 2)
	assert.Contains(t, mock.prompts[1], "Previous script (iteration 1)")
	assert.Contains(t, mock.prompts[1], "bigger cube")
}

func TestRefine_FallsBackWhenEditsDoNotApply(t *testing.T) {
	original := &types.GeneratedScript{Code: "import bpy\n", Iteration: 1}
	mock := &mockPrompter{responses: []string{
		"```json\n[{\"old_code\": \"NOT_IN_SCRIPT\", \"new_code\": \"x\"}]\n```",
		"```python\nimport bpy\n# fixed\n```",
	}}
	g := New(mock, Options{})

	script, err := g.Refine(context.Background(), original, testScene(), "fix it", 2, nil)
	require.NoError(t, err)
	assert.False(t, script.EditBased)
	assert.Contains(t, script.Code, "# fixed")
}

func TestRefine_DisableEditsSkipsEditRequest(t *testing.T) {
	original := &types.GeneratedScript{Code: "import bpy\n", Iteration: 1}
	mock := &mockPrompter{responses: []string{"```python\nimport bpy\n# regen\n```"}}
	g := New(mock, Options{DisableEdits: true})

	script, err := g.Refine(context.Background(), original, testScene(), "fix", 2, nil)
	require.NoError(t, err)
	assert.False(t, script.EditBased)
	assert.Len(t, mock.prompts, 1)
	assert.Contains(t, mock.prompts[0], "Previous script")
}

func TestRefine_LLMFailureDoesNotFallBack(t *testing.T) {
	original := &types.GeneratedScript{Code: "import bpy\n", Iteration: 1}
	mock := &mockPrompter{err: fmt.Errorf("%w: credentials", llm.ErrLLMFailure)}
	g := New(mock, Options{})

	_, err := g.Refine(context.Background(), original, testScene(), "fix", 2, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrLLMFailure)
}

func TestGenerate_EmptyResponseFails(t *testing.T) {
	mock := &mockPrompter{responses: []string{"   "}}
	g := New(mock, Options{})

	_, err := g.Generate(context.Background(), testScene(), 1, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
