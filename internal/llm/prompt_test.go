// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"testing"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmbeddedPrompts(t *testing.T) {
	t.Run("planner", func(t *testing.T) {
		prompt, err := RenderPlannerPrompt()
		require.NoError(t, err)
		assert.Contains(t, prompt, "scene planner")
		assert.Contains(t, prompt, "JSON")
	})

	t.Run("clarify", func(t *testing.T) {
		prompt, err := RenderClarifyPrompt()
		require.NoError(t, err)
		assert.Contains(t, prompt, "needs_clarification")
	})

	t.Run("generator", func(t *testing.T) {
		prompt, err := RenderGeneratorPrompt(GeneratorData{
			SceneJSON: `{"summary": "a red cube"}`,
			Feedback:  "None - this is the first iteration",
		})
		require.NoError(t, err)
		assert.Contains(t, prompt, `{"summary": "a red cube"}`)
		assert.Contains(t, prompt, "first iteration")
		assert.Contains(t, prompt, "OUTPUT_BLEND_PATH")
	})

	t.Run("refine", func(t *testing.T) {
		prompt, err := RenderRefinePrompt(RefineData{
			CurrentCode: "import bpy\n",
			Feedback:    "the cube is too small",
		})
		require.NoError(t, err)
		assert.Contains(t, prompt, "import bpy")
		assert.Contains(t, prompt, "too small")
		assert.Contains(t, prompt, "old_code")
		assert.NotContains(t, prompt, "Script structure")

		withOutline, err := RenderRefinePrompt(RefineData{
			CurrentCode: "import bpy\n",
			Feedback:    "the cube is too small",
			Outline:     "line 1: call bpy.ops.mesh.primitive_cube_add",
		})
		require.NoError(t, err)
		assert.Contains(t, withOutline, "Script structure")
		assert.Contains(t, withOutline, "primitive_cube_add")
	})

	t.Run("critic", func(t *testing.T) {
		prompt, err := RenderCriticPrompt(CriticData{
			UserPrompt: "a red cube",
			SceneJSON:  `{"summary": "a red cube"}`,
		})
		require.NoError(t, err)
		assert.Contains(t, prompt, "a red cube")
		assert.Contains(t, prompt, "verdict")
	})
}

func TestRenderText_Override(t *testing.T) {
	out, err := RenderText("Scene: {{.SceneJSON}}", GeneratorData{SceneJSON: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "Scene: {}", out)

	_, err = RenderText("{{.Broken", nil)
	assert.Error(t, err)
}

func TestUserMessageWithImages(t *testing.T) {
	msg, err := userMessageWithImages("judge this", []Image{
		{Format: "png", Data: []byte{1, 2, 3}},
		{Format: "jpeg", Data: []byte{4, 5}},
	})
	require.NoError(t, err)

	assert.Equal(t, brtypes.ConversationRoleUser, msg.Role)
	require.Len(t, msg.Content, 3)

	img, ok := msg.Content[0].(*brtypes.ContentBlockMemberImage)
	require.True(t, ok)
	assert.Equal(t, brtypes.ImageFormatPng, img.Value.Format)

	text, ok := msg.Content[2].(*brtypes.ContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "judge this", text.Value)
}

func TestUserMessageWithImages_UnsupportedFormat(t *testing.T) {
	_, err := userMessageWithImages("x", []Image{{Format: "bmp", Data: []byte{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
}

func TestSystemBlocks(t *testing.T) {
	assert.Nil(t, systemBlocks(""))

	blocks := systemBlocks("be terse")
	require.Len(t, blocks, 1)
	text, ok := blocks[0].(*brtypes.SystemContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "be terse", text.Value)
}
