// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package llm wraps the AWS Bedrock ConverseStream API for text and
// vision model access, and carries the embedded prompt templates for
// the pipeline agents.
package llm

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template data for the per-agent prompts.
type (
	// GeneratorData fills the script generation prompt.
	GeneratorData struct {
		SceneJSON string
		Feedback  string
	}

	// RefineData fills the edit-based refinement prompt.
	RefineData struct {
		CurrentCode string
		Feedback    string
		// Outline, when set, is a compact structural summary of the
		// current script rendered above the feedback.
		Outline string
	}

	// CriticData fills the render evaluation prompt.
	CriticData struct {
		UserPrompt string
		SceneJSON  string
	}
)

// RenderPlannerPrompt returns the scene planning system prompt.
func RenderPlannerPrompt() (string, error) {
	return renderEmbedded("planner.tmpl", nil)
}

// RenderClarifyPrompt returns the clarification detection system prompt.
func RenderClarifyPrompt() (string, error) {
	return renderEmbedded("clarify.tmpl", nil)
}

// RenderGeneratorPrompt returns the script generation prompt for a scene.
func RenderGeneratorPrompt(data GeneratorData) (string, error) {
	return renderEmbedded("generator.tmpl", data)
}

// RenderRefinePrompt returns the edit request prompt for an existing script.
func RenderRefinePrompt(data RefineData) (string, error) {
	return renderEmbedded("refine.tmpl", data)
}

// RenderCriticPrompt returns the render evaluation prompt.
func RenderCriticPrompt(data CriticData) (string, error) {
	return renderEmbedded("critic.tmpl", data)
}

func renderEmbedded(name string, data any) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderText renders caller-supplied template text with the same data
// structs as the embedded prompts. Lets agent constructors accept
// prompt overrides without a separate code path.
func RenderText(text string, data any) (string, error) {
	tmpl, err := template.New("override").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing prompt override: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt override: %w", err)
	}
	return buf.String(), nil
}

func systemBlocks(system string) []brtypes.SystemContentBlock {
	if system == "" {
		return nil
	}
	return []brtypes.SystemContentBlock{
		&brtypes.SystemContentBlockMemberText{Value: system},
	}
}

// userMessage creates a user message with text content.
func userMessage(text string) brtypes.Message {
	return brtypes.Message{
		Role: brtypes.ConversationRoleUser,
		Content: []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: text},
		},
	}
}

// userMessageWithImages creates a user message carrying images ahead of
// the prompt text, the layout vision models handle best.
func userMessageWithImages(text string, images []Image) (brtypes.Message, error) {
	content := make([]brtypes.ContentBlock, 0, len(images)+1)
	for _, img := range images {
		format, err := imageFormat(img.Format)
		if err != nil {
			return brtypes.Message{}, err
		}
		content = append(content, &brtypes.ContentBlockMemberImage{
			Value: brtypes.ImageBlock{
				Format: format,
				Source: &brtypes.ImageSourceMemberBytes{Value: img.Data},
			},
		})
	}
	content = append(content, &brtypes.ContentBlockMemberText{Value: text})

	return brtypes.Message{
		Role:    brtypes.ConversationRoleUser,
		Content: content,
	}, nil
}

func imageFormat(format string) (brtypes.ImageFormat, error) {
	switch format {
	case "png":
		return brtypes.ImageFormatPng, nil
	case "jpeg", "jpg":
		return brtypes.ImageFormatJpeg, nil
	case "gif":
		return brtypes.ImageFormatGif, nil
	case "webp":
		return brtypes.ImageFormatWebp, nil
	default:
		return "", fmt.Errorf("unsupported image format: %s", format)
	}
}
