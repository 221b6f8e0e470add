// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package executor runs generated scripts under headless Blender and
// collects the render artifacts. Each iteration gets its own directory
// with the prepared script, the saved .blend file, renders, and the
// Blender log.
package executor

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/petar-djukic/vibe-blender/pkg/types"
)

//go:embed templates/render_views.py
var renderTemplate string

const (
	defaultBlenderPath = "blender"
	defaultTimeout     = 300 * time.Second
	defaultResolution  = 512
)

// ErrBlenderTimeout indicates the Blender run exceeded its deadline.
var ErrBlenderTimeout = errors.New("blender execution timed out")

// Config configures the Blender executor.
type Config struct {
	BlenderPath string        // Blender executable (default "blender")
	Timeout     time.Duration // Per-run timeout (default 300s)
	ResolutionX int           // Render width (default 512)
	ResolutionY int           // Render height (default 512)
	Logger      *zap.Logger
}

// Executor runs scripts under blender --background.
type Executor struct {
	blenderPath string
	timeout     time.Duration
	resX, resY  int
	logger      *zap.Logger
}

// New creates an Executor with defaults filled in.
func New(cfg Config) *Executor {
	if cfg.BlenderPath == "" {
		cfg.BlenderPath = defaultBlenderPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ResolutionX == 0 {
		cfg.ResolutionX = defaultResolution
	}
	if cfg.ResolutionY == 0 {
		cfg.ResolutionY = defaultResolution
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Executor{
		blenderPath: cfg.BlenderPath,
		timeout:     cfg.Timeout,
		resX:        cfg.ResolutionX,
		resY:        cfg.ResolutionY,
		logger:      cfg.Logger,
	}
}

// Execute runs one iteration's script and returns the artifact paths.
// A Python error inside the script does not fail the call: it comes
// back in RenderOutput.BlenderError for the critic to act on. Only
// infrastructure problems (Blender missing, timeout, non-zero exit)
// return an error.
func (e *Executor) Execute(ctx context.Context, script *types.GeneratedScript, outputDir string) (*types.RenderOutput, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	// The root script.py is the source of truth across iterations.
	globalScript := filepath.Join(outputDir, "script.py")
	if err := os.WriteFile(globalScript, []byte(script.Code), 0o644); err != nil {
		return nil, fmt.Errorf("writing script: %w", err)
	}

	iterDir := filepath.Join(outputDir, fmt.Sprintf("iteration_%02d", script.Iteration))
	renderDir := filepath.Join(iterDir, "renders")
	if err := os.MkdirAll(renderDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating iteration dir: %w", err)
	}

	scriptPath := filepath.Join(iterDir, "script.py")
	blendPath := filepath.Join(iterDir, "model.blend")

	full := e.prepareScript(script.Code, blendPath, renderDir)
	if err := os.WriteFile(scriptPath, []byte(full), 0o644); err != nil {
		return nil, fmt.Errorf("writing iteration script: %w", err)
	}
	e.logger.Info("wrote iteration script", zap.String("path", scriptPath))

	logPath := filepath.Join(iterDir, "blender.log")
	stderr, err := e.runBlender(ctx, scriptPath, logPath)
	if err != nil {
		return nil, err
	}

	// Blender can exit 0 with a broken script; the traceback lands in
	// stderr.
	blenderError := ""
	if strings.Contains(stderr, "Traceback") || strings.Contains(stderr, "Error:") || strings.Contains(stderr, "Exception:") {
		blenderError = extractPythonError(stderr)
		e.logger.Warn("script raised an error", zap.String("error", firstN(blenderError, 200)))
	}

	out := &types.RenderOutput{
		ScriptPath:   scriptPath,
		RenderDir:    renderDir,
		BlenderError: blenderError,
	}
	if fileExists(blendPath) {
		out.BlendFile = blendPath
	}
	if grid := filepath.Join(renderDir, "grid_4view.png"); fileExists(grid) {
		out.GridImage = grid
	}
	if gif := filepath.Join(renderDir, "turntable.gif"); fileExists(gif) {
		out.TurntableGIF = gif
	}
	return out, nil
}

// prepareScript wraps generated code with the output-path header and the
// rendering epilogue. Imports the header already provides are stripped
// from the generated code so they are not doubled.
func (e *Executor) prepareScript(code, blendPath, renderDir string) string {
	var header strings.Builder
	header.WriteString("# Prepared by vibe-blender\n")
	header.WriteString("# Timestamp: " + time.Now().Format(time.RFC3339) + "\n\n")
	header.WriteString("import bpy\nimport math\nimport os\n\n")
	header.WriteString("# Output paths (injected by executor)\n")
	fmt.Fprintf(&header, "OUTPUT_BLEND_PATH = r\"%s\"\n", blendPath)
	fmt.Fprintf(&header, "OUTPUT_DIR = r\"%s\"\n", renderDir)
	fmt.Fprintf(&header, "RENDER_RESOLUTION = (%d, %d)\n\n", e.resX, e.resY)

	var filtered []string
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "import bpy" || trimmed == "import math" || trimmed == "import os" {
			continue
		}
		filtered = append(filtered, line)
	}

	return header.String() + strings.Join(filtered, "\n") + "\n\n" + renderTemplate
}

// runBlender executes blender --background --python script. Combined
// output is written to logPath; stderr comes back for error extraction.
func (e *Executor) runBlender(ctx context.Context, scriptPath, logPath string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.blenderPath, "--background", "--python", scriptPath)
	cmd.Env = append(os.Environ(), "PYTHONDONTWRITEBYTECODE=1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Info("running blender", zap.String("script", scriptPath))
	runErr := cmd.Run()

	logContent := "=== STDOUT ===\n" + stdout.String() + "\n=== STDERR ===\n" + stderr.String()
	if err := os.WriteFile(logPath, []byte(logContent), 0o644); err != nil {
		e.logger.Warn("could not write blender log", zap.Error(err))
	}

	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", ErrBlenderTimeout, e.timeout)
		}
		return "", fmt.Errorf("blender execution failed: %v: %s", runErr, firstN(stderr.String(), 500))
	}

	return stderr.String(), nil
}

// Validate checks that the Blender executable runs at all.
func (e *Executor) Validate(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(runCtx, e.blenderPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("blender not available at %q: %w", e.blenderPath, err)
	}

	version := strings.SplitN(string(out), "\n", 2)[0]
	e.logger.Info("found blender", zap.String("version", version))
	return version, nil
}

// extractPythonError pulls the useful part out of Blender's stderr:
// the traceback if there is one, otherwise error lines, otherwise the
// last ten lines.
func extractPythonError(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")

	for i, line := range lines {
		if strings.HasPrefix(line, "Traceback") {
			return strings.Join(lines[i:], "\n")
		}
	}

	var errorLines []string
	for _, line := range lines {
		if strings.Contains(line, "Error") || strings.Contains(line, "Exception") {
			errorLines = append(errorLines, line)
		}
	}
	if len(errorLines) > 0 {
		return strings.Join(errorLines, "\n")
	}

	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}
	return strings.Join(lines, "\n")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
