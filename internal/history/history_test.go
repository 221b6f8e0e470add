// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesRepository(t *testing.T) {
	dir := t.TempDir()

	repo, err := Init(dir)
	require.NoError(t, err)
	assert.NotNil(t, repo)

	// Second Init opens the same repository.
	again, err := Init(dir)
	require.NoError(t, err)
	assert.NotNil(t, again)
}

func TestOpen_NoRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestSnapshot_CommitsScript(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	writeScript(t, dir, "import bpy\n")
	require.NoError(t, repo.Snapshot(1, "FAIL (4.0/10)", []string{"script.py"}))

	subjects, err := repo.Log()
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "iteration 1: FAIL (4.0/10)", subjects[0])
}

func TestUndo_RestoresPreviousScript(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	writeScript(t, dir, "version 1\n")
	require.NoError(t, repo.Snapshot(1, "FAIL (3.0/10)", []string{"script.py"}))

	writeScript(t, dir, "version 2\n")
	require.NoError(t, repo.Snapshot(2, "PASS (8.0/10)", []string{"script.py"}))

	require.NoError(t, repo.Undo())

	content, err := os.ReadFile(filepath.Join(dir, "script.py"))
	require.NoError(t, err)
	assert.Equal(t, "version 1\n", string(content))

	subjects, err := repo.Log()
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "iteration 1: FAIL (3.0/10)", subjects[0])
}

func TestUndo_RefusesForeignCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	writeScript(t, dir, "version 1\n")
	require.NoError(t, repo.Snapshot(1, "FAIL (3.0/10)", []string{"script.py"}))

	// A commit made by hand in the output directory.
	writeScript(t, dir, "hand edit\n")
	commitByHand(t, dir, "tweak the script manually")

	assert.ErrorIs(t, repo.Undo(), ErrNotSnapshot)
}

func TestUndo_SingleSnapshotFails(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	writeScript(t, dir, "version 1\n")
	require.NoError(t, repo.Snapshot(1, "FAIL (3.0/10)", []string{"script.py"}))

	err = repo.Undo()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one snapshot")
}

func TestUndo_EmptyRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Undo(), ErrNoHistory)
}

func TestLog_SkipsForeignCommits(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	require.NoError(t, err)

	writeScript(t, dir, "version 1\n")
	require.NoError(t, repo.Snapshot(1, "FAIL (3.0/10)", []string{"script.py"}))

	writeScript(t, dir, "hand edit\n")
	commitByHand(t, dir, "tweak the script manually")

	subjects, err := repo.Log()
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "iteration 1: FAIL (3.0/10)", subjects[0])
}

// --- Test helpers ---

func writeScript(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "script.py"), []byte(content), 0o644))
}

func commitByHand(t *testing.T, dir, msg string) {
	t.Helper()
	r, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("script.py")
	require.NoError(t, err)
	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "user", Email: "user@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}
