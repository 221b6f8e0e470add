// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package history snapshots the working script into a git repository
// inside the output directory, one commit per pipeline iteration, with
// undo for the most recent snapshot.
package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	authorName  = "vibe-blender"
	authorEmail = "noreply@vibe-blender"

	// snapshotTrailer marks commits made by the pipeline so Undo never
	// touches commits a user made by hand in the output directory.
	snapshotTrailer = "Snapshot-By: vibe-blender"
)

// ErrNotSnapshot is returned when undo targets a commit the pipeline did not make.
var ErrNotSnapshot = errors.New("not a vibe-blender snapshot commit")

// ErrNoHistory is returned when the output directory has no snapshot repository.
var ErrNoHistory = errors.New("no snapshot history")

// Repo wraps a go-git repository holding script snapshots.
type Repo struct {
	repo *gogit.Repository
	dir  string
}

// Init opens the snapshot repository in dir, creating it on first use.
func Init(dir string) (*Repo, error) {
	r, err := gogit.PlainOpen(dir)
	if err == nil {
		return &Repo{repo: r, dir: dir}, nil
	}
	if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("opening snapshot repository: %w", err)
	}

	r, err = gogit.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("initializing snapshot repository: %w", err)
	}
	return &Repo{repo: r, dir: dir}, nil
}

// Open opens an existing snapshot repository, returning ErrNoHistory
// when the directory was never initialized.
func Open(dir string) (*Repo, error) {
	r, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHistory, err)
	}
	return &Repo{repo: r, dir: dir}, nil
}

// Snapshot stages the given files (paths relative to the output
// directory) and commits them with an iteration summary message.
func (r *Repo) Snapshot(iteration int, verdict string, files []string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	for _, f := range files {
		if _, err := wt.Add(f); err != nil {
			return fmt.Errorf("staging %s: %w", f, err)
		}
	}

	msg := fmt.Sprintf("iteration %d: %s\n\n%s", iteration, verdict, snapshotTrailer)
	_, err = wt.Commit(msg, &gogit.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}

	return nil
}

// Undo reverts the most recent snapshot commit, restoring the working
// tree to the previous iteration. Commits without the snapshot trailer
// are refused.
func (r *Repo) Undo() error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoHistory, err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("getting commit: %w", err)
	}

	if !isSnapshot(commit) {
		return ErrNotSnapshot
	}

	if commit.NumParents() == 0 {
		return fmt.Errorf("cannot undo: only one snapshot exists")
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return fmt.Errorf("getting parent commit: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	// Hard reset so the files on disk match the previous snapshot.
	err = wt.Reset(&gogit.ResetOptions{
		Commit: parent.Hash,
		Mode:   gogit.HardReset,
	})
	if err != nil {
		return fmt.Errorf("resetting to previous snapshot: %w", err)
	}

	return nil
}

// Log returns the snapshot commit subjects, newest first.
func (r *Repo) Log() ([]string, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHistory, err)
	}

	var subjects []string
	err = iter.ForEach(func(c *object.Commit) error {
		if isSnapshot(c) {
			subjects = append(subjects, subjectLine(c.Message))
		}
		return nil
	})
	return subjects, err
}

func isSnapshot(c *object.Commit) bool {
	return strings.Contains(c.Message, snapshotTrailer)
}

func subjectLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}
