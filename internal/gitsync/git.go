// Package gitsync commits the data files written by a lesson run. It
// snapshots repository state before and after the run and stages only the
// run's own files that actually changed.
package gitsync

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// State is a snapshot of the working tree.
type State struct {
	Branch    string
	Commit    string
	Dirty     map[string]bool
	Untracked map[string]bool
	Hashes    map[string]string
}

// Capture snapshots branch, commit, dirty and untracked files, and content
// hashes of everything dirty or untracked.
func Capture(ctx context.Context, repoDir string) (*State, error) {
	if _, err := gitOutput(ctx, repoDir, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%s is not a git repository: %w", repoDir, err)
	}

	branch, err := gitOutput(ctx, repoDir, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		branch = "HEAD" // detached
	}

	// An unborn branch has no HEAD commit yet.
	commit, _ := gitOutput(ctx, repoDir, "rev-parse", "--short", "HEAD")

	stagedOut, err := gitOutput(ctx, repoDir, "diff", "--name-only", "--cached")
	if err != nil {
		return nil, fmt.Errorf("git diff --name-only --cached: %w", err)
	}
	unstagedOut, err := gitOutput(ctx, repoDir, "diff", "--name-only")
	if err != nil {
		return nil, fmt.Errorf("git diff --name-only: %w", err)
	}
	untrackedOut, err := gitOutput(ctx, repoDir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("git ls-files --others: %w", err)
	}

	dirty := parseFileList(stagedOut)
	for f := range parseFileList(unstagedOut) {
		dirty[f] = true
	}
	untracked := parseFileList(untrackedOut)

	hashSet := make(map[string]bool, len(dirty)+len(untracked))
	for f := range dirty {
		hashSet[f] = true
	}
	for f := range untracked {
		hashSet[f] = true
	}

	return &State{
		Branch:    branch,
		Commit:    commit,
		Dirty:     dirty,
		Untracked: untracked,
		Hashes:    CaptureFileHashes(ctx, repoDir, hashSet),
	}, nil
}

// CaptureFileHashes computes git content hashes for a set of files.
// Files that fail to hash are skipped.
func CaptureFileHashes(ctx context.Context, repoDir string, files map[string]bool) map[string]string {
	hashes := make(map[string]string, len(files))
	for f := range files {
		hash, err := gitOutput(ctx, repoDir, "hash-object", filepath.Join(repoDir, f))
		if err != nil {
			continue
		}
		if hash != "" {
			hashes[f] = hash
		}
	}
	return hashes
}

// DiffChangedFiles returns the sorted files that became dirty, became
// untracked, or changed content between two snapshots.
func DiffChangedFiles(before, after *State) []string {
	seen := make(map[string]bool)
	for f := range after.Dirty {
		if !before.Dirty[f] {
			seen[f] = true
		}
	}
	for f := range after.Untracked {
		if !before.Untracked[f] {
			seen[f] = true
		}
	}
	for f, afterHash := range after.Hashes {
		beforeHash, exists := before.Hashes[f]
		if !exists || beforeHash != afterHash {
			seen[f] = true
		}
	}

	result := make([]string, 0, len(seen))
	for f := range seen {
		result = append(result, f)
	}
	sort.Strings(result)
	return result
}

// ShouldExclude is true for files that must never be committed: secrets,
// temp files left by an interrupted atomic write, logs and locks.
func ShouldExclude(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, ".env"):
		return true
	case strings.HasSuffix(path, ".tmp"):
		return true
	case strings.HasSuffix(path, ".log"), strings.HasSuffix(path, ".lock"):
		return true
	}
	return false
}

// SelectPaths keeps the changed files that were written by the run. written
// holds paths relative to the repository root.
func SelectPaths(changed, written []string) []string {
	want := make(map[string]bool, len(written))
	for _, w := range written {
		want[filepath.ToSlash(filepath.Clean(w))] = true
	}
	var out []string
	for _, c := range changed {
		if want[c] && !ShouldExclude(c) {
			out = append(out, c)
		}
	}
	return out
}

func gitOutput(ctx context.Context, repoDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// parseFileList splits newline-separated git output into a set of file paths.
func parseFileList(output string) map[string]bool {
	result := make(map[string]bool)
	if output == "" {
		return result
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result[line] = true
		}
	}
	return result
}
