package gitsync

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"wealth/daily/internal/logging"
)

// Committer commits data files in a repository.
type Committer struct {
	RepoDir     string
	AuthorName  string // optional, passed as user.name
	AuthorEmail string // optional, passed as user.email
	Log         *logging.Logger
}

// CommitMessage is the subject used for a daily data commit.
func CommitMessage(date string) string {
	return fmt.Sprintf("chore(wealth): daily lesson %s", date)
}

// Commit stages the files of written (absolute or repo-relative) that
// changed between before and after, then commits only those paths. It
// returns the committed paths; none means nothing changed.
func (c *Committer) Commit(ctx context.Context, date string, before, after *State, written []string) ([]string, error) {
	rel := make([]string, 0, len(written))
	for _, w := range written {
		r, err := c.relative(w)
		if err != nil {
			return nil, err
		}
		rel = append(rel, r)
	}

	paths := SelectPaths(DiffChangedFiles(before, after), rel)
	if len(paths) == 0 {
		c.log().Info("no data changes to commit", "date", date)
		return nil, nil
	}

	addArgs := append([]string{"add", "--"}, paths...)
	if out, err := c.git(ctx, addArgs...); err != nil {
		return nil, fmt.Errorf("git add: %w: %s", err, out)
	}

	commitArgs := append([]string{"commit", "-m", CommitMessage(date), "--"}, paths...)
	if out, err := c.git(ctx, commitArgs...); err != nil {
		return nil, fmt.Errorf("git commit: %w: %s", err, out)
	}
	c.log().Info("committed data files", "date", date, "files", paths)
	return paths, nil
}

func (c *Committer) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	repo, err := filepath.Abs(c.RepoDir)
	if err != nil {
		return "", err
	}
	r, err := filepath.Rel(repo, path)
	if err != nil {
		return "", fmt.Errorf("%s is outside repository %s: %w", path, repo, err)
	}
	if strings.HasPrefix(r, "..") {
		return "", fmt.Errorf("%s is outside repository %s", path, repo)
	}
	return filepath.ToSlash(r), nil
}

func (c *Committer) git(ctx context.Context, args ...string) (string, error) {
	var full []string
	if c.AuthorName != "" {
		full = append(full, "-c", "user.name="+c.AuthorName)
	}
	if c.AuthorEmail != "" {
		full = append(full, "-c", "user.email="+c.AuthorEmail)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Dir = c.RepoDir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (c *Committer) log() *logging.Logger {
	if c.Log == nil {
		return logging.Nop()
	}
	return c.Log
}
