package github

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DefaultRepo returns "owner/name" for the origin remote of the clone at
// dir, or "" when there is none or it is not on GitHub.
func DefaultRepo(ctx context.Context, dir string) string {
	remote, err := git(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	repo, _ := RepoFromRemote(remote)
	return repo
}

// RepoRoot returns the top level of the git work tree containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	return git(ctx, dir, "rev-parse", "--show-toplevel")
}
