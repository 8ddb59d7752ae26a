package git

import (
	"context"
	"fmt"
	"strings"
)

// Worktree is one entry from `git worktree list`, with the absolute path git
// reports and the checked-out branch (empty when detached).
type Worktree struct {
	Path     string
	Branch   string
	Detached bool
}

// ListWorktrees lists all worktrees registered for the repository, including
// the main working tree, by parsing `git worktree list --porcelain` output.
func (c *Client) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	stdout, stderr, exitCode, err := c.Run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("git worktree list failed: %s", stderr)
	}

	var worktrees []Worktree
	entries := strings.Split(strings.TrimSpace(stdout), "\n\n")
	for _, entry := range entries {
		var wt Worktree
		for _, line := range strings.Split(entry, "\n") {
			if path, ok := strings.CutPrefix(line, "worktree "); ok {
				wt.Path = path
			} else if branch, ok := strings.CutPrefix(line, "branch refs/heads/"); ok {
				wt.Branch = branch
			} else if line == "detached" {
				wt.Detached = true
				wt.Branch = ""
			}
		}
		if wt.Path != "" {
			worktrees = append(worktrees, wt)
		}
	}
	return worktrees, nil
}

// WorktreeAdd creates a new worktree at path, creating newBranch starting at
// base and checking it out there.
func (c *Client) WorktreeAdd(ctx context.Context, path, newBranch, base string) error {
	_, stderr, exitCode, err := c.Run(ctx, "worktree", "add", "-b", newBranch, path, base)
	if err != nil {
		return fmt.Errorf("failed to add worktree at %s: %w", path, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git worktree add failed: %s", stderr)
	}
	return nil
}

// WorktreeAddExisting creates a new worktree at path checked out to an
// already-existing branch.
func (c *Client) WorktreeAddExisting(ctx context.Context, path, branch string) error {
	_, stderr, exitCode, err := c.Run(ctx, "worktree", "add", path, branch)
	if err != nil {
		return fmt.Errorf("failed to add worktree at %s: %w", path, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git worktree add failed: %s", stderr)
	}
	return nil
}

// WorktreeRemove force-removes the worktree at path, including its
// administrative files.
func (c *Client) WorktreeRemove(ctx context.Context, path string) error {
	_, stderr, exitCode, err := c.Run(ctx, "worktree", "remove", "--force", path)
	if err != nil {
		return fmt.Errorf("failed to remove worktree at %s: %w", path, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git worktree remove failed: %s", stderr)
	}
	return nil
}

// WorktreePrune cleans up worktree administrative files for working trees
// that no longer exist on disk.
func (c *Client) WorktreePrune(ctx context.Context) error {
	_, stderr, exitCode, err := c.Run(ctx, "worktree", "prune")
	if err != nil {
		return fmt.Errorf("failed to prune worktrees: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git worktree prune failed: %s", stderr)
	}
	return nil
}
