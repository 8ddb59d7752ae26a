package git

import (
	"context"
	"fmt"
	"strings"
)

// IsWorkingTreeClean reports whether the working tree has no staged,
// unstaged, or untracked changes.
func (c *Client) IsWorkingTreeClean(ctx context.Context) (bool, error) {
	stdout, stderr, exitCode, err := c.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check working tree status: %w", err)
	}
	if exitCode != 0 {
		return false, fmt.Errorf("git status failed: %s", stderr)
	}
	return strings.TrimSpace(stdout) == "", nil
}

// ResetIndex unstages everything, leaving working-tree files untouched.
func (c *Client) ResetIndex(ctx context.Context) error {
	_, stderr, exitCode, err := c.Run(ctx, "reset")
	if err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git reset failed: %s", stderr)
	}
	return nil
}

// RestoreAllTracked discards unstaged modifications to tracked files.
func (c *Client) RestoreAllTracked(ctx context.Context) error {
	_, stderr, exitCode, err := c.Run(ctx, "checkout", "--", ".")
	if err != nil {
		return fmt.Errorf("failed to restore tracked files: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git checkout -- . failed: %s", stderr)
	}
	return nil
}

// CleanUntracked removes untracked files and directories from the working
// tree.
func (c *Client) CleanUntracked(ctx context.Context) error {
	_, stderr, exitCode, err := c.Run(ctx, "clean", "-fd")
	if err != nil {
		return fmt.Errorf("failed to clean untracked files: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git clean -fd failed: %s", stderr)
	}
	return nil
}
