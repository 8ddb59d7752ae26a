package git

import (
	"context"
	"fmt"
	"strings"
)

// StashCount returns the number of entries currently on the stash.
func (c *Client) StashCount(ctx context.Context) (int, error) {
	stdout, stderr, exitCode, err := c.Run(ctx, "stash", "list", "--format=%H")
	if err != nil {
		return 0, fmt.Errorf("failed to list stashes: %w", err)
	}
	if exitCode != 0 {
		return 0, fmt.Errorf("git stash list failed: %s", stderr)
	}
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return 0, nil
	}
	return len(strings.Split(trimmed, "\n")), nil
}

// StashPush stashes tracked and untracked changes under the given message.
// A clean working tree results in a no-op push; callers that depend on a
// stash actually existing should verify with StashCount.
func (c *Client) StashPush(ctx context.Context, message string) error {
	_, stderr, exitCode, err := c.Run(ctx, "stash", "push", "--include-untracked", "-m", message)
	if err != nil {
		return fmt.Errorf("failed to stash changes: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git stash push failed: %s", stderr)
	}
	return nil
}

// StashPop pops the most recent stash entry back onto the working tree.
func (c *Client) StashPop(ctx context.Context) error {
	_, stderr, exitCode, err := c.Run(ctx, "stash", "pop")
	if err != nil {
		return fmt.Errorf("failed to pop stash: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git stash pop failed: %s", stderr)
	}
	return nil
}

// LatestStashCommit resolves the commit hash of the most recent stash entry,
// so a caller can surface it for manual recovery even after the stash ref
// itself is dropped.
func (c *Client) LatestStashCommit(ctx context.Context) (string, error) {
	sha, err := c.Output(ctx, "rev-parse", "refs/stash")
	if err != nil {
		return "", fmt.Errorf("failed to resolve stash commit: %w", err)
	}
	return sha, nil
}
