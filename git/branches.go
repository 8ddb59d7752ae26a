package git

import (
	"context"
	"fmt"
	"strings"
)

// ErrNoDefaultBranch is returned when neither the remote HEAD symref nor a
// local main/master branch can be resolved.
var ErrNoDefaultBranch = fmt.Errorf("could not determine default branch")

// CurrentBranch determines the current branch name or detached HEAD state.
// It returns the branch name, a boolean indicating true if in detached HEAD
// state, and an error if encountered. An empty repository (initialized but
// without commits) returns the initial branch name and isDetached=false.
func (c *Client) CurrentBranch(ctx context.Context) (branchName string, isDetached bool, err error) {
	// `git symbolic-ref --short HEAD` returns the current branch name if on a
	// branch. It exits 128 with "fatal: ref HEAD is not a symbolic ref" when
	// detached.
	stdout, stderr, exitCode, err := c.Run(ctx, "symbolic-ref", "--short", "HEAD")
	if err == nil && exitCode == 0 {
		return strings.TrimSpace(stdout), false, nil
	}
	if exitCode == 128 && strings.Contains(stderr, "not a symbolic ref") {
		return "", true, nil
	}
	return "", false, fmt.Errorf("failed to determine current branch: %w", err)
}

// CurrentCommit returns the sha of HEAD.
func (c *Client) CurrentCommit(ctx context.Context) (string, error) {
	sha, err := c.Output(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return sha, nil
}

// ResolveCommit resolves an arbitrary revision (branch name, sha, stash ref)
// to a full commit sha.
func (c *Client) ResolveCommit(ctx context.Context, rev string) (string, error) {
	sha, err := c.Output(ctx, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	return sha, nil
}

// BranchExists reports whether a local branch with the given name exists.
func (c *Client) BranchExists(ctx context.Context, branchName string) (bool, error) {
	_, _, exitCode, err := c.Run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branchName)
	if exitCode == 0 {
		return true, nil
	}
	if exitCode == 1 {
		return false, nil
	}
	return false, fmt.Errorf("failed to check branch %q: %w", branchName, err)
}

// Checkout checks out the given revision. A branch name attaches HEAD to the
// branch; a commit sha leaves the repository in detached HEAD state.
func (c *Client) Checkout(ctx context.Context, rev string) error {
	_, stderr, exitCode, err := c.Run(ctx, "checkout", rev)
	if err != nil {
		return fmt.Errorf("failed to checkout %q: %w", rev, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git checkout %q failed: %s", rev, stderr)
	}
	return nil
}

// CheckoutNewBranch creates branchName starting at base and checks it out.
func (c *Client) CheckoutNewBranch(ctx context.Context, branchName, base string) error {
	_, stderr, exitCode, err := c.Run(ctx, "checkout", "-b", branchName, base)
	if err != nil {
		return fmt.Errorf("failed to create branch %q from %q: %w", branchName, base, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git checkout -b %q failed: %s", branchName, stderr)
	}
	return nil
}

// CheckoutForceBranch force-moves branchName onto the current HEAD and checks
// it out (`git checkout -B`). If the branch already existed it is reset.
func (c *Client) CheckoutForceBranch(ctx context.Context, branchName string) error {
	_, stderr, exitCode, err := c.Run(ctx, "checkout", "-B", branchName)
	if err != nil {
		return fmt.Errorf("failed to reattach branch %q: %w", branchName, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git checkout -B %q failed: %s", branchName, stderr)
	}
	return nil
}

// DetachHead detaches HEAD at the current commit.
func (c *Client) DetachHead(ctx context.Context) error {
	_, stderr, exitCode, err := c.Run(ctx, "checkout", "--detach")
	if err != nil {
		return fmt.Errorf("failed to detach HEAD: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git checkout --detach failed: %s", stderr)
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func (c *Client) DeleteBranch(ctx context.Context, branchName string) error {
	_, stderr, exitCode, err := c.Run(ctx, "branch", "-D", branchName)
	if err != nil {
		return fmt.Errorf("failed to delete branch %q: %w", branchName, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git branch -D %q failed: %s", branchName, stderr)
	}
	return nil
}

// ForceBranch moves branchName to point at the given sha without touching the
// working tree (`git branch -f`). The branch must not be checked out.
func (c *Client) ForceBranch(ctx context.Context, branchName, sha string) error {
	_, stderr, exitCode, err := c.Run(ctx, "branch", "-f", branchName, sha)
	if err != nil {
		return fmt.Errorf("failed to force branch %q to %s: %w", branchName, sha, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("git branch -f %q failed: %s", branchName, stderr)
	}
	return nil
}

// DefaultBranch resolves the repository's default branch: the remote HEAD
// symref when one is configured, else a local main branch, else a local
// master branch. Returns ErrNoDefaultBranch when none of those exist.
func (c *Client) DefaultBranch(ctx context.Context) (string, error) {
	stdout, _, exitCode, _ := c.Run(ctx, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if exitCode == 0 {
		ref := strings.TrimSpace(stdout)
		// "origin/main" -> "main"
		if _, name, found := strings.Cut(ref, "/"); found {
			return name, nil
		}
		return ref, nil
	}

	for _, candidate := range []string{"main", "master"} {
		exists, err := c.BranchExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if exists {
			return candidate, nil
		}
	}
	return "", ErrNoDefaultBranch
}
