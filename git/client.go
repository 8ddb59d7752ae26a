package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Client runs git subcommands against one working directory. It is a thin
// wrapper around the git binary: every mutation the rest of twig performs
// goes through a Client so that cancellation and per-path serialization have
// a single choke point.
type Client struct {
	workDir string
}

// NewClient returns a client bound to workDir. The directory must exist; it
// is not required to be a repository root (any directory inside a working
// tree works, like the git binary itself).
func NewClient(workDir string) (*Client, error) {
	info, err := os.Stat(workDir)
	if err != nil {
		return nil, fmt.Errorf("working directory '%s' not found: %w", workDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory '%s' is not a directory", workDir)
	}
	return &Client{workDir: workDir}, nil
}

// WorkDir returns the working directory the client is bound to.
func (c *Client) WorkDir() string {
	return c.workDir
}

// Run executes a git command in the client's working directory.
// It returns stdout, stderr, exit code, and any error encountered during execution.
// If the command runs but exits with a non-zero status, the error will wrap an
// *exec.ExitError, but stdout, stderr, and the exit code will still be populated.
func (c *Client) Run(ctx context.Context, args ...string) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.workDir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	// Default exit code to -1 for errors where the process didn't start or
	// exit normally.
	exitCode = -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			return stdout, stderr, exitCode, fmt.Errorf("git command %v failed in %s with exit code %d: %w\nstderr: %s", args, c.workDir, exitCode, err, stderr)
		}
		// Other errors (command not found, context cancelled, etc).
		return stdout, stderr, exitCode, fmt.Errorf("failed to run git command %v in %s: %w", args, c.workDir, err)
	}

	return stdout, stderr, 0, nil
}

// Output runs a git command and returns its trimmed stdout, treating any
// non-zero exit as an error.
func (c *Client) Output(ctx context.Context, args ...string) (string, error) {
	stdout, _, _, err := c.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

// IsRepository reports whether the client's working directory is inside a git
// working tree.
func (c *Client) IsRepository(ctx context.Context) bool {
	out, err := c.Output(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// RepositoryRoot returns the top-level directory of the working tree the
// client is bound to.
func (c *Client) RepositoryRoot(ctx context.Context) (string, error) {
	root, err := c.Output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to resolve repository root: %w", err)
	}
	return root, nil
}

// GitDir returns the repository's git directory for the bound working tree.
// For the main repository this is `<root>/.git`; for a linked worktree it is
// `<mainRoot>/.git/worktrees/<name>`.
func (c *Client) GitDir(ctx context.Context) (string, error) {
	gitDir, err := c.Output(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("failed to resolve git dir: %w", err)
	}
	return gitDir, nil
}
