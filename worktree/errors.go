package worktree

import (
	"errors"
)

var (
	// ErrUnsafeWorktreePath is returned when a deletion target resolves to
	// the main repository path or an ancestor of it. No mutation is attempted.
	ErrUnsafeWorktreePath = errors.New("refusing to operate on the main repository path or an ancestor of it")

	// ErrNotAWorktree is returned when a deletion target contains a git
	// directory rather than a worktree-style git file pointer, meaning it
	// looks like a standalone repository instead of a linked worktree.
	ErrNotAWorktree = errors.New("path contains a git directory, not a worktree git file pointer")

	// ErrBranchNotFound is returned when a worktree is requested for a
	// branch that does not exist.
	ErrBranchNotFound = errors.New("branch does not exist")
)
