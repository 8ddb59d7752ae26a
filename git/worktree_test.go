package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorktreeLifecycle(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestGitRepo(t)
	writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
	client, err := NewClient(repoDir)
	require.NoError(t, err)

	worktrees, err := client.ListWorktrees(ctx)
	require.NoError(t, err)
	require.Len(t, worktrees, 1)
	assert.Equal(t, "main", worktrees[0].Branch)

	wtPath := filepath.Join(t.TempDir(), "feature-wt")
	require.NoError(t, client.WorktreeAdd(ctx, wtPath, "feature-x", "main"))

	worktrees, err = client.ListWorktrees(ctx)
	require.NoError(t, err)
	require.Len(t, worktrees, 2)
	assert.Equal(t, "feature-x", worktrees[1].Branch)
	assert.False(t, worktrees[1].Detached)
	assert.FileExists(t, filepath.Join(worktrees[1].Path, "a.txt"))

	require.NoError(t, client.WorktreeRemove(ctx, wtPath))
	worktrees, err = client.ListWorktrees(ctx)
	require.NoError(t, err)
	assert.Len(t, worktrees, 1)

	// The branch survives worktree removal.
	exists, err := client.BranchExists(ctx, "feature-x")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWorktreeAddExisting(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestGitRepo(t)
	writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
	runGitCommandInTestRepo(t, repoDir, "branch", "existing-branch")
	client, err := NewClient(repoDir)
	require.NoError(t, err)

	wtPath := filepath.Join(t.TempDir(), "existing-wt")
	require.NoError(t, client.WorktreeAddExisting(ctx, wtPath, "existing-branch"))

	wtClient, err := NewClient(wtPath)
	require.NoError(t, err)
	branch, detached, err := wtClient.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.False(t, detached)
	assert.Equal(t, "existing-branch", branch)
}

func TestWorktreePrune(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestGitRepo(t)
	writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
	client, err := NewClient(repoDir)
	require.NoError(t, err)

	wtPath := filepath.Join(t.TempDir(), "doomed-wt")
	require.NoError(t, client.WorktreeAdd(ctx, wtPath, "doomed", "main"))
	require.NoError(t, os.RemoveAll(wtPath))

	require.NoError(t, client.WorktreePrune(ctx))
	worktrees, err := client.ListWorktrees(ctx)
	require.NoError(t, err)
	assert.Len(t, worktrees, 1)
}
