package worktree

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, params ManagerParams) *Manager {
	t.Helper()
	logger := zerolog.Nop()
	params.Logger = &logger
	manager, err := NewManager(context.Background(), params)
	require.NoError(t, err)
	return manager
}

func TestNewManagerRejectsNonRepository(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewManager(context.Background(), ManagerParams{
		MainRepoPath: t.TempDir(),
		Logger:       &logger,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git working directory")
}

func TestCreateWorktree(t *testing.T) {
	ctx := context.Background()

	t.Run("default in-repo layout", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		info, err := manager.CreateWorktree(ctx, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(info.WorktreeName, namePrefix), "got %q", info.WorktreeName)
		assert.Equal(t, info.WorktreeName, info.BranchName)
		assert.Equal(t, "main", info.BaseBranch)
		assert.False(t, info.CreatedAt.IsZero())
		assert.DirExists(t, info.WorktreePath)
		assert.FileExists(t, filepath.Join(info.WorktreePath, "a.txt"))

		// The worktree lives under the in-repo root and is excluded there,
		// so the main repository stays clean.
		rel, err := filepath.Rel(manager.mainRepoPath, info.WorktreePath)
		require.NoError(t, err)
		assert.Equal(t, worktreeDirName, filepath.Dir(rel))
		status := runGitCommandInTestRepo(t, repoDir, "status", "--porcelain")
		assert.Empty(t, status)
	})

	t.Run("external base directory", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		baseDir := t.TempDir()
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir, WorktreeBaseDir: baseDir})

		info, err := manager.CreateWorktree(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(baseDir, filepath.Base(repoDir), info.WorktreeName), info.WorktreePath)
	})

	t.Run("explicit base branch", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		baseCommit := writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		runGitCommandInTestRepo(t, repoDir, "branch", "release")
		writeAndCommitFile(t, repoDir, "b.txt", "later", "second commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		info, err := manager.CreateWorktree(ctx, "release")
		require.NoError(t, err)
		assert.Equal(t, "release", info.BaseBranch)
		head := runGitCommandInTestRepo(t, info.WorktreePath, "rev-parse", "HEAD")
		assert.Equal(t, baseCommit, head)
	})

	t.Run("shared config is symlinked and excluded", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		require.NoError(t, os.WriteFile(filepath.Join(repoDir, "notes.local.md"), []byte("notes"), 0644))
		manager := newTestManager(t, ManagerParams{
			MainRepoPath:      repoDir,
			SharedConfigPaths: []string{"notes.local.md", "missing-dir"},
		})

		info, err := manager.CreateWorktree(ctx, "")
		require.NoError(t, err)

		linkPath := filepath.Join(info.WorktreePath, "notes.local.md")
		linkInfo, err := os.Lstat(linkPath)
		require.NoError(t, err)
		assert.NotZero(t, linkInfo.Mode()&os.ModeSymlink)
		content, err := os.ReadFile(linkPath)
		require.NoError(t, err)
		assert.Equal(t, "notes", string(content))

		// The symlink must not show up as untracked in the worktree, and a
		// missing shared path is skipped rather than failing creation.
		status := runGitCommandInTestRepo(t, info.WorktreePath, "status", "--porcelain")
		assert.Empty(t, status)
	})

	t.Run("generated names avoid existing branches", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		runGitCommandInTestRepo(t, repoDir, "branch", "workspace-teal")
		manager := newTestManager(t, ManagerParams{
			MainRepoPath: repoDir,
			NamePalette:  []string{"teal", "coral"},
		})

		info, err := manager.CreateWorktree(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "workspace-coral", info.WorktreeName)
	})
}

func TestCreateWorktreeForExistingBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the name from the branch", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		runGitCommandInTestRepo(t, repoDir, "branch", "feat/login")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		info, err := manager.CreateWorktreeForExistingBranch(ctx, "feat/login")
		require.NoError(t, err)
		assert.Equal(t, "feat-login", info.WorktreeName)
		assert.Equal(t, "feat/login", info.BranchName)
		branch := runGitCommandInTestRepo(t, info.WorktreePath, "branch", "--show-current")
		assert.Equal(t, "feat/login", branch)
	})

	t.Run("unknown branch", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		_, err := manager.CreateWorktreeForExistingBranch(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBranchNotFound)
	})
}

func TestDeleteWorktree(t *testing.T) {
	ctx := context.Background()

	t.Run("removes a managed worktree", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		info, err := manager.CreateWorktree(ctx, "")
		require.NoError(t, err)
		require.NoError(t, manager.DeleteWorktree(ctx, info.WorktreePath))

		_, err = os.Stat(info.WorktreePath)
		assert.True(t, os.IsNotExist(err))
		worktrees, err := manager.ListWorktrees(ctx)
		require.NoError(t, err)
		assert.Empty(t, worktrees)
	})

	t.Run("refuses the main repository", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		err := manager.DeleteWorktree(ctx, repoDir)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsafeWorktreePath)
		assert.DirExists(t, repoDir)
	})

	t.Run("refuses an ancestor of the main repository", func(t *testing.T) {
		parentDir := t.TempDir()
		repoDir := filepath.Join(parentDir, "repo")
		require.NoError(t, os.MkdirAll(repoDir, 0755))
		runGitCommandInTestRepo(t, repoDir, "init", "-b", "main")
		runGitCommandInTestRepo(t, repoDir, "config", "user.name", "Test User")
		runGitCommandInTestRepo(t, repoDir, "config", "user.email", "test@example.com")
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		err := manager.DeleteWorktree(ctx, parentDir)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsafeWorktreePath)
		assert.DirExists(t, repoDir)
	})

	t.Run("refuses a standalone repository", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		otherRepo := setupTestGitRepo(t)
		err := manager.DeleteWorktree(ctx, otherRepo)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotAWorktree)
		assert.DirExists(t, otherRepo)
	})

	t.Run("falls back to filesystem deletion after manual tampering", func(t *testing.T) {
		repoDir := setupTestGitRepo(t)
		writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
		manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

		info, err := manager.CreateWorktree(ctx, "")
		require.NoError(t, err)
		// Break git's view of the worktree by locking it.
		runGitCommandInTestRepo(t, repoDir, "worktree", "lock", info.WorktreePath)

		require.NoError(t, manager.DeleteWorktree(ctx, info.WorktreePath))
		_, err = os.Stat(info.WorktreePath)
		assert.True(t, os.IsNotExist(err))
		worktrees, err := manager.ListWorktrees(ctx)
		require.NoError(t, err)
		assert.Empty(t, worktrees)
	})
}

func TestListWorktrees(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestGitRepo(t)
	writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
	manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

	created, err := manager.CreateWorktree(ctx, "")
	require.NoError(t, err)

	// A worktree added outside the managed root is not ours to report.
	unmanagedPath := filepath.Join(t.TempDir(), "unmanaged")
	runGitCommandInTestRepo(t, repoDir, "worktree", "add", "-b", "unmanaged-branch", unmanagedPath, "main")

	worktrees, err := manager.ListWorktrees(ctx)
	require.NoError(t, err)
	require.Len(t, worktrees, 1)
	assert.Equal(t, created.WorktreeName, worktrees[0].WorktreeName)
	assert.Equal(t, created.WorktreeName, worktrees[0].BranchName)
}

func TestCleanupOrphanedWorktrees(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestGitRepo(t)
	writeAndCommitFile(t, repoDir, "a.txt", "content", "initial commit")
	manager := newTestManager(t, ManagerParams{MainRepoPath: repoDir})

	keep, err := manager.CreateWorktree(ctx, "")
	require.NoError(t, err)
	orphan, err := manager.CreateWorktree(ctx, "")
	require.NoError(t, err)

	failures, err := manager.CleanupOrphanedWorktrees(ctx, map[string]bool{keep.WorktreePath: true})
	require.NoError(t, err)
	assert.Empty(t, failures)

	assert.DirExists(t, keep.WorktreePath)
	_, err = os.Stat(orphan.WorktreePath)
	assert.True(t, os.IsNotExist(err))
}
