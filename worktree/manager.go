// Package worktree manages the git worktrees twig creates for isolated task
// workspaces: collision-free naming, on-disk layout, exclude-file
// bookkeeping, shared config symlinking, and best-effort reconciliation of
// worktrees that git or a crash left behind.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"twig/domain"
	"twig/git"
)

// worktreeDirName is the directory under the main repository that holds
// managed worktrees when no external base dir is configured. It is added to
// the main repository's local exclude file so the worktrees never show up as
// untracked.
const worktreeDirName = ".twig"

// ManagerParams configures a Manager. Only MainRepoPath is required.
type ManagerParams struct {
	// MainRepoPath is the root of the main repository.
	MainRepoPath string

	// WorktreeBaseDir relocates managed worktrees to
	// <WorktreeBaseDir>/<repoBasename>/<name> instead of the default
	// <MainRepoPath>/.twig/<name>.
	WorktreeBaseDir string

	// SharedConfigPaths are main-repo-relative files or directories
	// symlinked into each new worktree (editor config, local notes). Each
	// symlink is excluded in the worktree so it never shows as untracked.
	SharedConfigPaths []string

	// NamePalette overrides the built-in color palette for generated
	// worktree names.
	NamePalette []string

	// Serializer shares per-path git write exclusivity with other
	// components. A private serializer is used when nil.
	Serializer *git.Serializer

	// Logger overrides the global logger.
	Logger *zerolog.Logger
}

// Manager creates, deletes, lists, and reconciles the git worktrees for one
// main repository.
type Manager struct {
	mainRepoPath      string
	worktreeBaseDir   string
	sharedConfigPaths []string
	palette           []string
	serializer        *git.Serializer
	log               zerolog.Logger
}

// NewManager validates that MainRepoPath is an existing git working directory
// and returns a manager for it.
func NewManager(ctx context.Context, params ManagerParams) (*Manager, error) {
	mainRepoPath, err := filepath.Abs(params.MainRepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve main repo path: %w", err)
	}
	// Compare symlink-resolved paths everywhere; git reports real paths in
	// `worktree list` while callers may hand us symlinked ones (/tmp on
	// macOS, for example).
	mainRepoPath = resolvePath(mainRepoPath)

	client, err := git.NewClient(mainRepoPath)
	if err != nil {
		return nil, err
	}
	if !client.IsRepository(ctx) {
		return nil, fmt.Errorf("%s is not a git working directory", mainRepoPath)
	}

	serializer := params.Serializer
	if serializer == nil {
		serializer = git.NewSerializer()
	}
	logger := zlog.Logger
	if params.Logger != nil {
		logger = *params.Logger
	}

	return &Manager{
		mainRepoPath:      mainRepoPath,
		worktreeBaseDir:   params.WorktreeBaseDir,
		sharedConfigPaths: params.SharedConfigPaths,
		palette:           params.NamePalette,
		serializer:        serializer,
		log:               logger.With().Str("mainRepoPath", mainRepoPath).Logger(),
	}, nil
}

// worktreeRoot returns the directory all managed worktrees live under.
func (m *Manager) worktreeRoot() string {
	if m.worktreeBaseDir != "" {
		return filepath.Join(m.worktreeBaseDir, filepath.Base(m.mainRepoPath))
	}
	return filepath.Join(m.mainRepoPath, worktreeDirName)
}

// takenNames collects every name a new worktree must not collide with:
// existing worktree directory names and existing local branch names. Branches
// are read through go-git rather than a subprocess since this is a pure
// object-store read.
func (m *Manager) takenNames(ctx context.Context, client *git.Client) (map[string]bool, error) {
	taken := make(map[string]bool)

	worktrees, err := client.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}
	for _, wt := range worktrees {
		taken[filepath.Base(wt.Path)] = true
	}

	repo, err := gogit.PlainOpen(m.mainRepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", m.mainRepoPath, err)
	}
	branches, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		taken[ref.Name().Short()] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}

	return taken, nil
}

// prepareWorktreeRoot creates the worktree root directory and, in the default
// in-repo layout, makes sure the main repository excludes it.
func (m *Manager) prepareWorktreeRoot(ctx context.Context, client *git.Client) (string, error) {
	root := m.worktreeRoot()
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("failed to create worktree root %s: %w", root, err)
	}
	if m.worktreeBaseDir == "" {
		excludePath, err := m.excludeFilePath(ctx, client)
		if err != nil {
			return "", err
		}
		if err := ensureExcludeEntry(excludePath, "/"+worktreeDirName+"/"); err != nil {
			return "", err
		}
	}
	return root, nil
}

// excludeFilePath resolves the local exclude file for the working directory
// the client is bound to. Asking git for the path keeps worktree git-dir
// redirection out of our hands.
func (m *Manager) excludeFilePath(ctx context.Context, client *git.Client) (string, error) {
	path, err := client.Output(ctx, "rev-parse", "--git-path", "info/exclude")
	if err != nil {
		return "", fmt.Errorf("failed to resolve exclude file: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(client.WorkDir(), path)
	}
	return path, nil
}

// CreateWorktree creates a fresh worktree on a new branch named after the
// worktree, based on baseBranch (the repository default branch when empty).
//
// This is deliberately not a multi-step saga: a freshly added worktree is
// cheaply undone via `git worktree remove`, so the only compensation needed
// is the caller-level cleanup when post-creation setup fails.
func (m *Manager) CreateWorktree(ctx context.Context, baseBranch string) (domain.WorktreeInfo, error) {
	var info domain.WorktreeInfo
	err := m.serializer.ExecuteWrite(ctx, m.mainRepoPath, func(ctx context.Context, client *git.Client) error {
		base := baseBranch
		if base == "" {
			defaultBranch, err := client.DefaultBranch(ctx)
			if err != nil {
				return err
			}
			base = defaultBranch
		}

		taken, err := m.takenNames(ctx, client)
		if err != nil {
			return err
		}
		name := generateUniqueName(m.palette, taken)

		root, err := m.prepareWorktreeRoot(ctx, client)
		if err != nil {
			return err
		}
		path := filepath.Join(root, name)

		if err := client.WorktreeAdd(ctx, path, name, base); err != nil {
			return err
		}
		if err := m.setupSharedConfig(ctx, path); err != nil {
			// Undo the fresh worktree rather than leaving a half-configured
			// one behind.
			if removeErr := client.WorktreeRemove(ctx, path); removeErr != nil {
				m.log.Warn().Err(removeErr).Str("worktreePath", path).Msg("failed to remove worktree after setup failure")
			}
			return err
		}

		m.log.Info().Str("worktreePath", path).Str("branch", name).Str("baseBranch", base).Msg("created worktree")
		info = domain.WorktreeInfo{
			WorktreePath: path,
			WorktreeName: name,
			BranchName:   name,
			BaseBranch:   base,
			CreatedAt:    time.Now(),
		}
		return nil
	})
	return info, err
}

// CreateWorktreeForExistingBranch creates a worktree checked out to an
// already-existing branch. The worktree name is derived from the branch name,
// with a timestamp suffix when it collides with an existing worktree.
func (m *Manager) CreateWorktreeForExistingBranch(ctx context.Context, branch string) (domain.WorktreeInfo, error) {
	var info domain.WorktreeInfo
	err := m.serializer.ExecuteWrite(ctx, m.mainRepoPath, func(ctx context.Context, client *git.Client) error {
		exists, err := client.BranchExists(ctx, branch)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
		}

		worktrees, err := client.ListWorktrees(ctx)
		if err != nil {
			return err
		}
		taken := make(map[string]bool, len(worktrees))
		for _, wt := range worktrees {
			taken[filepath.Base(wt.Path)] = true
		}
		name := dedupeName(strings.ReplaceAll(branch, "/", "-"), taken)

		root, err := m.prepareWorktreeRoot(ctx, client)
		if err != nil {
			return err
		}
		path := filepath.Join(root, name)

		if err := client.WorktreeAddExisting(ctx, path, branch); err != nil {
			return err
		}
		if err := m.setupSharedConfig(ctx, path); err != nil {
			if removeErr := client.WorktreeRemove(ctx, path); removeErr != nil {
				m.log.Warn().Err(removeErr).Str("worktreePath", path).Msg("failed to remove worktree after setup failure")
			}
			return err
		}

		m.log.Info().Str("worktreePath", path).Str("branch", branch).Msg("created worktree for existing branch")
		info = domain.WorktreeInfo{
			WorktreePath: path,
			WorktreeName: name,
			BranchName:   branch,
			CreatedAt:    time.Now(),
		}
		return nil
	})
	return info, err
}

// setupSharedConfig symlinks the configured shared files and directories from
// the main repository into a new worktree and excludes each one there.
// Missing sources are skipped.
func (m *Manager) setupSharedConfig(ctx context.Context, worktreePath string) error {
	if len(m.sharedConfigPaths) == 0 {
		return nil
	}

	worktreeClient, err := git.NewClient(worktreePath)
	if err != nil {
		return err
	}
	excludePath, err := m.excludeFilePath(ctx, worktreeClient)
	if err != nil {
		return err
	}

	for _, rel := range m.sharedConfigPaths {
		src := filepath.Join(m.mainRepoPath, rel)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dest := filepath.Join(worktreePath, rel)
		if _, err := os.Lstat(dest); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("failed to create parent directory for %s: %w", dest, err)
		}
		if err := os.Symlink(src, dest); err != nil {
			return fmt.Errorf("failed to symlink shared config %s: %w", rel, err)
		}
		if err := ensureExcludeEntry(excludePath, "/"+filepath.ToSlash(rel)); err != nil {
			return err
		}
	}
	return nil
}

// validateDeletionTarget enforces the path safety rules before any mutation:
// the target may not be the main repository or an ancestor of it, and it must
// look like a linked worktree (a .git *file* pointer) rather than a
// standalone repository (a .git *directory*).
func (m *Manager) validateDeletionTarget(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve worktree path: %w", err)
	}
	abs = resolvePath(abs)

	if abs == m.mainRepoPath || isAncestorOf(abs, m.mainRepoPath) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeWorktreePath, abs)
	}

	if gitInfo, err := os.Lstat(filepath.Join(abs, ".git")); err == nil && gitInfo.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotAWorktree, abs)
	}

	return abs, nil
}

// resolvePath evaluates symlinks in path, falling back to the cleaned input
// when the path (or part of it) does not exist yet.
func resolvePath(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return resolved
}

// isAncestorOf reports whether path is a strict ancestor directory of other.
func isAncestorOf(path, other string) bool {
	rel, err := filepath.Rel(path, other)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DeleteWorktree removes the worktree at path, both its working directory
// and git's registration of it. If `git worktree remove` fails (locked
// worktree, manual tampering), it falls back to deleting the directory and
// pruning git's registry.
func (m *Manager) DeleteWorktree(ctx context.Context, path string) error {
	abs, err := m.validateDeletionTarget(path)
	if err != nil {
		return err
	}

	return m.serializer.ExecuteWrite(ctx, m.mainRepoPath, func(ctx context.Context, client *git.Client) error {
		removeErr := client.WorktreeRemove(ctx, abs)
		if removeErr == nil {
			m.log.Info().Str("worktreePath", abs).Msg("removed worktree")
			return nil
		}
		m.log.Warn().Err(removeErr).Str("worktreePath", abs).Msg("git worktree remove failed, falling back to filesystem deletion")

		if err := os.RemoveAll(abs); err != nil {
			return fmt.Errorf("failed to delete worktree directory %s: %w", abs, err)
		}
		if err := client.WorktreePrune(ctx); err != nil {
			return err
		}
		m.log.Info().Str("worktreePath", abs).Msg("removed worktree via filesystem fallback")
		return nil
	})
}

// ListWorktrees returns the managed worktrees: every registered worktree
// except the main repository and anything outside the managed worktree root.
// BaseBranch and CreatedAt are not recoverable from git and are left zero.
func (m *Manager) ListWorktrees(ctx context.Context) ([]domain.WorktreeInfo, error) {
	var infos []domain.WorktreeInfo
	err := m.serializer.ExecuteRead(ctx, m.mainRepoPath, func(ctx context.Context, client *git.Client) error {
		worktrees, err := client.ListWorktrees(ctx)
		if err != nil {
			return err
		}

		root := resolvePath(m.worktreeRoot())
		for _, wt := range worktrees {
			path := resolvePath(wt.Path)
			if path == m.mainRepoPath || !isAncestorOf(root, path) {
				continue
			}
			infos = append(infos, domain.WorktreeInfo{
				WorktreePath: path,
				WorktreeName: filepath.Base(wt.Path),
				BranchName:   wt.Branch,
			})
		}
		return nil
	})
	return infos, err
}

// CleanupOrphanedWorktrees deletes every managed worktree whose path is
// absent from associatedPaths, reconciling state after crashes or manual git
// use. Individual failures do not abort the pass; the returned map carries
// one error per path that could not be cleaned up.
func (m *Manager) CleanupOrphanedWorktrees(ctx context.Context, associatedPaths map[string]bool) (map[string]error, error) {
	worktrees, err := m.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}

	failures := make(map[string]error)
	for _, wt := range worktrees {
		if associatedPaths[wt.WorktreePath] {
			continue
		}
		m.log.Info().Str("worktreePath", wt.WorktreePath).Msg("cleaning up orphaned worktree")
		if err := m.DeleteWorktree(ctx, wt.WorktreePath); err != nil {
			m.log.Warn().Err(err).Str("worktreePath", wt.WorktreePath).Msg("failed to clean up orphaned worktree")
			failures[wt.WorktreePath] = err
		}
	}
	return failures, nil
}
