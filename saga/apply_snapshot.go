package saga

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"twig/domain"
	"twig/git"
)

// ArtifactDownloader fetches a snapshot archive as an opaque byte payload.
// Implemented by the artifact package; injected so tests can substitute a
// fake.
type ArtifactDownloader interface {
	DownloadArtifact(ctx context.Context, taskId, runId, archiveUrl string) ([]byte, error)
}

type ApplySnapshotInput struct {
	TaskId   string
	RunId    string
	Snapshot domain.TreeSnapshot
}

type ApplySnapshotOutput struct {
	// TreeHash is the hash of the snapshot that was applied.
	TreeHash string
	// Detached is true when applying required checking out the base commit
	// with no matching local branch, leaving the repository in detached HEAD
	// state.
	Detached bool
}

// ApplySnapshotSaga materializes a remote tree snapshot onto the local
// working tree: it downloads the snapshot archive, checks out the snapshot's
// base commit when HEAD differs, extracts the archived files over the working
// tree, and deletes the files the snapshot marks as deleted.
//
// The extraction and deletion steps have no true rollback: no backup of the
// affected file content is taken, so their compensations only log a warning
// describing what cannot be undone. Everything before them (scratch
// directory, downloaded archive, checkout) is fully compensated.
type ApplySnapshotSaga struct {
	GitSaga
	downloader ArtifactDownloader
}

func NewApplySnapshotSaga(baseDir string, downloader ArtifactDownloader, opts ...Option) *ApplySnapshotSaga {
	return &ApplySnapshotSaga{
		GitSaga:    newGitSaga(baseDir, opts...),
		downloader: downloader,
	}
}

func (as *ApplySnapshotSaga) Run(ctx context.Context, input ApplySnapshotInput) (ApplySnapshotOutput, error) {
	if err := input.Snapshot.Validate(); err != nil {
		return ApplySnapshotOutput{}, err
	}
	if as.downloader == nil {
		return ApplySnapshotOutput{}, fmt.Errorf("an artifact downloader is required to apply snapshots")
	}

	var output ApplySnapshotOutput
	err := as.runGitOperations(ctx, "apply-snapshot", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := as.execute(ctx, s, client, input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	if err != nil {
		return ApplySnapshotOutput{}, err
	}
	return output, nil
}

func (as *ApplySnapshotSaga) execute(ctx context.Context, s *Saga, client *git.Client, input ApplySnapshotInput) (ApplySnapshotOutput, error) {
	snapshot := input.Snapshot
	detached := false

	original, err := recordHeadState(ctx, s, client)
	if err != nil {
		return ApplySnapshotOutput{}, err
	}
	needsCheckout := original.Commit != snapshot.BaseCommit

	if needsCheckout {
		_, err = ReadOnlyStep(ctx, s, "verify clean working tree", func(ctx context.Context) (struct{}, error) {
			clean, err := client.IsWorkingTreeClean(ctx)
			if err != nil {
				return struct{}{}, err
			}
			if !clean {
				return struct{}{}, fmt.Errorf("%w: cannot switch to snapshot base commit %s", ErrDirtyWorkingTree, snapshot.BaseCommit)
			}
			return struct{}{}, nil
		})
		if err != nil {
			return ApplySnapshotOutput{}, err
		}
	}

	scratchDir, err := Step(ctx, s, "create scratch directory",
		func(ctx context.Context) (string, error) {
			return os.MkdirTemp("", "twig-snapshot-")
		},
		func(ctx context.Context, dir string) error {
			return os.RemoveAll(dir)
		})
	if err != nil {
		return ApplySnapshotOutput{}, err
	}

	archivePath, err := Step(ctx, s, "download snapshot archive",
		func(ctx context.Context) (string, error) {
			payload, err := as.downloader.DownloadArtifact(ctx, input.TaskId, input.RunId, snapshot.ArchiveUrl)
			if err != nil {
				return "", fmt.Errorf("failed to download snapshot archive: %w", err)
			}
			path := filepath.Join(scratchDir, "snapshot.tar.gz")
			if err := os.WriteFile(path, payload, 0644); err != nil {
				return "", fmt.Errorf("failed to write snapshot archive: %w", err)
			}
			return path, nil
		},
		func(ctx context.Context, path string) error {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			return nil
		})
	if err != nil {
		return ApplySnapshotOutput{}, err
	}

	if needsCheckout {
		err = Do(ctx, s, "checkout snapshot base commit",
			func(ctx context.Context) error {
				branch, err := client.Output(ctx, "for-each-ref", "--points-at", snapshot.BaseCommit, "--format=%(refname:short)", "refs/heads")
				if err != nil {
					return err
				}
				if branch != "" {
					// Multiple branches may point at the base commit; the
					// first is as good as any.
					return client.Checkout(ctx, strings.SplitN(branch, "\n", 2)[0])
				}
				log := s.Logger()
				log.Warn().Str("baseCommit", snapshot.BaseCommit).Msg("no local branch matches the snapshot base commit; repository is now in detached HEAD state")
				detached = true
				return client.Checkout(ctx, snapshot.BaseCommit)
			},
			func(ctx context.Context) error {
				return checkoutOriginal(ctx, client, original)
			})
		if err != nil {
			return ApplySnapshotOutput{}, err
		}
	}

	err = Do(ctx, s, "extract snapshot archive",
		func(ctx context.Context) error {
			return extractTarGz(archivePath, as.baseDir)
		},
		func(ctx context.Context) error {
			log := s.Logger()
			log.Warn().Str("treeHash", snapshot.TreeHash).Msg("snapshot extraction cannot be rolled back; extracted files remain in the working tree")
			return nil
		})
	if err != nil {
		return ApplySnapshotOutput{}, err
	}

	err = Do(ctx, s, "delete removed files",
		func(ctx context.Context) error {
			for _, path := range snapshot.DeletedPaths() {
				rel := filepath.FromSlash(path)
				if !filepath.IsLocal(rel) {
					return fmt.Errorf("snapshot deletion path %q escapes the repository", path)
				}
				if err := os.Remove(filepath.Join(as.baseDir, rel)); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete %s: %w", path, err)
				}
			}
			return nil
		},
		func(ctx context.Context) error {
			log := s.Logger()
			log.Warn().Str("treeHash", snapshot.TreeHash).Msg("snapshot file deletions cannot be rolled back; deleted files were not backed up")
			return nil
		})
	if err != nil {
		return ApplySnapshotOutput{}, err
	}

	err = Do(ctx, s, "remove snapshot archive",
		func(ctx context.Context) error {
			if err := os.RemoveAll(scratchDir); err != nil {
				return fmt.Errorf("failed to remove scratch directory: %w", err)
			}
			return nil
		},
		nil)
	if err != nil {
		return ApplySnapshotOutput{}, err
	}

	return ApplySnapshotOutput{TreeHash: snapshot.TreeHash, Detached: detached}, nil
}
