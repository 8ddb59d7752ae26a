package saga

import (
	"context"
	"fmt"

	"twig/git"
)

const backupStashMessage = "twig: backup before cleaning working tree"

type CleanWorkingTreeInput struct{}

type CleanWorkingTreeOutput struct {
	// BackupCreated is false when the working tree was already clean and no
	// destructive action was taken.
	BackupCreated bool
	// BackupStashCommit is the commit hash of the backup stash, surfaced for
	// manual recovery. Empty when no backup was created.
	BackupStashCommit string
}

// CleanWorkingTreeSaga discards all uncommitted changes: it resets the index,
// restores tracked files, and removes untracked files and directories. Before
// any of that, the dirty state is stashed under a labeled backup message and
// the stash count is verified to have actually increased. Each destructive
// step rolls back by popping that backup stash.
type CleanWorkingTreeSaga struct {
	GitSaga
}

func NewCleanWorkingTreeSaga(baseDir string, opts ...Option) *CleanWorkingTreeSaga {
	return &CleanWorkingTreeSaga{GitSaga: newGitSaga(baseDir, opts...)}
}

func (cs *CleanWorkingTreeSaga) Run(ctx context.Context, input CleanWorkingTreeInput) (CleanWorkingTreeOutput, error) {
	var output CleanWorkingTreeOutput
	err := cs.runGitOperations(ctx, "clean-working-tree", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := cs.execute(ctx, s, client)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	return output, err
}

func (cs *CleanWorkingTreeSaga) execute(ctx context.Context, s *Saga, client *git.Client) (CleanWorkingTreeOutput, error) {
	clean, err := ReadOnlyStep(ctx, s, "check working tree status", func(ctx context.Context) (bool, error) {
		return client.IsWorkingTreeClean(ctx)
	})
	if err != nil {
		return CleanWorkingTreeOutput{}, err
	}
	if clean {
		return CleanWorkingTreeOutput{BackupCreated: false}, nil
	}

	// The stash can only be popped once, and the rollback pass attempts
	// every completed step's rollback. Each destructive step shares this
	// closure so the first rollback restores the backup and the rest no-op.
	popped := false
	popBackupStash := func(ctx context.Context) error {
		if popped {
			return nil
		}
		if err := client.StashPop(ctx); err != nil {
			return err
		}
		popped = true
		return nil
	}

	stashCommit, err := Step(ctx, s, "create backup stash",
		func(ctx context.Context) (string, error) {
			countBefore, err := client.StashCount(ctx)
			if err != nil {
				return "", err
			}
			if err := client.StashPush(ctx, backupStashMessage); err != nil {
				return "", err
			}
			countAfter, err := client.StashCount(ctx)
			if err != nil {
				return "", err
			}
			if countAfter <= countBefore {
				return "", fmt.Errorf("backup stash was not created (stash count %d before, %d after)", countBefore, countAfter)
			}
			return client.LatestStashCommit(ctx)
		},
		func(ctx context.Context, _ string) error {
			return popBackupStash(ctx)
		})
	if err != nil {
		return CleanWorkingTreeOutput{}, err
	}

	err = Do(ctx, s, "reset index",
		func(ctx context.Context) error { return client.ResetIndex(ctx) },
		popBackupStash)
	if err != nil {
		return CleanWorkingTreeOutput{}, err
	}

	err = Do(ctx, s, "restore tracked files",
		func(ctx context.Context) error { return client.RestoreAllTracked(ctx) },
		popBackupStash)
	if err != nil {
		return CleanWorkingTreeOutput{}, err
	}

	err = Do(ctx, s, "remove untracked files",
		func(ctx context.Context) error { return client.CleanUntracked(ctx) },
		popBackupStash)
	if err != nil {
		return CleanWorkingTreeOutput{}, err
	}

	return CleanWorkingTreeOutput{BackupCreated: true, BackupStashCommit: stashCommit}, nil
}
