package saga

import (
	"context"
	"fmt"

	"twig/git"
)

// ErrDirtyWorkingTree is returned when a saga refuses to proceed because the
// working tree has uncommitted changes. It always fails before any mutation,
// so no rollback is needed.
var ErrDirtyWorkingTree = fmt.Errorf("working tree has uncommitted changes")

type ResetToDefaultBranchInput struct{}

type ResetToDefaultBranchOutput struct {
	DefaultBranch  string
	PreviousBranch string
	// Switched is false when the repository was already on the default
	// branch and no mutation was performed.
	Switched bool
}

// ResetToDefaultBranchSaga checks out the repository's default branch
// (remote HEAD symref, else local main, else local master). It fails fast on
// a dirty working tree rather than silently stashing.
type ResetToDefaultBranchSaga struct {
	GitSaga
}

func NewResetToDefaultBranchSaga(baseDir string, opts ...Option) *ResetToDefaultBranchSaga {
	return &ResetToDefaultBranchSaga{GitSaga: newGitSaga(baseDir, opts...)}
}

func (rs *ResetToDefaultBranchSaga) Run(ctx context.Context, input ResetToDefaultBranchInput) (ResetToDefaultBranchOutput, error) {
	var output ResetToDefaultBranchOutput
	err := rs.runGitOperations(ctx, "reset-to-default-branch", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := rs.execute(ctx, s, client)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	return output, err
}

func (rs *ResetToDefaultBranchSaga) execute(ctx context.Context, s *Saga, client *git.Client) (ResetToDefaultBranchOutput, error) {
	defaultBranch, err := ReadOnlyStep(ctx, s, "resolve default branch", func(ctx context.Context) (string, error) {
		return client.DefaultBranch(ctx)
	})
	if err != nil {
		return ResetToDefaultBranchOutput{}, err
	}

	original, err := recordHeadState(ctx, s, client)
	if err != nil {
		return ResetToDefaultBranchOutput{}, err
	}

	if original.Branch == defaultBranch {
		return ResetToDefaultBranchOutput{
			DefaultBranch:  defaultBranch,
			PreviousBranch: original.Branch,
			Switched:       false,
		}, nil
	}

	_, err = ReadOnlyStep(ctx, s, "verify clean working tree", func(ctx context.Context) (struct{}, error) {
		clean, err := client.IsWorkingTreeClean(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if !clean {
			return struct{}{}, ErrDirtyWorkingTree
		}
		return struct{}{}, nil
	})
	if err != nil {
		return ResetToDefaultBranchOutput{}, err
	}

	err = Do(ctx, s, "checkout default branch",
		func(ctx context.Context) error {
			return client.Checkout(ctx, defaultBranch)
		},
		func(ctx context.Context) error {
			return checkoutOriginal(ctx, client, original)
		})
	if err != nil {
		return ResetToDefaultBranchOutput{}, err
	}

	return ResetToDefaultBranchOutput{
		DefaultBranch:  defaultBranch,
		PreviousBranch: original.Branch,
		Switched:       true,
	}, nil
}
