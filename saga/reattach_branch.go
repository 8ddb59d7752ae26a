package saga

import (
	"context"
	"fmt"

	"twig/git"
)

type ReattachBranchInput struct {
	BranchName string
}

type ReattachBranchOutput struct {
	BranchName string
	Commit     string
}

// ReattachBranchSaga force-moves a branch name onto the current HEAD
// (checkout -B), typically after work happened in detached HEAD state. It
// records whether the branch pre-existed and at which commit, so rollback
// either deletes a branch this saga introduced or force-resets a pre-existing
// branch back to its prior sha. A branch that had history before the saga ran
// is never deleted.
type ReattachBranchSaga struct {
	GitSaga
}

func NewReattachBranchSaga(baseDir string, opts ...Option) *ReattachBranchSaga {
	return &ReattachBranchSaga{GitSaga: newGitSaga(baseDir, opts...)}
}

func (rs *ReattachBranchSaga) Run(ctx context.Context, input ReattachBranchInput) (ReattachBranchOutput, error) {
	if input.BranchName == "" {
		return ReattachBranchOutput{}, fmt.Errorf("branch name is required")
	}

	var output ReattachBranchOutput
	err := rs.runGitOperations(ctx, "reattach-branch", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := rs.execute(ctx, s, client, input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	return output, err
}

func (rs *ReattachBranchSaga) execute(ctx context.Context, s *Saga, client *git.Client, input ReattachBranchInput) (ReattachBranchOutput, error) {
	original, err := recordHeadState(ctx, s, client)
	if err != nil {
		return ReattachBranchOutput{}, err
	}

	type priorBranchState struct {
		Existed bool
		Commit  string
	}
	prior, err := ReadOnlyStep(ctx, s, "record prior branch state", func(ctx context.Context) (priorBranchState, error) {
		exists, err := client.BranchExists(ctx, input.BranchName)
		if err != nil {
			return priorBranchState{}, err
		}
		if !exists {
			return priorBranchState{}, nil
		}
		commit, err := client.ResolveCommit(ctx, "refs/heads/"+input.BranchName)
		if err != nil {
			return priorBranchState{}, err
		}
		return priorBranchState{Existed: true, Commit: commit}, nil
	})
	if err != nil {
		return ReattachBranchOutput{}, err
	}

	err = Do(ctx, s, "force branch onto HEAD",
		func(ctx context.Context) error {
			return client.CheckoutForceBranch(ctx, input.BranchName)
		},
		func(ctx context.Context) error {
			// The branch is checked out at this point, so restore HEAD
			// first; `git branch -f`/`-D` refuse to touch the current
			// branch.
			if err := checkoutOriginal(ctx, client, original); err != nil {
				return err
			}
			if prior.Existed {
				return client.ForceBranch(ctx, input.BranchName, prior.Commit)
			}
			return client.DeleteBranch(ctx, input.BranchName)
		})
	if err != nil {
		return ReattachBranchOutput{}, err
	}

	return ReattachBranchOutput{BranchName: input.BranchName, Commit: original.Commit}, nil
}
