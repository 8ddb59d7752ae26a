package saga

import (
	"context"
	"fmt"

	"twig/git"
)

type CreateBranchInput struct {
	// BranchName is the branch to create and check out.
	BranchName string
	// BaseBranch is the starting point for the new branch. Defaults to the
	// current HEAD when empty.
	BaseBranch string
}

type CreateBranchOutput struct {
	BranchName     string
	PreviousBranch string
}

// CreateBranchSaga creates a new branch from a base and checks it out. On a
// later failure the saga returns to the original ref and deletes the branch
// it created.
type CreateBranchSaga struct {
	GitSaga
}

func NewCreateBranchSaga(baseDir string, opts ...Option) *CreateBranchSaga {
	return &CreateBranchSaga{GitSaga: newGitSaga(baseDir, opts...)}
}

// headState captures where HEAD pointed before a saga mutated it. Branch is
// empty when HEAD was detached; Commit is always populated.
type headState struct {
	Branch string
	Commit string
}

// recordHeadState is the shared read-only first step of the branch sagas: it
// captures the exact prior ref so rollback restores it rather than guessing a
// default.
func recordHeadState(ctx context.Context, s *Saga, client *git.Client) (headState, error) {
	return ReadOnlyStep(ctx, s, "record current HEAD state", func(ctx context.Context) (headState, error) {
		branch, _, err := client.CurrentBranch(ctx)
		if err != nil {
			return headState{}, err
		}
		commit, err := client.CurrentCommit(ctx)
		if err != nil {
			return headState{}, err
		}
		return headState{Branch: branch, Commit: commit}, nil
	})
}

// checkoutOriginal returns HEAD to a previously recorded state: the original
// branch when one existed, else the original commit (re-entering detached
// HEAD).
func checkoutOriginal(ctx context.Context, client *git.Client, original headState) error {
	if original.Branch != "" {
		return client.Checkout(ctx, original.Branch)
	}
	return client.Checkout(ctx, original.Commit)
}

func (cs *CreateBranchSaga) Run(ctx context.Context, input CreateBranchInput) (CreateBranchOutput, error) {
	if input.BranchName == "" {
		return CreateBranchOutput{}, fmt.Errorf("branch name is required")
	}

	var output CreateBranchOutput
	err := cs.runGitOperations(ctx, "create-branch", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := cs.execute(ctx, s, client, input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	return output, err
}

func (cs *CreateBranchSaga) execute(ctx context.Context, s *Saga, client *git.Client, input CreateBranchInput) (CreateBranchOutput, error) {
	original, err := recordHeadState(ctx, s, client)
	if err != nil {
		return CreateBranchOutput{}, err
	}

	base := input.BaseBranch
	if base == "" {
		base = "HEAD"
	}

	err = Do(ctx, s, "create and checkout branch",
		func(ctx context.Context) error {
			return client.CheckoutNewBranch(ctx, input.BranchName, base)
		},
		func(ctx context.Context) error {
			if err := checkoutOriginal(ctx, client, original); err != nil {
				return err
			}
			exists, err := client.BranchExists(ctx, input.BranchName)
			if err != nil {
				return err
			}
			if exists {
				return client.DeleteBranch(ctx, input.BranchName)
			}
			return nil
		})
	if err != nil {
		return CreateBranchOutput{}, err
	}

	return CreateBranchOutput{BranchName: input.BranchName, PreviousBranch: original.Branch}, nil
}
