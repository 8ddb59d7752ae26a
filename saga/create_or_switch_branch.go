package saga

import (
	"context"
	"fmt"

	"twig/git"
)

type CreateOrSwitchBranchInput struct {
	BranchName string
	// BaseBranch is only used when the branch has to be created. Defaults to
	// the current HEAD when empty.
	BaseBranch string
}

type CreateOrSwitchBranchOutput struct {
	BranchName     string
	PreviousBranch string
	// Created is true when this run created the branch rather than switching
	// to a pre-existing one.
	Created bool
}

// CreateOrSwitchBranchSaga switches to the branch if it already exists,
// otherwise creates it from the base. The created-by-this-saga flag gates
// which rollback runs: switching to a pre-existing branch must never delete
// it on rollback.
type CreateOrSwitchBranchSaga struct {
	GitSaga
}

func NewCreateOrSwitchBranchSaga(baseDir string, opts ...Option) *CreateOrSwitchBranchSaga {
	return &CreateOrSwitchBranchSaga{GitSaga: newGitSaga(baseDir, opts...)}
}

func (cs *CreateOrSwitchBranchSaga) Run(ctx context.Context, input CreateOrSwitchBranchInput) (CreateOrSwitchBranchOutput, error) {
	if input.BranchName == "" {
		return CreateOrSwitchBranchOutput{}, fmt.Errorf("branch name is required")
	}

	var output CreateOrSwitchBranchOutput
	err := cs.runGitOperations(ctx, "create-or-switch-branch", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := cs.execute(ctx, s, client, input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	return output, err
}

func (cs *CreateOrSwitchBranchSaga) execute(ctx context.Context, s *Saga, client *git.Client, input CreateOrSwitchBranchInput) (CreateOrSwitchBranchOutput, error) {
	original, err := recordHeadState(ctx, s, client)
	if err != nil {
		return CreateOrSwitchBranchOutput{}, err
	}

	exists, err := ReadOnlyStep(ctx, s, "check branch existence", func(ctx context.Context) (bool, error) {
		return client.BranchExists(ctx, input.BranchName)
	})
	if err != nil {
		return CreateOrSwitchBranchOutput{}, err
	}

	if exists {
		err = Do(ctx, s, "checkout existing branch",
			func(ctx context.Context) error {
				return client.Checkout(ctx, input.BranchName)
			},
			func(ctx context.Context) error {
				return checkoutOriginal(ctx, client, original)
			})
	} else {
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
				stillExists, err := client.BranchExists(ctx, input.BranchName)
				if err != nil {
					return err
				}
				if stillExists {
					return client.DeleteBranch(ctx, input.BranchName)
				}
				return nil
			})
	}
	if err != nil {
		return CreateOrSwitchBranchOutput{}, err
	}

	return CreateOrSwitchBranchOutput{
		BranchName:     input.BranchName,
		PreviousBranch: original.Branch,
		Created:        !exists,
	}, nil
}
