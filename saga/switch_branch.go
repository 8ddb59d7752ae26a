package saga

import (
	"context"
	"fmt"

	"twig/git"
)

type SwitchBranchInput struct {
	BranchName string
}

type SwitchBranchOutput struct {
	BranchName     string
	PreviousBranch string
}

// SwitchBranchSaga checks out an existing branch. Rollback checks the
// original ref back out.
type SwitchBranchSaga struct {
	GitSaga
}

func NewSwitchBranchSaga(baseDir string, opts ...Option) *SwitchBranchSaga {
	return &SwitchBranchSaga{GitSaga: newGitSaga(baseDir, opts...)}
}

func (ss *SwitchBranchSaga) Run(ctx context.Context, input SwitchBranchInput) (SwitchBranchOutput, error) {
	if input.BranchName == "" {
		return SwitchBranchOutput{}, fmt.Errorf("branch name is required")
	}

	var output SwitchBranchOutput
	err := ss.runGitOperations(ctx, "switch-branch", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := ss.execute(ctx, s, client, input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	return output, err
}

func (ss *SwitchBranchSaga) execute(ctx context.Context, s *Saga, client *git.Client, input SwitchBranchInput) (SwitchBranchOutput, error) {
	original, err := recordHeadState(ctx, s, client)
	if err != nil {
		return SwitchBranchOutput{}, err
	}

	err = Do(ctx, s, "checkout branch",
		func(ctx context.Context) error {
			return client.Checkout(ctx, input.BranchName)
		},
		func(ctx context.Context) error {
			return checkoutOriginal(ctx, client, original)
		})
	if err != nil {
		return SwitchBranchOutput{}, err
	}

	return SwitchBranchOutput{BranchName: input.BranchName, PreviousBranch: original.Branch}, nil
}
