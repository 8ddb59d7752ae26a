package saga

import (
	"context"

	"twig/git"
)

type DetachHeadInput struct{}

type DetachHeadOutput struct {
	// PreviousBranch is empty when HEAD was already detached.
	PreviousBranch string
	Commit         string
}

// DetachHeadSaga detaches HEAD at the current commit. Rollback re-checks-out
// the original branch when one existed; a HEAD that was already detached is
// left as-is.
type DetachHeadSaga struct {
	GitSaga
}

func NewDetachHeadSaga(baseDir string, opts ...Option) *DetachHeadSaga {
	return &DetachHeadSaga{GitSaga: newGitSaga(baseDir, opts...)}
}

func (ds *DetachHeadSaga) Run(ctx context.Context, input DetachHeadInput) (DetachHeadOutput, error) {
	var output DetachHeadOutput
	err := ds.runGitOperations(ctx, "detach-head", func(ctx context.Context, s *Saga, client *git.Client) error {
		out, err := ds.execute(ctx, s, client)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	return output, err
}

func (ds *DetachHeadSaga) execute(ctx context.Context, s *Saga, client *git.Client) (DetachHeadOutput, error) {
	original, err := recordHeadState(ctx, s, client)
	if err != nil {
		return DetachHeadOutput{}, err
	}

	err = Do(ctx, s, "detach HEAD",
		func(ctx context.Context) error {
			return client.DetachHead(ctx)
		},
		func(ctx context.Context) error {
			if original.Branch == "" {
				return nil
			}
			return client.Checkout(ctx, original.Branch)
		})
	if err != nil {
		return DetachHeadOutput{}, err
	}

	return DetachHeadOutput{PreviousBranch: original.Branch, Commit: original.Commit}, nil
}
