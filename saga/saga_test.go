package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSaga(name string) *Saga {
	return New(name, zerolog.Nop())
}

func TestSagaSuccessRunsNoRollbacks(t *testing.T) {
	ctx := context.Background()
	s := testSaga("happy-path")
	var rollbacks []string

	err := s.Execute(ctx, func(ctx context.Context) error {
		for _, name := range []string{"one", "two", "three"} {
			name := name
			if err := Do(ctx, s, name,
				func(ctx context.Context) error { return nil },
				func(ctx context.Context) error {
					rollbacks = append(rollbacks, name)
					return nil
				},
			); err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Empty(t, rollbacks)
}

func TestSagaRollsBackInReverseOrder(t *testing.T) {
	ctx := context.Background()
	s := testSaga("reverse-order")
	var rollbacks []string
	boom := errors.New("boom")

	err := s.Execute(ctx, func(ctx context.Context) error {
		for _, name := range []string{"one", "two", "three"} {
			name := name
			if err := Do(ctx, s, name,
				func(ctx context.Context) error { return nil },
				func(ctx context.Context) error {
					rollbacks = append(rollbacks, name)
					return nil
				},
			); err != nil {
				return err
			}
		}
		return Do(ctx, s, "four",
			func(ctx context.Context) error { return boom },
			func(ctx context.Context) error {
				rollbacks = append(rollbacks, "four")
				return nil
			},
		)
	})

	require.Error(t, err)
	// The failing step never completed, so its own rollback must not run.
	assert.Equal(t, []string{"three", "two", "one"}, rollbacks)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "reverse-order", stepErr.SagaName)
	assert.Equal(t, "four", stepErr.StepName)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, stepErr.RollbackErr)
}

func TestReadOnlyStepSkippedDuringRollback(t *testing.T) {
	ctx := context.Background()
	s := testSaga("read-only")
	var rollbacks []string

	err := s.Execute(ctx, func(ctx context.Context) error {
		branch, err := ReadOnlyStep(ctx, s, "record branch", func(ctx context.Context) (string, error) {
			return "main", nil
		})
		if err != nil {
			return err
		}
		assert.Equal(t, "main", branch)

		if err := Do(ctx, s, "mutate",
			func(ctx context.Context) error { return nil },
			func(ctx context.Context) error {
				rollbacks = append(rollbacks, "mutate")
				return nil
			},
		); err != nil {
			return err
		}
		return Do(ctx, s, "fail", func(ctx context.Context) error {
			return errors.New("boom")
		}, nil)
	})

	require.Error(t, err)
	assert.Equal(t, []string{"mutate"}, rollbacks)
}

func TestStepResultFlowsToRollback(t *testing.T) {
	ctx := context.Background()
	s := testSaga("result-capture")
	var compensated string

	err := s.Execute(ctx, func(ctx context.Context) error {
		created, err := Step(ctx, s, "create resource",
			func(ctx context.Context) (string, error) { return "resource-42", nil },
			func(ctx context.Context, result string) error {
				compensated = result
				return nil
			},
		)
		if err != nil {
			return err
		}
		assert.Equal(t, "resource-42", created)
		return Do(ctx, s, "fail", func(ctx context.Context) error {
			return errors.New("boom")
		}, nil)
	})

	require.Error(t, err)
	assert.Equal(t, "resource-42", compensated)
}

func TestRollbackFailureDoesNotStopRemainingRollbacks(t *testing.T) {
	ctx := context.Background()
	s := testSaga("rollback-tolerance")
	var rollbacks []string

	err := s.Execute(ctx, func(ctx context.Context) error {
		if err := Do(ctx, s, "one",
			func(ctx context.Context) error { return nil },
			func(ctx context.Context) error {
				rollbacks = append(rollbacks, "one")
				return nil
			},
		); err != nil {
			return err
		}
		if err := Do(ctx, s, "two",
			func(ctx context.Context) error { return nil },
			func(ctx context.Context) error {
				rollbacks = append(rollbacks, "two")
				return errors.New("rollback broke")
			},
		); err != nil {
			return err
		}
		return Do(ctx, s, "fail", func(ctx context.Context) error {
			return errors.New("boom")
		}, nil)
	})

	require.Error(t, err)
	assert.Equal(t, []string{"two", "one"}, rollbacks)

	// One rollback succeeded, so the partial failure stays a log warning.
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.NoError(t, stepErr.RollbackErr)
}

func TestAllRollbacksFailingIsSurfaced(t *testing.T) {
	ctx := context.Background()
	s := testSaga("total-rollback-failure")

	err := s.Execute(ctx, func(ctx context.Context) error {
		if err := Do(ctx, s, "one",
			func(ctx context.Context) error { return nil },
			func(ctx context.Context) error { return errors.New("rollback broke") },
		); err != nil {
			return err
		}
		return Do(ctx, s, "fail", func(ctx context.Context) error {
			return errors.New("boom")
		}, nil)
	})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Error(t, stepErr.RollbackErr)
	assert.Contains(t, err.Error(), "rollback also failed")
}

func TestExecuteRollsBackNonStepErrors(t *testing.T) {
	ctx := context.Background()
	s := testSaga("non-step-error")
	var rollbacks []string

	err := s.Execute(ctx, func(ctx context.Context) error {
		if err := Do(ctx, s, "one",
			func(ctx context.Context) error { return nil },
			func(ctx context.Context) error {
				rollbacks = append(rollbacks, "one")
				return nil
			},
		); err != nil {
			return err
		}
		return errors.New("precondition violated between steps")
	})

	require.Error(t, err)
	assert.Equal(t, []string{"one"}, rollbacks)
}

func TestRollbackSurvivesContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := testSaga("cancel-during-run")
	rolledBack := false

	err := s.Execute(ctx, func(ctx context.Context) error {
		if err := Do(ctx, s, "one",
			func(ctx context.Context) error { return nil },
			func(ctx context.Context) error {
				assert.NoError(t, ctx.Err(), "rollback context must not carry cancellation")
				rolledBack = true
				return nil
			},
		); err != nil {
			return err
		}
		cancel()
		return Do(ctx, s, "fail", func(ctx context.Context) error {
			return ctx.Err()
		}, nil)
	})

	require.Error(t, err)
	assert.True(t, rolledBack)
}
