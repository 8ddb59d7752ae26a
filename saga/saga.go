// Package saga provides a step/rollback engine for multi-step operations
// against systems without transactions, like git and the filesystem. A saga
// runs named steps in sequence; when a step fails, the compensating rollbacks
// of all previously completed steps run in reverse order, emulating an
// all-or-nothing guarantee through manual compensation.
package saga

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

// Saga tracks the completed steps of one multi-step operation. It is created
// per invocation and must not be reused: the run record is append-only and
// only meaningful for the lifetime of a single Execute call. Steps run
// strictly in sequence, never concurrently.
type Saga struct {
	name       string
	runId      string
	log        zerolog.Logger
	completed  []completedStep
	rolledBack bool
}

// completedStep pairs a finished step with the closure that compensates it.
// Rollback closures capture the step's own result, so they are only safe to
// run after that specific step completed.
type completedStep struct {
	name     string
	rollback func(ctx context.Context) error
}

// New creates a saga with the given name. The logger is used for every step
// start, success, failure, and rollback attempt, so partial-failure states
// are diagnosable after the fact.
func New(name string, logger zerolog.Logger) *Saga {
	runId := ksuid.New().String()
	return &Saga{
		name:  name,
		runId: runId,
		log:   logger.With().Str("saga", name).Str("sagaRunId", runId).Logger(),
	}
}

// Name returns the saga's name.
func (s *Saga) Name() string {
	return s.name
}

// Logger returns the saga's logger, carrying the saga name and run id, for
// steps that need to emit their own diagnostics.
func (s *Saga) Logger() zerolog.Logger {
	return s.log
}

// StepError is the failure returned from a saga run: the original error from
// the failing step, annotated with the saga and step names. RollbackErr is
// only populated when every attempted rollback failed; individual rollback
// failures are logged and never replace the original error.
type StepError struct {
	SagaName    string
	StepName    string
	Err         error
	RollbackErr error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("saga %s failed at step %q: %v", e.SagaName, e.StepName, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback also failed: %v)", e.RollbackErr)
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Step runs one compensable unit of work. If execute fails, the step is not
// recorded (there is nothing to compensate for it), all previously completed
// steps are rolled back in reverse order, and the original error is returned
// wrapped in a *StepError. If execute succeeds, the rollback closure is
// appended to the run record along with the step's result and the result is
// returned. A nil rollback marks the step as read-only: it is executed and
// logged like any other step but skipped during the rollback pass.
func Step[T any](ctx context.Context, s *Saga, name string, execute func(ctx context.Context) (T, error), rollback func(ctx context.Context, result T) error) (T, error) {
	s.log.Debug().Str("step", name).Msg("saga step starting")
	result, err := execute(ctx)
	if err != nil {
		s.log.Error().Str("step", name).Err(err).Msg("saga step failed, rolling back")
		var zero T
		return zero, s.fail(ctx, name, err)
	}
	s.log.Debug().Str("step", name).Msg("saga step completed")

	if rollback != nil {
		s.completed = append(s.completed, completedStep{
			name: name,
			rollback: func(ctx context.Context) error {
				return rollback(ctx, result)
			},
		})
	}
	return result, nil
}

// ReadOnlyStep runs a step that never needs compensation, like recording the
// current branch or checking working-tree cleanliness. It participates in
// execution and logging but is never appended to the rollback list.
func ReadOnlyStep[T any](ctx context.Context, s *Saga, name string, execute func(ctx context.Context) (T, error)) (T, error) {
	return Step(ctx, s, name, execute, nil)
}

// Do is Step for mutations whose result the caller does not need.
func Do(ctx context.Context, s *Saga, name string, execute func(ctx context.Context) error, rollback func(ctx context.Context) error) error {
	var wrapped func(ctx context.Context, _ struct{}) error
	if rollback != nil {
		wrapped = func(ctx context.Context, _ struct{}) error { return rollback(ctx) }
	}
	_, err := Step(ctx, s, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, execute(ctx)
	}, wrapped)
	return err
}

// fail rolls back all completed steps and wraps the triggering error. It is
// idempotent with respect to the rollback pass, so an error that bubbles
// through nested helpers only compensates once.
func (s *Saga) fail(ctx context.Context, stepName string, cause error) error {
	stepErr := &StepError{SagaName: s.name, StepName: stepName, Err: cause}
	if s.rolledBack {
		return stepErr
	}
	attempted, succeeded := s.rollbackAll(ctx)
	if attempted > 0 && succeeded == 0 {
		stepErr.RollbackErr = fmt.Errorf("all %d rollback steps failed", attempted)
	}
	return stepErr
}

// rollbackAll compensates completed steps in reverse completion order.
// Rollback is never cancelled: it runs under a context detached from the
// caller's cancellation so an aborted saga still attempts to restore state.
// A rollback that itself fails is logged as a warning and does not prevent
// the remaining rollbacks from being attempted.
func (s *Saga) rollbackAll(ctx context.Context) (attempted, succeeded int) {
	s.rolledBack = true
	rollbackCtx := context.WithoutCancel(ctx)
	for i := len(s.completed) - 1; i >= 0; i-- {
		step := s.completed[i]
		attempted++
		s.log.Info().Str("step", step.name).Msg("rolling back saga step")
		if err := step.rollback(rollbackCtx); err != nil {
			s.log.Warn().Str("step", step.name).Err(err).Msg("saga step rollback failed, continuing with remaining rollbacks")
			continue
		}
		succeeded++
	}
	return attempted, succeeded
}

// Execute runs fn as the body of the saga. Step failures inside fn have
// already triggered the rollback pass by the time Execute sees them; an error
// returned by fn outside any step (a precondition check, for example) also
// rolls back whatever steps had completed. On success the run record is
// discarded without compensation.
func (s *Saga) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	s.log.Info().Msg("saga starting")
	err := fn(ctx)
	if err != nil {
		if !s.rolledBack && len(s.completed) > 0 {
			s.rollbackAll(ctx)
		}
		s.log.Error().Err(err).Msg("saga failed")
		return err
	}
	s.log.Info().Msg("saga completed")
	return nil
}
