package saga

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"twig/git"
)

// GitSaga binds a saga to one git working directory. Concrete sagas embed it
// and run their steps through runGitOperations, which acquires the write lock
// for the directory from the operation serializer and annotates any failure
// with the repository path.
type GitSaga struct {
	baseDir    string
	serializer *git.Serializer
	log        zerolog.Logger
}

// Option configures a git-bound saga.
type Option func(*GitSaga)

// WithLogger overrides the global logger for the saga's step and rollback
// logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *GitSaga) {
		g.log = logger
	}
}

// WithSerializer shares an operation serializer between sagas so their
// mutating git calls against the same repository path are mutually exclusive.
// Sagas created without one get a private serializer, which still serializes
// correctly within a single saga but not across sagas.
func WithSerializer(serializer *git.Serializer) Option {
	return func(g *GitSaga) {
		g.serializer = serializer
	}
}

func newGitSaga(baseDir string, opts ...Option) GitSaga {
	g := GitSaga{
		baseDir: baseDir,
		log:     zlog.Logger,
	}
	for _, opt := range opts {
		opt(&g)
	}
	if g.serializer == nil {
		g.serializer = git.NewSerializer()
	}
	return g
}

// BaseDir returns the working directory the saga operates on.
func (g *GitSaga) BaseDir() string {
	return g.baseDir
}

// runGitOperations executes fn as a named saga holding the working
// directory's write lock. fn receives the saga for declaring steps and a git
// client bound to the directory. Any failure comes back annotated with the
// saga name and the repository path.
func (g *GitSaga) runGitOperations(ctx context.Context, name string, fn func(ctx context.Context, s *Saga, client *git.Client) error) error {
	s := New(name, g.log.With().Str("repoPath", g.baseDir).Logger())
	err := g.serializer.ExecuteWrite(ctx, g.baseDir, func(ctx context.Context, client *git.Client) error {
		return s.Execute(ctx, func(ctx context.Context) error {
			return fn(ctx, s, client)
		})
	})
	if err != nil {
		return fmt.Errorf("saga %s failed in %s: %w", name, g.baseDir, err)
	}
	return nil
}
