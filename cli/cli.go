package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"twig/logger"
)

func main() {
	// Load .env file if any
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("Warning: failed to load .env file")
		}
	}

	log.Logger = logger.Get()

	cmd := &cli.Command{
		Name:  "twig",
		Usage: "Transactional git worktree and branch operations for agent task workspaces",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "repo", Aliases: []string{"r"}, Usage: "Path to the main repository (defaults to the current directory)"},
		},
		Commands: []*cli.Command{
			NewWorktreeCommand(),
			NewBranchCommand(),
			NewCleanCommand(),
			NewApplySnapshotCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// repoDir resolves the repository directory from the global --repo flag,
// falling back to the current working directory.
func repoDir(cmd *cli.Command) (string, error) {
	if repo := cmd.String("repo"); repo != "" {
		return repo, nil
	}
	return os.Getwd()
}
