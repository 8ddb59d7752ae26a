package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"twig/saga"
)

// NewCleanCommand creates the definition for the "clean" CLI subcommand.
func NewCleanCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Discard all uncommitted changes, keeping a backup stash for recovery",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repo, err := repoDir(cmd)
			if err != nil {
				return err
			}
			output, err := saga.NewCleanWorkingTreeSaga(repo).Run(ctx, saga.CleanWorkingTreeInput{})
			if err != nil {
				return err
			}
			if !output.BackupCreated {
				fmt.Println("Working tree already clean; nothing to do.")
				return nil
			}
			fmt.Printf("Working tree cleaned. Backup stash: %s (recover with `git stash apply %s`)\n",
				output.BackupStashCommit, output.BackupStashCommit)
			return nil
		},
	}
}
