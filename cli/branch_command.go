package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"twig/saga"
)

// NewBranchCommand creates the definition for the "branch" CLI subcommand,
// exposing the saga-backed branch and HEAD operations.
func NewBranchCommand() *cli.Command {
	return &cli.Command{
		Name:  "branch",
		Usage: "Saga-backed branch and HEAD operations",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create and check out a new branch (twig branch create <name> [--base <branch>])",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "base", Usage: "Base branch (defaults to the current HEAD)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return cli.Exit("Branch name is required.", 1)
					}
					repo, err := repoDir(cmd)
					if err != nil {
						return err
					}
					output, err := saga.NewCreateBranchSaga(repo).Run(ctx, saga.CreateBranchInput{
						BranchName: name,
						BaseBranch: cmd.String("base"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("Created and checked out branch %s (was on %s)\n", output.BranchName, output.PreviousBranch)
					return nil
				},
			},
			{
				Name:      "switch",
				Usage:     "Switch to a branch, creating it when --create is set (twig branch switch <name>)",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "create", Aliases: []string{"c"}, Usage: "Create the branch when it does not exist"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return cli.Exit("Branch name is required.", 1)
					}
					repo, err := repoDir(cmd)
					if err != nil {
						return err
					}
					if cmd.Bool("create") {
						output, err := saga.NewCreateOrSwitchBranchSaga(repo).Run(ctx, saga.CreateOrSwitchBranchInput{BranchName: name})
						if err != nil {
							return err
						}
						if output.Created {
							fmt.Printf("Created and checked out branch %s\n", output.BranchName)
						} else {
							fmt.Printf("Switched to existing branch %s\n", output.BranchName)
						}
						return nil
					}
					output, err := saga.NewSwitchBranchSaga(repo).Run(ctx, saga.SwitchBranchInput{BranchName: name})
					if err != nil {
						return err
					}
					fmt.Printf("Switched to branch %s (was on %s)\n", output.BranchName, output.PreviousBranch)
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "Check out the repository's default branch",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					repo, err := repoDir(cmd)
					if err != nil {
						return err
					}
					output, err := saga.NewResetToDefaultBranchSaga(repo).Run(ctx, saga.ResetToDefaultBranchInput{})
					if err != nil {
						return err
					}
					if !output.Switched {
						fmt.Printf("Already on default branch %s\n", output.DefaultBranch)
						return nil
					}
					fmt.Printf("Switched to default branch %s (was on %s)\n", output.DefaultBranch, output.PreviousBranch)
					return nil
				},
			},
			{
				Name:  "detach",
				Usage: "Detach HEAD at the current commit",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					repo, err := repoDir(cmd)
					if err != nil {
						return err
					}
					output, err := saga.NewDetachHeadSaga(repo).Run(ctx, saga.DetachHeadInput{})
					if err != nil {
						return err
					}
					fmt.Printf("Detached HEAD at %s\n", output.Commit)
					return nil
				},
			},
			{
				Name:      "reattach",
				Usage:     "Force a branch onto the current HEAD (twig branch reattach <name>)",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return cli.Exit("Branch name is required.", 1)
					}
					repo, err := repoDir(cmd)
					if err != nil {
						return err
					}
					output, err := saga.NewReattachBranchSaga(repo).Run(ctx, saga.ReattachBranchInput{BranchName: name})
					if err != nil {
						return err
					}
					fmt.Printf("Reattached branch %s at %s\n", output.BranchName, output.Commit)
					return nil
				},
			},
		},
	}
}
