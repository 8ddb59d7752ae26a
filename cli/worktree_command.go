package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"twig/common"
	"twig/worktree"
)

// NewWorktreeCommand creates the definition for the "worktree" CLI subcommand.
func NewWorktreeCommand() *cli.Command {
	return &cli.Command{
		Name:    "worktree",
		Aliases: []string{"wt"},
		Usage:   "Create, list, remove, and reconcile managed git worktrees",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a worktree on a new branch (twig worktree create [--base <branch>])",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "base", Usage: "Base branch for the new worktree's branch (defaults to the repository default branch)"},
					&cli.StringFlag{Name: "branch", Aliases: []string{"b"}, Usage: "Create the worktree for this existing branch instead of a new one"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					manager, err := newWorktreeManager(ctx, cmd)
					if err != nil {
						return err
					}
					if branch := cmd.String("branch"); branch != "" {
						info, err := manager.CreateWorktreeForExistingBranch(ctx, branch)
						if err != nil {
							return err
						}
						fmt.Printf("Created worktree %s at %s for branch %s\n", info.WorktreeName, info.WorktreePath, info.BranchName)
						return nil
					}
					info, err := manager.CreateWorktree(ctx, cmd.String("base"))
					if err != nil {
						return err
					}
					fmt.Printf("Created worktree %s at %s (branch %s from %s)\n", info.WorktreeName, info.WorktreePath, info.BranchName, info.BaseBranch)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List managed worktrees",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					manager, err := newWorktreeManager(ctx, cmd)
					if err != nil {
						return err
					}
					infos, err := manager.ListWorktrees(ctx)
					if err != nil {
						return err
					}
					if len(infos) == 0 {
						fmt.Println("No managed worktrees.")
						return nil
					}
					for _, info := range infos {
						fmt.Printf("%s\t%s\t%s\n", info.WorktreeName, info.BranchName, info.WorktreePath)
					}
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a managed worktree (twig worktree remove <path>)",
				ArgsUsage: "<path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path == "" {
						_ = cli.ShowSubcommandHelp(cmd)
						return cli.Exit("Worktree path is required.", 1)
					}
					manager, err := newWorktreeManager(ctx, cmd)
					if err != nil {
						return err
					}
					if err := manager.DeleteWorktree(ctx, path); err != nil {
						return err
					}
					fmt.Printf("Removed worktree %s\n", path)
					return nil
				},
			},
			{
				Name:      "cleanup",
				Usage:     "Delete managed worktrees not in the given keep list (twig worktree cleanup [<path-to-keep> ...])",
				ArgsUsage: "[<path-to-keep> ...]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					manager, err := newWorktreeManager(ctx, cmd)
					if err != nil {
						return err
					}
					keep := make(map[string]bool)
					for _, path := range cmd.Args().Slice() {
						keep[path] = true
					}
					failures, err := manager.CleanupOrphanedWorktrees(ctx, keep)
					if err != nil {
						return err
					}
					for path, failure := range failures {
						fmt.Printf("Failed to clean up %s: %v\n", path, failure)
					}
					if len(failures) > 0 {
						return cli.Exit(fmt.Sprintf("%d worktrees could not be cleaned up.", len(failures)), 1)
					}
					return nil
				},
			},
		},
	}
}

func newWorktreeManager(ctx context.Context, cmd *cli.Command) (*worktree.Manager, error) {
	repo, err := repoDir(cmd)
	if err != nil {
		return nil, err
	}
	config, err := common.LoadLocalConfig()
	if err != nil {
		return nil, err
	}
	return worktree.NewManager(ctx, worktree.ManagerParams{
		MainRepoPath:      repo,
		WorktreeBaseDir:   config.WorktreeBaseDir,
		SharedConfigPaths: config.SharedConfigPaths,
		NamePalette:       config.NamePalette,
	})
}
