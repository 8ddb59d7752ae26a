package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"twig/artifact"
	"twig/domain"
	"twig/saga"
)

// NewApplySnapshotCommand creates the definition for the "apply-snapshot" CLI
// subcommand: it reads a tree snapshot description from a JSON file and
// replays it onto the local checkout.
func NewApplySnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply-snapshot",
		Usage:     "Apply a remote tree snapshot to the local working tree (twig apply-snapshot <snapshot.json>)",
		ArgsUsage: "<snapshot.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "task", Usage: "Task id the snapshot belongs to"},
			&cli.StringFlag{Name: "run", Usage: "Run id the snapshot belongs to"},
			&cli.StringFlag{Name: "api-base-url", Usage: "Artifact API base URL, used when the snapshot has no archive URL"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			snapshotPath := cmd.Args().First()
			if snapshotPath == "" {
				_ = cli.ShowSubcommandHelp(cmd)
				return cli.Exit("Snapshot file is required.", 1)
			}

			data, err := os.ReadFile(snapshotPath)
			if err != nil {
				return fmt.Errorf("failed to read snapshot file: %w", err)
			}
			var snapshot domain.TreeSnapshot
			if err := json.Unmarshal(data, &snapshot); err != nil {
				return fmt.Errorf("failed to parse snapshot file: %w", err)
			}

			repo, err := repoDir(cmd)
			if err != nil {
				return err
			}

			downloader := artifact.NewClient(cmd.String("api-base-url"))
			output, err := saga.NewApplySnapshotSaga(repo, downloader).Run(ctx, saga.ApplySnapshotInput{
				TaskId:   cmd.String("task"),
				RunId:    cmd.String("run"),
				Snapshot: snapshot,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Applied snapshot %s\n", output.TreeHash)
			if output.Detached {
				fmt.Println("Note: the repository is now in detached HEAD state.")
			}
			return nil
		},
	}
}
