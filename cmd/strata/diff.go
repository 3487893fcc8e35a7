package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/diff"
	"github.com/cuemby/strata/pkg/snapshot"
)

var diffCmd = &cobra.Command{
	Use:   "diff ID1 ID2",
	Short: "Show paths that changed between two snapshots",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		idA, _, err := snapshot.Resolve(cmd.Context(), repo, args[0])
		if err != nil {
			return err
		}
		idB, _, err := snapshot.Resolve(cmd.Context(), repo, args[1])
		if err != nil {
			return err
		}

		changes, stats, err := diff.Run(cmd.Context(), repo, idA, idB)
		if err != nil {
			return err
		}

		for _, c := range changes {
			prefix := map[diff.ChangeKind]string{diff.Added: "+", diff.Removed: "-", diff.Modified: "~"}[c.Kind]
			cmd.Printf("%s %s\n", prefix, c.Path)
		}
		cmd.Printf("%d bytes added, %d bytes removed\n", stats.BytesAdded, stats.BytesRemoved)
		return nil
	},
}
