package main

import (
	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Remove stale repository locks",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.RemoveStaleLocks(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("removed stale locks")
		return nil
	},
}
