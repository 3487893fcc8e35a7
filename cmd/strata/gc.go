package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/gc"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reclaim storage held by unreferenced data",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.Lock(cmd.Context()); err != nil {
			return err
		}
		defer repo.Unlock(cmd.Context())

		stats, err := gc.Run(cmd.Context(), repo)
		if err != nil {
			return err
		}

		cmd.Printf("examined %d packs: %d kept, %d repacked, %d deleted, %d bytes reclaimed\n",
			stats.PacksExamined, stats.PacksKept, stats.PacksRepacked, stats.PacksDeleted, stats.BytesReclaimed)
		return nil
	},
}
