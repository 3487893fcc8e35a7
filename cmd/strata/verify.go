package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every reachable object is present and undamaged",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		readData, _ := cmd.Flags().GetBool("read-data")
		stats, err := verify.Run(cmd.Context(), repo, verify.Options{ReadData: readData})
		if err != nil {
			return err
		}

		cmd.Printf("verified %d snapshots, %d trees, %d blobs\n",
			stats.SnapshotsChecked, stats.TreesChecked, stats.BlobsChecked)
		return nil
	},
}

func init() {
	verifyCmd.Flags().Bool("read-data", false, "Also decrypt and hash-check every data blob, not just confirm its presence in the index")
}
