package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/restorer"
)

var restoreCmd = &cobra.Command{
	Use:   "restore ID TARGET",
	Short: "Restore a snapshot into a target directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, target := args[0], args[1]

		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		includes, _ := cmd.Flags().GetStringSlice("include")
		excludes, _ := cmd.Flags().GetStringSlice("exclude")

		r := restorer.New(repo, restorer.Options{Includes: includes, Excludes: excludes})
		snapID, stats, err := r.Restore(cmd.Context(), ref, target)
		if err != nil {
			return err
		}

		cmd.Printf("restored snapshot %s: %d files, %d dirs, %d bytes written\n",
			snapID.Str(), stats.FilesRestored, stats.DirsRestored, stats.BytesWritten)
		for _, s := range stats.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", s.Path, s.Err)
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringSlice("include", nil, "Only restore paths matching one of these glob patterns")
	restoreCmd.Flags().StringSlice("exclude", nil, "Skip paths matching one of these glob patterns")
}
