package main

import (
	"sort"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		ids, err := repo.ListSnapshotIDs(cmd.Context())
		if err != nil {
			return err
		}

		type entry struct {
			idStr string
			time  string
			hosts string
			paths []string
			tags  []string
		}
		var entries []entry
		for _, id := range ids {
			snap, err := repo.LoadSnapshot(cmd.Context(), id)
			if err != nil {
				continue
			}
			entries = append(entries, entry{
				idStr: id.Str(),
				time:  snap.Time.Format("2006-01-02 15:04:05"),
				hosts: snap.Hostname,
				paths: snap.Paths,
				tags:  snap.Tags,
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].time > entries[j].time })

		for _, e := range entries {
			cmd.Printf("%-8s  %-19s  %-20s  %v  %v\n", e.idStr, e.time, e.hosts, e.paths, e.tags)
		}
		return nil
	},
}
