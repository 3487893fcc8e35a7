package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/archiver"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot PATH...",
	Short: "Archive one or more paths into a new snapshot",
	Args:  cobra.MinimumNArgs(1),
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

		includes, _ := cmd.Flags().GetStringSlice("include")
		excludes, _ := cmd.Flags().GetStringSlice("exclude")
		parentRef, _ := cmd.Flags().GetString("parent")
		fullScan, _ := cmd.Flags().GetBool("full-scan")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		hostname, _ := cmd.Flags().GetString("hostname")
		if hostname == "" {
			hostname, _ = os.Hostname()
		}

		opts := archiver.Options{
			Paths:       args,
			Includes:    includes,
			Excludes:    excludes,
			FullScan:    fullScan,
			DryRun:      dryRun,
			Hostname:    hostname,
			Description: description,
			Tags:        tags,
		}
		if parentRef != "" {
			parentID, _, err := snapshot.Resolve(cmd.Context(), repo, parentRef)
			if err != nil {
				return err
			}
			opts.Parent = parentID
		}

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			startMetricsServer(addr)
		}

		a := archiver.New(repo, opts)
		snapID, stats, err := a.Run(cmd.Context())
		if err != nil {
			return err
		}

		if dryRun {
			cmd.Printf("dry run: would scan %d files, chunk %d bytes\n", stats.FilesScanned, stats.BytesChunked)
			return nil
		}

		cmd.Printf("snapshot %s created: %d files scanned, %d changed, %d bytes chunked, %d skipped\n",
			snapID.Str(), stats.FilesScanned, stats.FilesChanged, stats.BytesChunked, len(stats.Skipped))
		for _, s := range stats.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", s.Path, s.Err)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringSlice("include", nil, "Only archive paths matching one of these glob patterns")
	snapshotCmd.Flags().StringSlice("exclude", nil, "Skip paths matching one of these glob patterns")
	snapshotCmd.Flags().String("parent", "", "Parent snapshot id, prefix, or \"latest\" to diff against")
	snapshotCmd.Flags().Bool("full-scan", false, "Re-chunk every file instead of trusting parent-snapshot metadata")
	snapshotCmd.Flags().Bool("dry-run", false, "Scan and chunk without writing a snapshot")
	snapshotCmd.Flags().String("description", "", "Free-text description stored with the snapshot")
	snapshotCmd.Flags().StringSlice("tag", nil, "Tag to attach to the snapshot (repeatable)")
	snapshotCmd.Flags().String("hostname", "", "Hostname recorded in the snapshot (defaults to os.Hostname)")
	snapshotCmd.Flags().String("metrics-addr", "", "If set, serve /metrics, /health, /ready, /live on this address while archiving")
}

// startMetricsServer exposes the Prometheus registry and health endpoints
// for the duration of one long-running archive (snapshot) invocation.
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	metrics.RegisterComponent("repository", true, "open")
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
