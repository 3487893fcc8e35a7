// Command strata is a de-duplicating, incremental, encrypted backup tool.
// It is a thin cobra CLI over the pkg/repository, pkg/archiver,
// pkg/restorer, and pkg/gc libraries; the subcommands here mostly parse
// flags, open a repository, and call into those packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/cliconfig"
	"github.com/cuemby/strata/pkg/log"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var fileConfig cliconfig.File

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata - a de-duplicating, incremental, encrypted backup tool",
	Long: `strata stores snapshots of directory trees in a content-addressed,
encrypted repository. Identical file content is stored once regardless of
how many snapshots or files reference it; each snapshot is a complete,
independently restorable view despite sharing storage with every other
snapshot in the repository.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"strata version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("repo", "", "Repository URL (file://PATH, PATH, or sftp://[user@]host[:port]/PATH)")
	rootCmd.PersistentFlags().String("password-file", "", "Path to a file containing the repository password")
	rootCmd.PersistentFlags().String("key", "", "Repository password, given inline (less secure than --password-file; prompts if neither is set)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-error output")
	rootCmd.PersistentFlags().String("verbosity", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(unlockCmd)
}

// initConfig loads ~/.config/strata/config.yaml defaults. Flags explicitly
// set on the command line always win; this only fills in values the user
// never typed.
func initConfig() {
	path, err := cliconfig.DefaultPath()
	if err != nil {
		return
	}
	fileConfig, _ = cliconfig.Load(path)

	if !rootCmd.PersistentFlags().Changed("repo") && fileConfig.Repo != "" {
		_ = rootCmd.PersistentFlags().Set("repo", fileConfig.Repo)
	}
	if !rootCmd.PersistentFlags().Changed("password-file") && fileConfig.PasswordFile != "" {
		_ = rootCmd.PersistentFlags().Set("password-file", fileConfig.PasswordFile)
	}
	if !rootCmd.PersistentFlags().Changed("verbosity") && fileConfig.LogLevel != "" {
		_ = rootCmd.PersistentFlags().Set("verbosity", fileConfig.LogLevel)
	}
	if !rootCmd.PersistentFlags().Changed("log-json") && fileConfig.LogJSON {
		_ = rootCmd.PersistentFlags().Set("log-json", "true")
	}
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("verbosity")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	quiet, _ := rootCmd.PersistentFlags().GetBool("quiet")
	if quiet {
		level = "error"
	}

	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOutput,
	})
}
