package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/gc"
	"github.com/cuemby/strata/pkg/ids"
)

var forgetCmd = &cobra.Command{
	Use:   "forget [ID...]",
	Short: "Remove snapshots by id or retention policy",
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

		policy := gc.Policy{}
		policy.KeepLast, _ = cmd.Flags().GetInt("keep-last")
		policy.KeepHourly, _ = cmd.Flags().GetInt("keep-hourly")
		policy.KeepDaily, _ = cmd.Flags().GetInt("keep-daily")
		policy.KeepWeekly, _ = cmd.Flags().GetInt("keep-weekly")
		policy.KeepMonthly, _ = cmd.Flags().GetInt("keep-monthly")
		policy.KeepYearly, _ = cmd.Flags().GetInt("keep-yearly")
		policy.KeepTags, _ = cmd.Flags().GetStringSlice("keep-tag")
		runGC, _ := cmd.Flags().GetBool("gc")

		var forgotten []ids.ID
		if len(args) > 0 {
			targets := make([]ids.ID, 0, len(args))
			for _, arg := range args {
				id, err := ids.Parse(arg)
				if err != nil {
					return errs.Input("invalid snapshot id "+arg, err)
				}
				targets = append(targets, id)
			}
			if err := gc.ForgetIDs(cmd.Context(), repo, targets); err != nil {
				return err
			}
			forgotten = targets
		} else {
			if policy.Empty() {
				return errs.Input("forget requires snapshot ids or at least one --keep-* flag", nil)
			}
			forgotten, err = gc.ForgetByPolicy(cmd.Context(), repo, policy, time.Now())
			if err != nil {
				return err
			}
		}

		cmd.Printf("forgot %d snapshot(s)\n", len(forgotten))

		if runGC {
			stats, err := gc.Run(cmd.Context(), repo)
			if err != nil {
				return err
			}
			cmd.Printf("gc: %d packs deleted, %d repacked, %d bytes reclaimed\n",
				stats.PacksDeleted, stats.PacksRepacked, stats.BytesReclaimed)
		}
		return nil
	},
}

func init() {
	forgetCmd.Flags().Int("keep-last", 0, "Keep the N most recent snapshots")
	forgetCmd.Flags().Int("keep-hourly", 0, "Keep the newest snapshot in each of the last N hours")
	forgetCmd.Flags().Int("keep-daily", 0, "Keep the newest snapshot in each of the last N days")
	forgetCmd.Flags().Int("keep-weekly", 0, "Keep the newest snapshot in each of the last N weeks")
	forgetCmd.Flags().Int("keep-monthly", 0, "Keep the newest snapshot in each of the last N months")
	forgetCmd.Flags().Int("keep-yearly", 0, "Keep the newest snapshot in each of the last N years")
	forgetCmd.Flags().StringSlice("keep-tag", nil, "Always keep snapshots carrying this tag (repeatable)")
	forgetCmd.Flags().Bool("gc", false, "Run garbage collection immediately after forgetting")
}
