package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage repository passwords",
}

var keyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new password that can unlock this repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		newPassword, err := promptPassword()
		if err != nil {
			return err
		}
		keyID, err := repo.AddKey(cmd.Context(), newPassword)
		if err != nil {
			return err
		}
		cmd.Printf("added key %s\n", keyID.Str())
		return nil
	},
}

var keyRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a password from this repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, err := ids.Parse(args[0])
		if err != nil {
			return errs.Input("invalid key id "+args[0], err)
		}

		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.RemoveKey(cmd.Context(), keyID); err != nil {
			return err
		}
		cmd.Printf("removed key %s\n", keyID.Str())
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List key ids able to unlock this repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		keyIDs, err := repo.ListKeys(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range keyIDs {
			cmd.Println(id.Str())
		}
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keyAddCmd)
	keyCmd.AddCommand(keyRemoveCmd)
	keyCmd.AddCommand(keyListCmd)
}
