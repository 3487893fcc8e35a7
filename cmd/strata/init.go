package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/repository"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := repoURL(cmd)
		if err != nil {
			return err
		}
		password, err := resolvePassword(cmd)
		if err != nil {
			return err
		}
		repo, err := repository.Init(cmd.Context(), url, password)
		if err != nil {
			return err
		}
		defer repo.Close()

		cmd.Printf("repository %s initialized\n", repo.Config().RepositoryID)
		return nil
	},
}
