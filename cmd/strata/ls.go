package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/repository"
	"github.com/cuemby/strata/pkg/snapshot"
	"github.com/cuemby/strata/pkg/tree"
)

var lsCmd = &cobra.Command{
	Use:   "ls ID [PATH]",
	Short: "List a snapshot's contents",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		_, snap, err := snapshot.Resolve(cmd.Context(), repo, args[0])
		if err != nil {
			return err
		}

		subPath := ""
		if len(args) == 2 {
			subPath = strings.Trim(args[1], "/")
		}

		t, err := descendTree(cmd.Context(), repo, snap.Tree, subPath)
		if err != nil {
			return err
		}

		for _, e := range t.Entries {
			cmd.Printf("%-8s  %10d  %s\n", e.Kind, e.Size, e.Name)
		}
		return nil
	},
}

func descendTree(ctx context.Context, repo *repository.Repository, rootID ids.ID, path string) (tree.Tree, error) {
	data, err := repo.LoadBlob(ctx, ids.KindTree, rootID)
	if err != nil {
		return tree.Tree{}, err
	}
	t, err := tree.Decode(data)
	if err != nil {
		return tree.Tree{}, err
	}
	if path == "" {
		return t, nil
	}

	parts := strings.Split(path, "/")
	for _, part := range parts {
		var next *tree.Entry
		for i := range t.Entries {
			if t.Entries[i].Name == part {
				next = &t.Entries[i]
				break
			}
		}
		if next == nil || next.Kind != tree.KindDir {
			return tree.Tree{}, errs.Input("path "+path+" not found in snapshot", nil)
		}
		data, err := repo.LoadBlob(ctx, ids.KindTree, next.Subtree)
		if err != nil {
			return tree.Tree{}, err
		}
		t, err = tree.Decode(data)
		if err != nil {
			return tree.Tree{}, err
		}
	}
	return t, nil
}
