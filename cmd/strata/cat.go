package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

var catCmd = &cobra.Command{
	Use:   "cat KIND ID",
	Short: "Print a repository object's decrypted bytes to stdout",
	Long:  "KIND is one of: data, tree, snapshot, index, config, key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id, err := ids.Parse(args[1])
		if err != nil {
			return errs.Input("invalid id "+args[1], err)
		}

		repo, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		var data []byte
		switch kind {
		case ids.KindConfig, ids.KindKey:
			// stored as plaintext JSON, readable before the master key unwraps
			data, err = repo.Backend().Get(cmd.Context(), kind, id, 0, -1)
		case ids.KindSnapshot, ids.KindIndex:
			var sealed []byte
			sealed, err = repo.Backend().Get(cmd.Context(), kind, id, 0, -1)
			if err == nil {
				data, err = repo.Sealer().Open(kind, id, sealed)
			}
		default:
			data, err = repo.LoadBlob(cmd.Context(), kind, id)
		}
		if err != nil {
			return errs.Input("object not found", err)
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}

func parseKind(s string) (ids.Kind, error) {
	switch s {
	case "data":
		return ids.KindData, nil
	case "tree":
		return ids.KindTree, nil
	case "snapshot":
		return ids.KindSnapshot, nil
	case "index":
		return ids.KindIndex, nil
	case "config":
		return ids.KindConfig, nil
	case "key":
		return ids.KindKey, nil
	default:
		return 0, errs.Input("unknown object kind "+s, nil)
	}
}
