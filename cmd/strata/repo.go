package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/repository"
)

// resolvePassword applies the precedence --key (inline) > --password-file >
// interactive prompt, in that order.
func resolvePassword(cmd *cobra.Command) ([]byte, error) {
	if key, _ := cmd.Flags().GetString("key"); key != "" {
		return []byte(key), nil
	}

	if path, _ := cmd.Flags().GetString("password-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Input(fmt.Sprintf("reading password file %q", path), err)
		}
		return []byte(strings.TrimRight(string(data), "\r\n")), nil
	}

	return promptPassword()
}

func promptPassword() ([]byte, error) {
	fmt.Fprint(os.Stderr, "repository password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, errs.Input("reading password from terminal", err)
		}
		return password, nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, errs.Input("reading password from stdin", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

func repoURL(cmd *cobra.Command) (string, error) {
	url, _ := cmd.Flags().GetString("repo")
	if url == "" {
		return "", errs.Input("--repo is required (or set repo: in ~/.config/strata/config.yaml)", nil)
	}
	return url, nil
}

// openRepo opens an existing repository using the --repo/--password-file/
// --key flags, without a local blob-location cache.
func openRepo(ctx context.Context, cmd *cobra.Command) (*repository.Repository, error) {
	url, err := repoURL(cmd)
	if err != nil {
		return nil, err
	}
	password, err := resolvePassword(cmd)
	if err != nil {
		return nil, err
	}
	return repository.Open(ctx, url, password, "")
}

// exitCodeFor maps the error taxonomy to CLI exit codes: 0 on success, 2
// for any errs.KindInput error (which covers init's "already exists" and
// cat's "not found"), 1 for everything else that fails.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errs.Is(err, errs.KindInput) {
		return 2
	}
	return 1
}
