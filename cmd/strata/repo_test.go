package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/cuemby/strata/pkg/errs"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("key", "", "")
	cmd.Flags().String("password-file", "", "")
	cmd.Flags().String("repo", "", "")
	return cmd
}

func TestResolvePassword_KeyFlagWins(t *testing.T) {
	cmd := newTestCmd()
	if err := cmd.Flags().Set("key", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("password-file", "/does/not/exist"); err != nil {
		t.Fatal(err)
	}

	password, err := resolvePassword(cmd)
	if err != nil {
		t.Fatalf("resolvePassword() error = %v", err)
	}
	if string(password) != "hunter2" {
		t.Fatalf("resolvePassword() = %q, want %q", password, "hunter2")
	}
}

func TestResolvePassword_ReadsPasswordFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pw.txt")
	if err := os.WriteFile(path, []byte("correct-horse-battery-staple\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newTestCmd()
	if err := cmd.Flags().Set("password-file", path); err != nil {
		t.Fatal(err)
	}

	password, err := resolvePassword(cmd)
	if err != nil {
		t.Fatalf("resolvePassword() error = %v", err)
	}
	if string(password) != "correct-horse-battery-staple" {
		t.Fatalf("resolvePassword() = %q, want trimmed trailing newline", password)
	}
}

func TestResolvePassword_MissingPasswordFileIsInputError(t *testing.T) {
	cmd := newTestCmd()
	if err := cmd.Flags().Set("password-file", "/does/not/exist"); err != nil {
		t.Fatal(err)
	}

	_, err := resolvePassword(cmd)
	if err == nil {
		t.Fatal("resolvePassword() expected an error for a missing password file")
	}
	if !errs.Is(err, errs.KindInput) {
		t.Fatalf("resolvePassword() error = %v, want a KindInput error", err)
	}
}

func TestRepoURL_RequiresFlag(t *testing.T) {
	cmd := newTestCmd()
	_, err := repoURL(cmd)
	if !errs.Is(err, errs.KindInput) {
		t.Fatalf("repoURL() error = %v, want a KindInput error", err)
	}
}

func TestRepoURL_ReturnsFlagValue(t *testing.T) {
	cmd := newTestCmd()
	if err := cmd.Flags().Set("repo", "file:///tmp/repo"); err != nil {
		t.Fatal(err)
	}
	url, err := repoURL(cmd)
	if err != nil {
		t.Fatalf("repoURL() error = %v", err)
	}
	if url != "file:///tmp/repo" {
		t.Fatalf("repoURL() = %q, want %q", url, "file:///tmp/repo")
	}
}

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"input error", errs.Input("bad flag", nil), 2},
		{"corrupt repository", errs.CorruptRepository("bad hash", nil), 1},
		{"plain error", errors.New("boom"), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := exitCodeFor(c.err); got != c.want {
				t.Fatalf("exitCodeFor(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}
