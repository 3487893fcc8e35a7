package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsZeroValue(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, File{}, f)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "repo: sftp://backup.example.com/strata\npassword_file: /etc/strata/password\nlog_level: debug\nlog_json: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, File{
		Repo:         "sftp://backup.example.com/strata",
		PasswordFile: "/etc/strata/password",
		LogLevel:     "debug",
		LogJSON:      true,
	}, f)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repo: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDefaultPath_UnderHomeConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "strata", "config.yaml"), path)
}
