// Package cliconfig loads CLI-level defaults from
// ~/.config/strata/config.yaml, the way the teacher layers persistent
// flags plus cobra.OnInitialize: values here are defaults a command-line
// flag always overrides, never state the repository itself depends on
// (that's the immutable repository Config object in pkg/repository).
package cliconfig

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File mirrors the on-disk YAML shape of ~/.config/strata/config.yaml.
type File struct {
	Repo         string `yaml:"repo"`
	PasswordFile string `yaml:"password_file"`
	LogLevel     string `yaml:"log_level"`
	LogJSON      bool   `yaml:"log_json"`
}

// DefaultPath returns ~/.config/strata/config.yaml, or an error if the
// user's home directory can't be determined.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "strata", "config.yaml"), nil
}

// Load reads path and parses it as YAML. A missing file is not an error —
// it returns a zero File, letting callers fall back to flag defaults.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, err
	}
	return f, nil
}
