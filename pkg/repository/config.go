package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/strata/pkg/errs"
)

// FormatVersion is the current on-disk repository format.
const FormatVersion = 1

// DefaultRepackThreshold is the live-byte fraction below which GC repacks
// a pack instead of keeping it as-is (spec §4.9: "e.g. 60%").
const DefaultRepackThreshold = 0.60

// Config is the repository-global config object (spec §3): immutable
// parameters written once at init and read on every open.
type Config struct {
	FormatVersion   int       `json:"format_version"`
	RepositoryID    string    `json:"repository_id"`
	ChunkerSeed     uint64    `json:"chunker_seed"`
	RepackThreshold float64   `json:"repack_threshold"`
	CreatedAt       time.Time `json:"created_at"`
}

func encodeConfig(c Config) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("repository: encoding config: %w", err)
	}
	return data, nil
}

func decodeConfig(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, errs.CorruptRepository("decoding config object", err)
	}
	if c.FormatVersion != FormatVersion {
		return Config{}, errs.CorruptRepository(
			fmt.Sprintf("unsupported repository format version %d", c.FormatVersion), nil)
	}
	return c, nil
}
