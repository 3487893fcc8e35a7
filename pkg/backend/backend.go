// Package backend defines the narrow object-storage contract the
// repository core relies on (spec §4.1) and two implementations: a local
// filesystem directory tree and an SFTP server. Both are written in the
// teacher's style of small, mutex-guarded structs with explicit
// error-wrapped methods (compare pkg/storage/boltdb.go's BoltStore).
package backend

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/strata/pkg/ids"
)

// Backend is the flat, kind-partitioned object store the repository core
// consumes. Every mutating method must retry safely: calling Put twice with
// the same (kind, id, data) is a no-op success, never an error.
type Backend interface {
	// Put atomically creates an object. Re-putting identical bytes
	// succeeds; if an object with different bytes already exists, Put
	// fails with an errs.KindInput error and leaves it unchanged.
	Put(ctx context.Context, kind ids.Kind, id ids.ID, data []byte) error

	// Get reads an object, or a byte range of one when length >= 0.
	// length < 0 means "to end of object".
	Get(ctx context.Context, kind ids.Kind, id ids.ID, offset, length int64) ([]byte, error)

	// List enumerates every object id of the given kind.
	List(ctx context.Context, kind ids.Kind) ([]ids.ID, error)

	// Stat returns an object's total size, needed to locate a pack's
	// footer (a fixed-size region at the end) before any manifest has
	// been read.
	Stat(ctx context.Context, kind ids.Kind, id ids.ID) (int64, error)

	// Remove deletes an object. Removing a nonexistent object is not an
	// error (idempotent, matching the retry-safety of Put).
	Remove(ctx context.Context, kind ids.Kind, id ids.ID) error

	// AcquireLock takes the repository's single advisory lock, or returns
	// errs.RepositoryLocked if another holder's lock has not gone stale.
	AcquireLock(ctx context.Context, holder string, ttl time.Duration) (Lock, error)

	// ReleaseLock releases a lock previously returned by AcquireLock.
	ReleaseLock(ctx context.Context, lock Lock) error

	// String describes the backend for logging (e.g. its URL).
	String() string

	// Close releases any held connections (SFTP sessions, etc).
	Close() error
}

// Lock identifies one held advisory lock.
type Lock struct {
	ID        ids.ID
	Holder    string
	Acquired  time.Time
}

// Open constructs a Backend from a repository URL: file://PATH, bare PATH,
// or sftp://[user@]host[:port]/PATH (spec §6).
func Open(ctx context.Context, rawURL string) (Backend, error) {
	if strings.HasPrefix(rawURL, "sftp://") {
		return openSFTP(ctx, rawURL)
	}
	path := strings.TrimPrefix(rawURL, "file://")
	return newLocal(path)
}

func parseSFTPURL(raw string) (host, user, path string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("backend: parsing sftp url %q: %w", raw, err)
	}
	if u.User != nil {
		user = u.User.Username()
	}
	host = u.Host
	path = u.Path
	return host, user, path, nil
}

// readRange is a small helper shared by backends that must honour a ranged
// Get by slicing an io.ReaderAt.
func readRange(r io.ReaderAt, size, offset, length int64) ([]byte, error) {
	if offset < 0 || offset > size {
		return nil, fmt.Errorf("backend: offset %d out of range (size %d)", offset, size)
	}
	if length < 0 {
		length = size - offset
	}
	if offset+length > size {
		return nil, fmt.Errorf("backend: range [%d,%d) exceeds size %d", offset, offset+length, size)
	}
	buf := make([]byte, length)
	if _, err := r.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("backend: ranged read: %w", err)
	}
	return buf, nil
}
