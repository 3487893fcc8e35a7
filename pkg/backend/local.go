package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

// local implements Backend over a plain directory tree, laid out exactly
// as spec §6 describes: config at the root, keys/snapshots/index/locks as
// flat directories of hex-named files, packs sharded by the first hex byte
// of their id to keep any one directory from growing unwieldy.
type local struct {
	root string
	mu   sync.Mutex // guards lock file creation/removal
}

func newLocal(root string) (*local, error) {
	for _, dir := range []string{"keys", "snapshots", "packs", "index", "locks"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("backend: creating %s: %w", dir, err)
		}
	}
	return &local{root: root}, nil
}

func (l *local) String() string { return "file://" + l.root }
func (l *local) Close() error   { return nil }

func (l *local) path(kind ids.Kind, id ids.ID) (string, error) {
	switch kind {
	case ids.KindConfig:
		return filepath.Join(l.root, "config"), nil
	case ids.KindKey:
		return filepath.Join(l.root, "keys", id.String()), nil
	case ids.KindSnapshot:
		return filepath.Join(l.root, "snapshots", id.String()), nil
	case ids.KindIndex:
		return filepath.Join(l.root, "index", id.String()), nil
	case ids.KindLock:
		return filepath.Join(l.root, "locks", id.String()), nil
	case ids.KindPack:
		s := id.String()
		return filepath.Join(l.root, "packs", s[:2], s), nil
	default:
		return "", fmt.Errorf("backend: unsupported kind %v", kind)
	}
}

func (l *local) Put(_ context.Context, kind ids.Kind, id ids.ID, data []byte) error {
	dest, err := l.path(kind, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("backend: creating parent dir for %s: %w", dest, err)
	}
	if existing, err := os.ReadFile(dest); err == nil {
		if string(existing) == string(data) {
			return nil // idempotent re-put
		}
		return errs.Input(fmt.Sprintf("backend: %s %s already exists with different content", kind, id.Str()), nil)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return errs.BackendUnavailable("creating temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.BackendUnavailable("writing temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.BackendUnavailable("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.BackendUnavailable("closing temp file", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return errs.BackendUnavailable("renaming into place", err)
	}
	return nil
}

func (l *local) Get(_ context.Context, kind ids.Kind, id ids.ID, offset, length int64) ([]byte, error) {
	p, err := l.path(kind, id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Input(fmt.Sprintf("%s %s not found", kind, id.Str()), err)
		}
		return nil, errs.BackendUnavailable("opening object", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.BackendUnavailable("stating object", err)
	}
	if offset == 0 && length < 0 {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errs.BackendUnavailable("reading object", err)
		}
		return data, nil
	}
	return readRange(f, info.Size(), offset, length)
}

func (l *local) Stat(_ context.Context, kind ids.Kind, id ids.ID) (int64, error) {
	p, err := l.path(kind, id)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errs.Input(fmt.Sprintf("%s %s not found", kind, id.Str()), err)
		}
		return 0, errs.BackendUnavailable("stating object", err)
	}
	return info.Size(), nil
}

func (l *local) List(_ context.Context, kind ids.Kind) ([]ids.ID, error) {
	var dir string
	switch kind {
	case ids.KindKey:
		dir = filepath.Join(l.root, "keys")
	case ids.KindSnapshot:
		dir = filepath.Join(l.root, "snapshots")
	case ids.KindIndex:
		dir = filepath.Join(l.root, "index")
	case ids.KindLock:
		dir = filepath.Join(l.root, "locks")
	case ids.KindPack:
		return l.listPacks()
	default:
		return nil, fmt.Errorf("backend: unsupported kind %v for list", kind)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.BackendUnavailable("listing "+dir, err)
	}
	out := make([]ids.ID, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := ids.Parse(e.Name())
		if err != nil {
			continue // skip non-object files (e.g. stray temp files)
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out, nil
}

func (l *local) listPacks() ([]ids.ID, error) {
	root := filepath.Join(l.root, "packs")
	shards, err := os.ReadDir(root)
	if err != nil {
		return nil, errs.BackendUnavailable("listing packs", err)
	}
	var out []ids.ID
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, shard.Name()))
		if err != nil {
			return nil, errs.BackendUnavailable("listing pack shard "+shard.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			id, err := ids.Parse(e.Name())
			if err != nil {
				continue
			}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out, nil
}

func (l *local) Remove(_ context.Context, kind ids.Kind, id ids.ID) error {
	p, err := l.path(kind, id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errs.BackendUnavailable("removing object", err)
	}
	return nil
}

// lockRecord is the JSON body of a lock file (spec §5: "the lock stores the
// holder's identity and a timestamp, allowing stale-lock detection").
type lockRecord struct {
	Holder string    `json:"holder"`
	Time   time.Time `json:"time"`
}

func (l *local) AcquireLock(ctx context.Context, holder string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := ids.Hash([]byte("strata-repository-lock"))
	p, err := l.path(ids.KindLock, id)
	if err != nil {
		return Lock{}, err
	}

	if existing, err := os.ReadFile(p); err == nil {
		var rec lockRecord
		if jsonErr := decodeLockRecord(existing, &rec); jsonErr == nil {
			if time.Since(rec.Time) < ttl {
				return Lock{}, errs.RepositoryLocked(
					fmt.Sprintf("held by %s since %s", rec.Holder, rec.Time.Format(time.RFC3339)), nil)
			}
		}
		// stale or unparseable: fall through and overwrite
	}

	rec := lockRecord{Holder: holder, Time: time.Now().UTC()}
	data, err := encodeLockRecord(rec)
	if err != nil {
		return Lock{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Lock{}, errs.BackendUnavailable("creating locks dir", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return Lock{}, errs.BackendUnavailable("writing lock file", err)
	}
	return Lock{ID: id, Holder: holder, Acquired: rec.Time}, nil
}

func (l *local) ReleaseLock(_ context.Context, lock Lock) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := l.path(ids.KindLock, lock.ID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errs.BackendUnavailable("releasing lock", err)
	}
	return nil
}
