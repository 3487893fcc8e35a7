package restorer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/tree"
)

// restoreEntry materialises one tree entry at targetDir/e.Name, recursing
// into subtrees for directories. relPath is the entry's path within the
// snapshot, used both for include/exclude matching and as the hardlink
// table key.
func (r *Restorer) restoreEntry(ctx context.Context, e tree.Entry, targetDir, relPath string) error {
	if !r.included(relPath) {
		return nil
	}

	dest := filepath.Join(targetDir, e.Name)

	switch e.Kind {
	case tree.KindDir:
		return r.restoreDir(ctx, e, dest, relPath)
	case tree.KindFile:
		return r.restoreFile(ctx, e, dest, relPath)
	case tree.KindSymlink:
		return r.restoreSymlink(e, dest)
	case tree.KindHardlink:
		return r.restoreHardlink(e, dest)
	case tree.KindDevice, tree.KindFifo:
		return r.restoreSpecial(e, dest)
	default:
		return errs.Input(fmt.Sprintf("unknown entry kind %q at %s", e.Kind, relPath), nil)
	}
}

func (r *Restorer) restoreDir(ctx context.Context, e tree.Entry, dest, relPath string) error {
	if err := os.MkdirAll(dest, os.FileMode(e.Mode&0o7777)|0o700); err != nil {
		return errs.Input(fmt.Sprintf("mkdir %s", dest), err)
	}

	var children tree.Tree
	if !e.Subtree.IsNil() {
		data, err := r.repo.LoadBlob(ctx, ids.KindTree, e.Subtree)
		if err != nil {
			return err
		}
		children, err = tree.Decode(data)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children.Entries {
		child := child
		if child.Kind == tree.KindHardlink {
			continue
		}
		g.Go(func() error {
			childRelPath := filepath.Join(relPath, child.Name)
			if err := r.restoreEntry(gctx, child, dest, childRelPath); err != nil {
				r.skip(filepath.Join(dest, child.Name), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Hardlink entries are restored after their siblings, so a referent in
	// the same directory is already on disk; a referent elsewhere that has
	// not been restored yet is not waited for.
	for _, child := range children.Entries {
		if child.Kind != tree.KindHardlink {
			continue
		}
		if err := r.restoreEntry(ctx, child, dest, filepath.Join(relPath, child.Name)); err != nil {
			r.skip(filepath.Join(dest, child.Name), err)
		}
	}

	r.countDir()
	applyMetadata(dest, e)
	return nil
}

func (r *Restorer) restoreFile(ctx context.Context, e tree.Entry, dest, relPath string) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sem.Release(1)

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(e.Mode&0o7777)|0o600)
	if err != nil {
		return errs.Input(fmt.Sprintf("create %s", dest), err)
	}
	defer f.Close()

	var written uint64
	prefetch := newPrefetcher(ctx, r.repo, e.Chunks, r.sem)
	for {
		data, ok, err := prefetch.next()
		if err != nil {
			return fmt.Errorf("restorer: fetching chunk for %s: %w", dest, err)
		}
		if !ok {
			break
		}
		n, err := f.Write(data)
		if err != nil {
			return errs.Input(fmt.Sprintf("writing %s", dest), err)
		}
		written += uint64(n)
	}

	r.restoredMu.Lock()
	r.restored[relPath] = dest
	r.restoredMu.Unlock()
	r.countFile(written)

	applyMetadata(dest, e)
	return nil
}

func (r *Restorer) restoreSymlink(e tree.Entry, dest string) error {
	_ = os.Remove(dest)
	if err := os.Symlink(e.Target, dest); err != nil {
		return errs.Input(fmt.Sprintf("symlink %s", dest), err)
	}
	applySymlinkMetadata(dest, e)
	r.countFile(0)
	return nil
}

func (r *Restorer) restoreHardlink(e tree.Entry, dest string) error {
	r.restoredMu.Lock()
	source, ok := r.restored[e.Target]
	r.restoredMu.Unlock()

	_ = os.Remove(dest)
	if ok {
		if err := os.Link(source, dest); err == nil {
			r.countFile(0)
			return nil
		}
		// fall through to copy on cross-device or filesystem refusal
	}

	src, err := os.Open(source)
	if err != nil {
		return errs.Input(fmt.Sprintf("hardlink source %s for %s unavailable", e.Target, dest), err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(e.Mode&0o7777)|0o600)
	if err != nil {
		return errs.Input(fmt.Sprintf("create %s", dest), err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errs.Input(fmt.Sprintf("copying hardlink content to %s", dest), err)
	}
	r.countFile(0)
	return nil
}

func (r *Restorer) restoreSpecial(e tree.Entry, dest string) error {
	// Device and FIFO nodes require mknod, which needs root on most
	// systems; strata restores what it can without it and reports the
	// rest as skipped rather than failing the whole restore.
	return errs.Input(fmt.Sprintf("device/fifo restore requires privileges, skipping %s", dest), nil)
}

func applyMetadata(path string, e tree.Entry) {
	_ = os.Chmod(path, os.FileMode(e.Mode&0o7777))
	_ = os.Chown(path, int(e.UID), int(e.GID)) // best-effort; fails silently without privileges
	_ = os.Chtimes(path, e.Mtime, e.Mtime)
}

func applySymlinkMetadata(path string, e tree.Entry) {
	_ = os.Lchown(path, int(e.UID), int(e.GID))
}

func (r *Restorer) included(relPath string) bool {
	for _, pattern := range r.opts.Excludes {
		if matches(pattern, relPath) {
			return false
		}
	}
	if len(r.opts.Includes) == 0 {
		return true
	}
	for _, pattern := range r.opts.Includes {
		if matches(pattern, relPath) {
			return true
		}
	}
	return false
}

func matches(pattern, relPath string) bool {
	if ok, _ := filepath.Match(pattern, relPath); ok {
		return true
	}
	if ok, _ := filepath.Match(pattern, filepath.Base(relPath)); ok {
		return true
	}
	return false
}
