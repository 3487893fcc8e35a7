package archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cuemby/strata/pkg/chunker"
	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/tree"

	"golang.org/x/sync/errgroup"
)

// errExcluded marks a path skipped by include/exclude rules rather than a
// real failure, so callers can drop it silently instead of counting it as
// a reported skip.
var errExcluded = errors.New("excluded by filter")

// archivePath dispatches on the filesystem entity at fsPath and returns
// the tree.Entry describing it. relPath is the entry's path within the
// snapshot, used for include/exclude matching and as the hardlink table
// key; the entry is filed in its parent tree under fsPath's base name.
func (a *Archiver) archivePath(ctx context.Context, fsPath, relPath string, parentEntry tree.Entry) (tree.Entry, error) {
	if !a.included(relPath) {
		return tree.Entry{}, errExcluded
	}

	info, err := os.Lstat(fsPath)
	if err != nil {
		return tree.Entry{}, errs.Input(fmt.Sprintf("stat %s", fsPath), err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return a.archiveSymlink(fsPath, info)
	case info.IsDir():
		return a.archiveDir(ctx, fsPath, relPath, info, parentEntry)
	case info.Mode().IsRegular():
		return a.archiveFile(ctx, fsPath, relPath, info, parentEntry)
	default:
		return a.archiveSpecial(fsPath, info)
	}
}

func (a *Archiver) archiveSymlink(fsPath string, info os.FileInfo) (tree.Entry, error) {
	target, err := os.Readlink(fsPath)
	if err != nil {
		return tree.Entry{}, errs.Input(fmt.Sprintf("readlink %s", fsPath), err)
	}
	a.countScanned()
	return entryFromInfo(info, tree.KindSymlink, target), nil
}

func (a *Archiver) archiveDir(ctx context.Context, fsPath, relPath string, info os.FileInfo, parentEntry tree.Entry) (tree.Entry, error) {
	a.countScanned()

	children, err := os.ReadDir(fsPath)
	if err != nil {
		return tree.Entry{}, errs.Input(fmt.Sprintf("readdir %s", fsPath), err)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })

	var parentChildTree tree.Tree
	if !parentEntry.Subtree.IsNil() {
		data, err := a.repo.LoadBlob(ctx, ids.KindTree, parentEntry.Subtree)
		if err == nil {
			parentChildTree, _ = tree.Decode(data)
		}
	}

	entries := make([]tree.Entry, 0, len(children))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children {
		child := child
		childFsPath := filepath.Join(fsPath, child.Name())
		childRelPath := filepath.Join(relPath, child.Name())
		childParentEntry, _ := parentChildTree.Find(child.Name())
		g.Go(func() error {
			entry, err := a.archivePath(gctx, childFsPath, childRelPath, childParentEntry)
			if errors.Is(err, errExcluded) {
				return nil
			}
			if err != nil {
				a.skip(childFsPath, err)
				return nil
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tree.Entry{}, err
	}

	if a.opts.DryRun {
		return entryFromInfo(info, tree.KindDir, ""), nil
	}

	t := tree.New(entries)
	data, err := tree.Encode(t)
	if err != nil {
		return tree.Entry{}, err
	}
	subtreeID, err := a.repo.StoreBlob(ctx, ids.KindTree, data)
	if err != nil {
		return tree.Entry{}, err
	}

	out := entryFromInfo(info, tree.KindDir, "")
	out.Subtree = subtreeID
	return out, nil
}

func (a *Archiver) archiveFile(ctx context.Context, fsPath, relPath string, info os.FileInfo, parentEntry tree.Entry) (tree.Entry, error) {
	a.countScanned()

	if dev, inode, ok := fileIdentity(info); ok {
		if firstPath, seen := a.hardlinks.SeenOrRecord(dev, inode, relPath); seen {
			entry := entryFromInfo(info, tree.KindHardlink, firstPath)
			return entry, nil
		}
	}

	if !a.opts.FullScan && sameAsParent(info, parentEntry) {
		a.countUnchanged()
		entry := parentEntry
		entry.Name = filepath.Base(fsPath)
		return entry, nil
	}
	a.countChanged()

	f, err := os.Open(fsPath)
	if err != nil {
		return tree.Entry{}, errs.Input(fmt.Sprintf("open %s", fsPath), err)
	}
	defer f.Close()

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return tree.Entry{}, err
	}
	defer a.sem.Release(1)

	seed := a.repo.Config().ChunkerSeed
	ch := chunker.NewSeeded(f, seed)

	var chunkIDs []ids.ID
	var total uint64
	for {
		c, err := ch.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tree.Entry{}, errs.Input(fmt.Sprintf("reading %s", fsPath), err)
		}
		total += uint64(len(c.Data))
		a.countBytesChunked(uint64(len(c.Data)))

		id := ids.Hash(c.Data)
		if a.opts.DryRun {
			chunkIDs = append(chunkIDs, id)
			continue
		}
		wasNew := !a.repo.Index().Contains(id)
		storedID, err := a.repo.StoreBlob(ctx, ids.KindData, c.Data)
		if err != nil {
			return tree.Entry{}, fmt.Errorf("archiver: storing chunk of %s: %w", fsPath, err)
		}
		a.countBlob(wasNew)
		chunkIDs = append(chunkIDs, storedID)
	}

	entry := entryFromInfo(info, tree.KindFile, "")
	entry.Size = total
	entry.Chunks = chunkIDs
	return entry, nil
}

func (a *Archiver) archiveSpecial(fsPath string, info os.FileInfo) (tree.Entry, error) {
	a.countScanned()
	major, minor, ok := deviceNumbers(info)
	if !ok {
		return tree.Entry{}, errs.Input(fmt.Sprintf("unsupported file type: %s", fsPath), nil)
	}
	entry := entryFromInfo(info, tree.KindDevice, "")
	entry.DevMajor = major
	entry.DevMinor = minor
	return entry, nil
}

func sameAsParent(info os.FileInfo, parent tree.Entry) bool {
	if parent.Name == "" && parent.Kind == "" {
		return false
	}
	if parent.Kind != tree.KindFile {
		return false
	}
	uid, gid, _ := fileOwner(info)
	return uint64(info.Size()) == parent.Size &&
		info.ModTime().Equal(parent.Mtime) &&
		uint32(info.Mode()) == parent.Mode &&
		uid == parent.UID &&
		gid == parent.GID
}

func entryFromInfo(info os.FileInfo, kind tree.Kind, target string) tree.Entry {
	uid, gid, _ := fileOwner(info)
	return tree.Entry{
		Name:   info.Name(),
		Kind:   kind,
		Mode:   uint32(info.Mode()),
		UID:    uid,
		GID:    gid,
		Mtime:  info.ModTime(),
		Size:   uint64(info.Size()),
		Target: target,
	}
}
