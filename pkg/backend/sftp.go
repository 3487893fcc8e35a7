package backend

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

// sftpBackend implements Backend over an SSH/SFTP connection, using the
// same directory layout as the local backend (spec §6) rooted at the URL's
// path component.
type sftpBackend struct {
	client *sftp.Client
	conn   *ssh.Client
	root   string
	url    string
	mu     sync.Mutex
}

// SFTPAuth configures how openSFTP authenticates. It is installed with
// SetSFTPAuth; the repository URL's userinfo supplies only the user name,
// and cmd/strata does not call SetSFTPAuth.
type SFTPAuth struct {
	Password   string
	PrivateKey []byte // PEM-encoded
	KnownHosts string // path to a known_hosts file; empty disables verification
}

var currentSFTPAuth SFTPAuth

// SetSFTPAuth installs the credentials used by the next openSFTP call.
// The repository core treats authentication as an external collaborator
// per spec §1; this indirection keeps Open's signature URL-only.
func SetSFTPAuth(auth SFTPAuth) { currentSFTPAuth = auth }

func openSFTP(ctx context.Context, rawURL string) (Backend, error) {
	host, user, p, err := parseSFTPURL(rawURL)
	if err != nil {
		return nil, err
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "22")
	}

	auth := currentSFTPAuth
	var methods []ssh.AuthMethod
	if len(auth.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(auth.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("backend: parsing sftp private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if auth.Password != "" {
		methods = append(methods, ssh.Password(auth.Password))
	}
	if len(methods) == 0 {
		return nil, errs.Input("sftp backend requires a password or private key", nil)
	}

	hostKeyCallback, err := hostKeyCallback(auth.KnownHosts)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         15 * time.Second,
	}

	conn, err := ssh.Dial("tcp", host, cfg)
	if err != nil {
		return nil, errs.BackendUnavailable("dialing sftp host "+host, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, errs.BackendUnavailable("starting sftp session", err)
	}

	b := &sftpBackend{client: client, conn: conn, root: p, url: rawURL}
	for _, dir := range []string{"keys", "snapshots", "packs", "index", "locks"} {
		if err := client.MkdirAll(path.Join(p, dir)); err != nil {
			client.Close()
			conn.Close()
			return nil, errs.BackendUnavailable("creating remote dir "+dir, err)
		}
	}
	return b, nil
}

func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		// Best-effort default: without a known_hosts file there is no
		// prior trust anchor to check against; the caller is expected to
		// supply one for any non-throwaway deployment.
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("backend: loading known_hosts %q: %w", knownHostsPath, err)
	}
	return cb, nil
}

func (b *sftpBackend) String() string { return b.url }

func (b *sftpBackend) Close() error {
	b.client.Close()
	return b.conn.Close()
}

func (b *sftpBackend) path(kind ids.Kind, id ids.ID) (string, error) {
	switch kind {
	case ids.KindConfig:
		return path.Join(b.root, "config"), nil
	case ids.KindKey:
		return path.Join(b.root, "keys", id.String()), nil
	case ids.KindSnapshot:
		return path.Join(b.root, "snapshots", id.String()), nil
	case ids.KindIndex:
		return path.Join(b.root, "index", id.String()), nil
	case ids.KindLock:
		return path.Join(b.root, "locks", id.String()), nil
	case ids.KindPack:
		s := id.String()
		return path.Join(b.root, "packs", s[:2], s), nil
	default:
		return "", fmt.Errorf("backend: unsupported kind %v", kind)
	}
}

func (b *sftpBackend) Put(_ context.Context, kind ids.Kind, id ids.ID, data []byte) error {
	dest, err := b.path(kind, id)
	if err != nil {
		return err
	}
	if existing, err := b.client.ReadFile(dest); err == nil {
		if string(existing) == string(data) {
			return nil
		}
		return errs.Input(fmt.Sprintf("backend: %s %s already exists with different content", kind, id.Str()), nil)
	}
	if err := b.client.MkdirAll(path.Dir(dest)); err != nil {
		return errs.BackendUnavailable("creating remote parent dir", err)
	}
	tmp := dest + fmt.Sprintf(".tmp-%d", time.Now().UnixNano())
	f, err := b.client.Create(tmp)
	if err != nil {
		return errs.BackendUnavailable("creating remote temp file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		b.client.Remove(tmp)
		return errs.BackendUnavailable("writing remote temp file", err)
	}
	if err := f.Close(); err != nil {
		b.client.Remove(tmp)
		return errs.BackendUnavailable("closing remote temp file", err)
	}
	if err := b.client.Rename(tmp, dest); err != nil {
		b.client.Remove(tmp)
		return errs.BackendUnavailable("renaming remote file into place", err)
	}
	return nil
}

func (b *sftpBackend) Get(_ context.Context, kind ids.Kind, id ids.ID, offset, length int64) ([]byte, error) {
	p, err := b.path(kind, id)
	if err != nil {
		return nil, err
	}
	f, err := b.client.Open(p)
	if err != nil {
		return nil, errs.Input(fmt.Sprintf("%s %s not found", kind, id.Str()), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.BackendUnavailable("stating remote object", err)
	}
	if offset == 0 && length < 0 {
		data := make([]byte, info.Size())
		if _, err := f.Read(data); err != nil {
			return nil, errs.BackendUnavailable("reading remote object", err)
		}
		return data, nil
	}
	return readRange(f, info.Size(), offset, length)
}

func (b *sftpBackend) Stat(_ context.Context, kind ids.Kind, id ids.ID) (int64, error) {
	p, err := b.path(kind, id)
	if err != nil {
		return 0, err
	}
	info, err := b.client.Stat(p)
	if err != nil {
		return 0, errs.Input(fmt.Sprintf("%s %s not found", kind, id.Str()), err)
	}
	return info.Size(), nil
}

func (b *sftpBackend) List(_ context.Context, kind ids.Kind) ([]ids.ID, error) {
	if kind == ids.KindPack {
		return b.listPacks()
	}
	var dir string
	switch kind {
	case ids.KindKey:
		dir = path.Join(b.root, "keys")
	case ids.KindSnapshot:
		dir = path.Join(b.root, "snapshots")
	case ids.KindIndex:
		dir = path.Join(b.root, "index")
	case ids.KindLock:
		dir = path.Join(b.root, "locks")
	default:
		return nil, fmt.Errorf("backend: unsupported kind %v for list", kind)
	}
	entries, err := b.client.ReadDir(dir)
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
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out, nil
}

func (b *sftpBackend) listPacks() ([]ids.ID, error) {
	root := path.Join(b.root, "packs")
	shards, err := b.client.ReadDir(root)
	if err != nil {
		return nil, errs.BackendUnavailable("listing packs", err)
	}
	var out []ids.ID
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := b.client.ReadDir(path.Join(root, shard.Name()))
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

func (b *sftpBackend) Remove(_ context.Context, kind ids.Kind, id ids.ID) error {
	p, err := b.path(kind, id)
	if err != nil {
		return err
	}
	if err := b.client.Remove(p); err != nil && !os.IsNotExist(err) {
		return errs.BackendUnavailable("removing remote object", err)
	}
	return nil
}

func (b *sftpBackend) AcquireLock(_ context.Context, holder string, ttl time.Duration) (Lock, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := ids.Hash([]byte("strata-repository-lock"))
	p, err := b.path(ids.KindLock, id)
	if err != nil {
		return Lock{}, err
	}

	if existing, err := b.client.ReadFile(p); err == nil {
		var rec lockRecord
		if jsonErr := decodeLockRecord(existing, &rec); jsonErr == nil {
			if time.Since(rec.Time) < ttl {
				return Lock{}, errs.RepositoryLocked(
					fmt.Sprintf("held by %s since %s", rec.Holder, rec.Time.Format(time.RFC3339)), nil)
			}
		}
	}

	rec := lockRecord{Holder: holder, Time: time.Now().UTC()}
	data, err := encodeLockRecord(rec)
	if err != nil {
		return Lock{}, err
	}
	f, err := b.client.Create(p)
	if err != nil {
		return Lock{}, errs.BackendUnavailable("creating remote lock file", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return Lock{}, errs.BackendUnavailable("writing remote lock file", err)
	}
	return Lock{ID: id, Holder: holder, Acquired: rec.Time}, nil
}

func (b *sftpBackend) ReleaseLock(_ context.Context, lock Lock) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.path(ids.KindLock, lock.ID)
	if err != nil {
		return err
	}
	if err := b.client.Remove(p); err != nil && !os.IsNotExist(err) {
		return errs.BackendUnavailable("releasing remote lock", err)
	}
	return nil
}
