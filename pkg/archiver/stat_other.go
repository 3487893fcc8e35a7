//go:build !unix

package archiver

import "os"

func fileOwner(info os.FileInfo) (uid, gid uint32, ok bool) {
	return 0, 0, false
}

func fileIdentity(info os.FileInfo) (dev, inode uint64, ok bool) {
	return 0, 0, false
}

func deviceNumbers(info os.FileInfo) (major, minor uint32, ok bool) {
	return 0, 0, false
}
