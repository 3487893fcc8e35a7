//go:build unix

package archiver

import (
	"os"
	"syscall"
)

// fileOwner extracts uid/gid from a Unix stat_t, ok=false on platforms or
// file types where this isn't meaningful.
func fileOwner(info os.FileInfo) (uid, gid uint32, ok bool) {
	st, isStat := info.Sys().(*syscall.Stat_t)
	if !isStat {
		return 0, 0, false
	}
	return st.Uid, st.Gid, true
}

// fileIdentity returns the (device, inode) pair identifying a file's
// underlying data, used by the hardlink table (spec §9 Open Question).
func fileIdentity(info os.FileInfo) (dev, inode uint64, ok bool) {
	st, isStat := info.Sys().(*syscall.Stat_t)
	if !isStat || st.Nlink < 2 {
		return 0, 0, false
	}
	return uint64(st.Dev), st.Ino, true
}

// deviceNumbers extracts the major/minor numbers of a device special file.
// A named pipe is accepted too (ok=true), with whatever numbers its Rdev
// holds.
func deviceNumbers(info os.FileInfo) (major, minor uint32, ok bool) {
	st, isStat := info.Sys().(*syscall.Stat_t)
	if !isStat {
		return 0, 0, false
	}
	mode := info.Mode()
	if mode&(os.ModeDevice|os.ModeCharDevice) == 0 && mode&os.ModeNamedPipe == 0 {
		return 0, 0, false
	}
	rdev := uint64(st.Rdev)
	return uint32(rdev >> 8), uint32(rdev & 0xff), true
}
