package archiver

import "path/filepath"

// included applies exclude rules then include rules against relPath, using
// stdlib glob matching against the whole relative path and against its
// final segment (so "*.tmp" excludes tmp files at any depth, the way a
// .gitignore-style single-segment pattern behaves). strata does not carry
// a double-star glob dependency, so recursive patterns like "**/cache"
// are not supported.
func (a *Archiver) included(relPath string) bool {
	for _, pattern := range a.opts.Excludes {
		if matchesAnySegment(pattern, relPath) {
			return false
		}
	}
	if len(a.opts.Includes) == 0 {
		return true
	}
	for _, pattern := range a.opts.Includes {
		if matchesAnySegment(pattern, relPath) {
			return true
		}
	}
	return false
}

func matchesAnySegment(pattern, relPath string) bool {
	if ok, _ := filepath.Match(pattern, relPath); ok {
		return true
	}
	if ok, _ := filepath.Match(pattern, filepath.Base(relPath)); ok {
		return true
	}
	return false
}
