package dirstat

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// CalculateSize returns the size in bytes of the file or directory at path.
//
// For a file the second return value is false when the file does not match
// filter, which lets callers tell a filtered-out file from an empty one.
// For a directory the size is the recursive sum of all matching regular
// files below it, walked in parallel. Symbolic links below it are not
// followed and entries that cannot be read count as zero.
// A missing path yields (0, true).
//
// CalculateSize never fails: it is used inside aggregate loops where a
// vanished entry must not abort the whole computation.
func CalculateSize(path string, filter Filter) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, true
	}

	if !info.IsDir() {
		if !filter.Match(path) {
			return 0, false
		}

		return info.Size(), true
	}

	// Walk the target of a linked root, not the link itself.
	root := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		root = resolved
	}

	// fastwalk invokes the callback from several goroutines.
	var total atomic.Int64

	conf := &fastwalk.Config{
		Follow: false, // Don't follow symlinks
	}

	//nolint:varnamelen // d is standard for DirEntry
	_ = fastwalk.Walk(conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Unreadable entries contribute zero
		}

		if !d.Type().IsRegular() || !filter.Match(p) {
			return nil
		}

		if fileInfo, err := d.Info(); err == nil {
			total.Add(fileInfo.Size())
		}

		return nil
	})

	return total.Load(), true
}

// shallowSize returns the summed size of the immediate regular file children
// of dir that match filter. Nested directories are not descended into.
// Only a failure to list dir itself is returned; children that vanish
// between listing and sizing are left out.
func shallowSize(dir string, filter Filter) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var total int64

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if !filter.Match(path) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		total += info.Size()
	}

	return total, nil
}

// isPermission reports whether err was caused by missing permissions.
func isPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// isNotExist reports whether err was caused by a missing entry.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
