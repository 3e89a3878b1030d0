package dirstat

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
)

// FreeSpaceLabel is the label of the synthetic free space entry.
const FreeSpaceLabel = "Free Space"

// UsageEntry is one segment of a usage summary.
type UsageEntry struct {
	// Label is the entry name, or FreeSpaceLabel.
	Label string `json:"label" yaml:"label"`
	// Size is the size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Formatted is Size rendered by FormatSize.
	Formatted string `json:"formatted" yaml:"formatted"`
	// Free marks the synthetic free space entry.
	Free bool `json:"free,omitempty" yaml:"free,omitempty"`
}

// Usage is the result of Summarize.
type Usage struct {
	// Path is the summarized path.
	Path string `json:"path" yaml:"path"`
	// Entries are the segments in name order, free space last.
	Entries []UsageEntry `json:"entries" yaml:"entries"`
}

// Labels returns the entry labels.
func (u *Usage) Labels() []string {
	labels := make([]string, len(u.Entries))
	for i, e := range u.Entries {
		labels[i] = e.Label
	}

	return labels
}

// Sizes returns the entry sizes in bytes.
func (u *Usage) Sizes() []int64 {
	sizes := make([]int64, len(u.Entries))
	for i, e := range u.Entries {
		sizes[i] = e.Size
	}

	return sizes
}

// FormattedSizes returns the entry sizes rendered by FormatSize.
func (u *Usage) FormattedSizes() []string {
	formatted := make([]string, len(u.Entries))
	for i, e := range u.Entries {
		formatted[i] = e.Formatted
	}

	return formatted
}

// Total returns the sum of all entry sizes.
func (u *Usage) Total() int64 {
	var total int64
	for _, e := range u.Entries {
		total += e.Size
	}

	return total
}

// Summarize returns the space used by the immediate children of path.
//
// Only one level is inspected: files count with their size, directories with
// their shallow size (their own matching files, not their subdirectories), so
// the total may be less than the real size of path. Symbolic links are
// skipped. Children outside opt.Filters, matching opt.Excludes or with a size
// of zero are left out, as are children the user cannot open when
// opt.SkipUnreadable is set.
//
// With opt.IncludeFree a FreeSpaceLabel entry is appended: the free space of
// the filesystem minus the bytes already attributed to the children, never
// negative.
//
// Summarize fails with ErrNotFound if path does not exist and with ErrEmpty
// if no entry is left.
func Summarize(path string, opt Options) (*Usage, error) {
	info, err := os.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}

		return nil, fmt.Errorf("accessing path %q: %w", path, err)
	}

	excludeRegexes, err := compileExcludes(opt.Excludes)
	if err != nil {
		return nil, err
	}

	filter := opt.filter()
	observer := opt.observer()
	usage := &Usage{Path: path}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("listing %q: %w", path, err)
		}

		sortEntries(entries)

		for _, entry := range entries {
			child := filepath.Join(path, entry.Name())
			if shouldExcludeByPattern(child, excludeRegexes) != nil {
				continue
			}

			if opt.SkipUnreadable && !readable(child) {
				continue
			}

			size, ok := childSize(child, entry, filter, observer)
			if !ok || size <= 0 {
				continue
			}

			usage.Entries = append(usage.Entries, UsageEntry{Label: entry.Name(), Size: size, Formatted: FormatSize(size)})
		}
	} else if filter.Match(path) && info.Size() > 0 {
		usage.Entries = append(usage.Entries, UsageEntry{
			Label:     filepath.Base(path),
			Size:      info.Size(),
			Formatted: FormatSize(info.Size()),
		})
	}

	if len(usage.Entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmpty, path)
	}

	if opt.IncludeFree {
		stats, err := opt.diskUsage()(path)
		if err != nil {
			observer.OnEvent(Event{Kind: EventDiskUsage, Path: path, Err: err})

			return usage, nil
		}

		free := freeSpace(stats, usage.Total())
		usage.Entries = append(usage.Entries, UsageEntry{
			Label:     FreeSpaceLabel,
			Size:      free,
			Formatted: FormatSize(free),
			Free:      true,
		})
	}

	return usage, nil
}

// childSize sizes one child of a summarized directory.
// It returns false for entries that are skipped.
func childSize(path string, entry fs.DirEntry, filter Filter, observer Observer) (int64, bool) {
	switch {
	case entry.Type()&fs.ModeSymlink != 0:
		return 0, false
	case entry.IsDir():
		size, err := shallowSize(path, filter)
		if err != nil {
			observer.OnEvent(Event{Kind: eventFor(err), Path: path, Err: err})

			return 0, false
		}

		return size, true
	default:
		if !filter.Match(path) {
			return 0, false
		}

		info, err := entry.Info()
		if err != nil {
			observer.OnEvent(Event{Kind: EventSkipped, Path: path, Err: err})

			return 0, false
		}

		return info.Size(), true
	}
}

// freeSpace subtracts the attributed bytes from the free space reported for
// the filesystem, clamping at zero for stale statistics.
func freeSpace(stats DiskStats, attributed int64) int64 {
	free := stats.Free
	if free > math.MaxInt64 {
		free = math.MaxInt64
	}

	if attributed >= int64(free) { //nolint:gosec // Clamped above
		return 0
	}

	return int64(free) - attributed //nolint:gosec // Clamped above
}
