package dirstat

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charlievieth/fastwalk"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// startProgressReporter invokes hook(files, bytes) on each tick until ctx is done.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(int64, int64), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.progress())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// TopK walks the tree at dir once and returns its largest files and directories.
//
// Files are ranked by their size, directories by their shallow size: the sum of
// their immediate regular files, not of their whole subtree. Both are kept only
// if their path matches opt.Filters and their size is at least opt.MinSize.
// Symbolic links are not followed. Entries deeper than opt.Depth or matching
// one of the opt.Excludes patterns are not visited, nor is anything below them.
// Entries that vanish or cannot be read are reported to opt.Observer and left
// out; with opt.SkipUnreadable, entries the user cannot open are left out silently.
//
// The result holds at most opt.TopN items (DefaultTopN when unset), largest
// first; equal sizes keep walk order. Progress updates are sent to
// progressHook if provided. The walk can be cancelled via ctx.
func TopK(ctx context.Context, dir string, opt Options, progressHook func(int64, int64)) (*Ranking, error) {
	dir = filepath.Clean(dir)

	// validate path exists and is a directory
	if statInfo, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotADirectory, dir)
	} else if !statInfo.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrNotADirectory, dir)
	}

	excludeRegexes, err := compileExcludes(opt.Excludes)
	if err != nil {
		return nil, err
	}

	filter := opt.filter()
	observer := opt.observer()
	collector := newCollector(opt.topN(), opt.MinSize)

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(ctx, collector, progressHook, opt.ProgressInterval)

	start := time.Now()

	// A single worker serializes the callback so "first encountered" is well defined.
	conf := &fastwalk.Config{
		Follow:     false,
		NumWorkers: 1,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			observer.OnEvent(Event{Kind: eventFor(err), Path: path, Err: err})
			collector.addError()

			return nil // Skip unreadable entries
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == dir {
			return nil
		}

		path = filepath.Clean(path)

		// Check depth limit
		depth := calculateDepth(path, dir)
		if opt.beyondDepth(depth) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}

			return nil
		}

		if shouldExcludeByPattern(path, excludeRegexes) != nil {
			if d.IsDir() {
				return fastwalk.SkipDir
			}

			return nil
		}

		if opt.SkipUnreadable && !readable(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if !filter.Match(path) {
				return nil
			}

			size, err := shallowSize(path, Filter{})
			if err != nil {
				observer.OnEvent(Event{Kind: eventFor(err), Path: path, Err: err})
				collector.addError()

				// The walk would fail on the same listing again.
				return fastwalk.SkipDir
			}

			collector.addDir(path, size)

			return nil
		}

		if !d.Type().IsRegular() || !filter.Match(path) {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			observer.OnEvent(Event{Kind: EventSkipped, Path: path, Err: err})
			collector.addError()

			return nil
		}

		collector.addFile(path, fileInfo.Size())

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	ranking := collector.finalize()
	ranking.Elapsed = time.Since(start)

	return ranking, nil
}

// eventFor classifies a read error.
func eventFor(err error) EventKind {
	if isPermission(err) {
		return EventAccessDenied
	}

	return EventSkipped
}
