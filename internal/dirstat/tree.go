package dirstat

import (
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Markers used in Scan output. Downstream parsers rely on them verbatim.
const (
	MarkerDir          = "[DIR]"
	MarkerSymlink      = "[SYMLINK]"
	MarkerSymlinkDir   = "[SYMLINK DIR]"
	MarkerSymlinkFile  = "[SYMLINK FILE]"
	MarkerAccessDenied = "[ACCESS DENIED]"
)

// Indent is the indentation added per depth level in Scan output.
const Indent = "    "

// treeScanner holds the state of a single Scan call.
type treeScanner struct {
	filter   Filter
	excludes []*regexp.Regexp
	// maxDepth is the deepest level listed; 0 means unlimited.
	maxDepth int
	observer Observer
	visited  *visitedSet
	// sem bounds the goroutines rendering sibling subtrees; nil means sequential.
	sem *semaphore.Weighted
}

// node is one rendered child: its own line and, for directories, the
// directory whose children are listed below it.
type node struct {
	line    string
	descend string
}

// Scan renders the tree below path as indented text.
//
// The first line is the root marker "> name". Every child is written on its own
// line, four spaces deeper than its parent, with children ordered by
// case-insensitive name. Directories get a "[DIR] name" line, files a
// "name - size" line and symbolic links one of the "[SYMLINK ...]" markers.
// A symbolic link whose target was already visited during this call is
// printed as "[SYMLINK] name -> target" and not followed, which breaks cycles.
// Files not matching opt.Filters are left out; directories always appear.
// Entries matching opt.Excludes are left out entirely. With opt.Depth set,
// directories at that depth are listed without their children.
//
// Directories that cannot be listed are rendered with an "[ACCESS DENIED]"
// line. Other per-entry errors are reported to opt.Observer and the entry is
// skipped. When opt.Workers allows it, sibling subtrees are rendered
// concurrently; the output does not depend on it.
//
// Scan fails if path does not exist or cannot be inspected.
func Scan(path string, opt Options) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, path)
		}

		return "", fmt.Errorf("accessing path %q: %w", path, err)
	}

	excludes, err := compileExcludes(opt.Excludes)
	if err != nil {
		return "", err
	}

	scanner := &treeScanner{
		filter:   opt.filter(),
		excludes: excludes,
		maxDepth: opt.Depth,
		observer: opt.observer(),
		visited:  &visitedSet{},
	}

	if workers := opt.workers(); workers > 1 {
		scanner.sem = semaphore.NewWeighted(int64(workers))
	}

	name := filepath.Base(filepath.Clean(path))

	if !info.IsDir() {
		if !scanner.filter.Match(path) {
			return "> " + name + "\n", nil
		}

		return fmt.Sprintf("> %s - %s\n", name, FormatSize(info.Size())), nil
	}

	var out strings.Builder

	out.WriteString("> " + name + "\n")

	if root, err := canonical(path); err == nil {
		scanner.visited.claim(root)
	}

	out.WriteString(scanner.children(path, 1))

	return out.String(), nil
}

// children renders the entries of dir at the given depth.
func (s *treeScanner) children(dir string, depth int) string {
	indent := strings.Repeat(Indent, depth)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isPermission(err) {
			s.observer.OnEvent(Event{Kind: EventAccessDenied, Path: dir, Err: err})

			return indent + MarkerAccessDenied + "\n"
		}

		s.observer.OnEvent(Event{Kind: EventSkipped, Path: dir, Err: err})

		return ""
	}

	sortEntries(entries)

	// Claim every child before descending into any of them, so which sibling
	// owns a shared target does not depend on goroutine scheduling.
	nodes := make([]*node, 0, len(entries))

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if shouldExcludeByPattern(path, s.excludes) != nil {
			continue
		}

		if n := s.plan(path, entry, indent); n != nil {
			nodes = append(nodes, n)
		}
	}

	atLimit := s.maxDepth > 0 && depth >= s.maxDepth

	parts := make([]string, len(nodes))

	var wg sync.WaitGroup

	for i, n := range nodes {
		if n.descend == "" || atLimit {
			parts[i] = n.line

			continue
		}

		render := func() {
			parts[i] = n.line + s.children(n.descend, depth+1)
		}

		if s.sem != nil && s.sem.TryAcquire(1) {
			wg.Add(1)

			go func() {
				defer wg.Done()
				defer s.sem.Release(1)

				render()
			}()

			continue
		}

		// No free worker: render on this goroutine rather than wait for one.
		render()
	}

	wg.Wait()

	return strings.Join(parts, "")
}

// plan classifies one entry, claims its canonical path where needed and
// returns its line. It returns nil for entries that are left out.
func (s *treeScanner) plan(path string, entry fs.DirEntry, indent string) *node {
	name := entry.Name()

	switch {
	case entry.Type()&fs.ModeSymlink != 0:
		return s.planSymlink(path, name, indent)
	case entry.IsDir():
		n := &node{line: fmt.Sprintf("%s%s %s\n", indent, MarkerDir, name)}

		target, err := canonical(path)
		if err != nil {
			s.observer.OnEvent(Event{Kind: EventSkipped, Path: path, Err: err})

			return nil
		}

		if !s.visited.claim(target) {
			// Already listed through a symbolic link.
			s.observer.OnEvent(Event{Kind: EventVisited, Path: path, Target: target})

			return n
		}

		n.descend = path

		return n
	default:
		if !s.filter.Match(path) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			s.observer.OnEvent(Event{Kind: EventSkipped, Path: path, Err: err})

			return nil
		}

		return &node{
			line: fmt.Sprintf("%s%s - %s\n", indent, name, FormatSize(info.Size())),
		}
	}
}

// planSymlink resolves a symbolic link and decides whether it is followed.
func (s *treeScanner) planSymlink(path, name, indent string) *node {
	link, err := os.Readlink(path)
	if err != nil {
		s.observer.OnEvent(Event{Kind: EventSkipped, Path: path, Err: err})

		return nil
	}

	marker := &node{line: fmt.Sprintf("%s%s %s -> %s\n", indent, MarkerSymlink, name, link)}

	target, err := canonical(path)
	if err != nil {
		// Dangling link: show it, there is nothing to follow.
		s.observer.OnEvent(Event{Kind: EventSkipped, Path: path, Target: link, Err: err})

		return marker
	}

	info, err := os.Stat(target)
	if err != nil {
		s.observer.OnEvent(Event{Kind: EventSkipped, Path: path, Target: target, Err: err})

		return marker
	}

	if !info.IsDir() && !s.filter.Match(path) {
		return nil
	}

	if !s.visited.claim(target) {
		s.observer.OnEvent(Event{Kind: EventCycle, Path: path, Target: target})

		return marker
	}

	if info.IsDir() {
		return &node{
			line:    fmt.Sprintf("%s%s %s -> %s\n", indent, MarkerSymlinkDir, name, link),
			descend: target,
		}
	}

	return &node{
		line: fmt.Sprintf("%s%s %s -> %s - %s\n", indent, MarkerSymlinkFile, name, link, FormatSize(info.Size())),
	}
}

// canonical returns the absolute, symlink-free form of path.
func canonical(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}

	return filepath.Abs(resolved)
}

// sortEntries orders entries by case-insensitive name, falling back to the
// exact name so the order is total.
func sortEntries(entries []fs.DirEntry) {
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name())),
			cmp.Compare(a.Name(), b.Name()),
		)
	})
}
