package dirstat

import (
	"cmp"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"
)

// DefaultTopN is the number of items returned by TopK when Options.TopN is unset.
const DefaultTopN = 5

// ExtStat represents statistics for a file extension.
type ExtStat struct {
	// Count is the number of files with this extension.
	Count int `json:"count" yaml:"count"`
	// Size is the cumulative size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// RankedItem is a file or directory ranked by size.
type RankedItem struct {
	// Path is the file or directory path.
	Path string `json:"path" yaml:"path"`
	// Size is the size in bytes. Directories carry their shallow size.
	Size int64 `json:"size" yaml:"size"`
	// Formatted is Size rendered by FormatSize.
	Formatted string `json:"formatted" yaml:"formatted"`
	// IsDir indicates whether the item is a directory.
	IsDir bool `json:"is_dir" yaml:"is_dir"`
}

// Ranking holds the largest items of a tree and the counters of the walk that found them.
type Ranking struct {
	// Items are the largest items, largest first.
	Items []RankedItem `json:"items" yaml:"items"`
	// FileCount is the number of matching files seen.
	FileCount int64 `json:"file_count" yaml:"file_count"`
	// DirCount is the number of matching directories seen.
	DirCount int64 `json:"dir_count" yaml:"dir_count"`
	// TotalBytes is the cumulative size of all matching files.
	TotalBytes int64 `json:"total_bytes" yaml:"total_bytes"`
	// Extensions maps file extensions to their statistics.
	Extensions map[string]ExtStat `json:"extensions" yaml:"extensions"`
	// ErrorCount is the number of entries skipped because of errors.
	ErrorCount int64 `json:"error_count" yaml:"error_count"`
	// Elapsed is the total time taken for the walk.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	// TopN is the number of top results requested.
	TopN int `json:"top_n" yaml:"top_n"`
}

// Options configures Scan, TopK and Summarize.
type Options struct {
	// Filters are path suffixes to include (empty = all).
	// A '!' prefix excludes the suffix instead.
	Filters []string
	// Excludes contains regex patterns to exclude, matched against slash paths.
	Excludes []string
	// MinSize is the minimum size in bytes of a TopK candidate.
	MinSize int64
	// Depth is the maximum traversal depth (0=unlimited).
	Depth int
	// SkipUnreadable leaves out entries the current user cannot open,
	// instead of reporting them as errors.
	SkipUnreadable bool
	// Workers bounds the goroutines rendering sibling subtrees in Scan.
	// Zero or less uses GOMAXPROCS, one disables concurrency.
	Workers int
	// TopN is the number of items TopK returns (0 = DefaultTopN).
	TopN int
	// ProgressInterval controls progress callback cadence in TopK.
	ProgressInterval time.Duration
	// IncludeFree makes Summarize append a free space entry.
	IncludeFree bool
	// DiskUsage supplies filesystem statistics for IncludeFree (nil = HostDiskUsage).
	DiskUsage DiskUsageFunc
	// Observer receives diagnostic events (nil = discard).
	Observer Observer
}

func (o Options) filter() Filter {
	return NewFilter(o.Filters...)
}

func (o Options) beyondDepth(depth int) bool {
	return o.Depth > 0 && depth > o.Depth
}

func (o Options) observer() Observer {
	if o.Observer == nil {
		return discard{}
	}

	return o.Observer
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}

	return o.Workers
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return DefaultTopN
	}

	return o.TopN
}

func (o Options) diskUsage() DiskUsageFunc {
	if o.DiskUsage == nil {
		return HostDiskUsage
	}

	return o.DiskUsage
}

// collector aggregates ranking candidates from the walk callback.
// It is guarded by a mutex since the progress reporter reads it from another goroutine.
type collector struct {
	mu         sync.Mutex
	topN       int
	minSize    int64
	extStats   map[string]ExtStat
	items      []RankedItem
	fileCount  int64
	dirCount   int64
	totalBytes int64
	errorCount int64
}

// newCollector creates a collector keeping the topN largest items
// of at least minSize bytes.
func newCollector(topN int, minSize int64) *collector {
	return &collector{
		topN:     topN,
		minSize:  minSize,
		extStats: make(map[string]ExtStat),
		items:    make([]RankedItem, 0),
	}
}

// addError increments the error counter.
func (c *collector) addError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCount++
}

// addFile records a matching file.
func (c *collector) addFile(path string, size int64) {
	if size < c.minSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileCount++
	c.totalBytes += size

	ext := filepath.Ext(path)
	stat := c.extStats[ext]
	stat.Count++
	stat.Size += size
	c.extStats[ext] = stat

	// Collect all items, we'll sort and trim later
	c.items = append(c.items, RankedItem{Path: path, Size: size})
}

// addDir records a matching directory with its shallow size.
func (c *collector) addDir(path string, size int64) {
	if size < c.minSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirCount++
	c.items = append(c.items, RankedItem{Path: path, Size: size, IsDir: true})
}

// progress returns the file count and byte total so far.
func (c *collector) progress() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fileCount, c.totalBytes
}

// finalize produces the Ranking from the collected data.
// Items are stable-sorted by size, largest first, so equal sizes keep
// the order in which the walk found them.
func (c *collector) finalize() *Ranking {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := slices.Clone(c.items)
	slices.SortStableFunc(items, func(a, b RankedItem) int {
		return cmp.Compare(b.Size, a.Size)
	})

	if len(items) > c.topN {
		items = items[:c.topN]
	}

	for i := range items {
		items[i].Formatted = FormatSize(items[i].Size)
	}

	return &Ranking{
		Items:      items,
		FileCount:  c.fileCount,
		DirCount:   c.dirCount,
		TotalBytes: c.totalBytes,
		Extensions: c.extStats,
		ErrorCount: c.errorCount,
		TopN:       c.topN,
	}
}
