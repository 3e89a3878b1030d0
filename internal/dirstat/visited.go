package dirstat

import "sync"

// visitedSet holds the canonical paths entered during one scan.
// It is shared by every goroutine working on that scan.
type visitedSet struct {
	paths sync.Map
}

// claim marks path as visited and reports whether it was not visited before.
// Insertion is atomic, so concurrent claims of the same path succeed exactly once.
func (v *visitedSet) claim(path string) bool {
	_, loaded := v.paths.LoadOrStore(path, struct{}{})

	return !loaded
}
