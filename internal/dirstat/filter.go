package dirstat

import "strings"

// Filter selects paths by suffix.
// The zero value matches every path.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter builds a Filter from suffixes such as ".go" or "_test.go".
// A suffix prefixed with '!' excludes matching paths instead.
// Quotes and surrounding whitespace are stripped and empty entries ignored.
func NewFilter(suffixes ...string) Filter {
	var f Filter

	for _, s := range suffixes {
		s = strings.Trim(strings.TrimSpace(s), "'\"") // Strip quotes first

		if excluded, ok := strings.CutPrefix(s, "!"); ok {
			if excluded != "" {
				f.exclude = append(f.exclude, excluded)
			}

			continue
		}

		if s != "" {
			f.include = append(f.include, s)
		}
	}

	return f
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return len(f.include) == 0 && len(f.exclude) == 0
}

// Match reports whether path ends with one of the included suffixes
// and with none of the excluded ones. Matching is case-sensitive.
func (f Filter) Match(path string) bool {
	// Check excludes first
	for _, ext := range f.exclude {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	// If no include filter, include all
	if len(f.include) == 0 {
		return true
	}

	for _, ext := range f.include {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// String returns the suffixes in the form accepted by NewFilter.
func (f Filter) String() string {
	parts := make([]string, 0, len(f.include)+len(f.exclude))
	parts = append(parts, f.include...)

	for _, ext := range f.exclude {
		parts = append(parts, "!"+ext)
	}

	return strings.Join(parts, ",")
}
