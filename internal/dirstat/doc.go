// Package dirstat provides directory inventory and size aggregation.
//
// It renders indented size-annotated trees of a directory (following
// symbolic links behind a cycle guard), ranks the largest files and
// directories of a tree, and summarizes the space used by the immediate
// children of a path for proportional display.
package dirstat
