package dirstat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopKSixFiles(t *testing.T) {
	dir := t.TempDir()
	for i, size := range []int{100, 200, 300, 400, 500, 600} {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("file%d.txt", i)), size)
	}

	ranking, err := TopK(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, ranking.Items, 5)

	for i, item := range ranking.Items {
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("file%d.txt", 5-i)), item.Path)
		assert.Equal(t, int64(600-100*i), item.Size)
		assert.Equal(t, FormatSize(item.Size), item.Formatted)
		assert.False(t, item.IsDir)
	}

	assert.Equal(t, int64(6), ranking.FileCount)
	assert.Equal(t, int64(2100), ranking.TotalBytes)
	assert.Equal(t, ExtStat{Count: 6, Size: 2100}, ranking.Extensions[".txt"])
}

func TestTopKFewerItems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a"), 1)
	writeFile(t, filepath.Join(dir, "b"), 2)

	ranking, err := TopK(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, ranking.Items, 2)
	assert.Equal(t, filepath.Join(dir, "b"), ranking.Items[0].Path)
}

func TestTopKDirectoriesUseShallowSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "own.bin"), 1000)
	writeFile(t, filepath.Join(dir, "sub", "nested", "huge.bin"), 5000)
	writeFile(t, filepath.Join(dir, "small.bin"), 10)

	ranking, err := TopK(context.Background(), dir, Options{TopN: 10}, nil)
	require.NoError(t, err)

	sizes := make(map[string]RankedItem, len(ranking.Items))
	for _, item := range ranking.Items {
		sizes[item.Path] = item
	}

	require.Contains(t, sizes, filepath.Join(dir, "sub"))
	assert.Equal(t, int64(1000), sizes[filepath.Join(dir, "sub")].Size, "subdirectories are not counted")
	assert.True(t, sizes[filepath.Join(dir, "sub")].IsDir)
	assert.Equal(t, int64(5000), sizes[filepath.Join(dir, "sub", "nested")].Size)
	assert.NotContains(t, sizes, dir, "the root itself is not ranked")
	assert.Len(t, ranking.Items, 5)
	assert.Equal(t, int64(2), ranking.DirCount)
}

func TestTopKOrderedAndBounded(t *testing.T) {
	dir := t.TempDir()
	for i := range 12 {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("d%d", i%3), fmt.Sprintf("f%d.dat", i)), (i*37)%11*10+1)
	}

	ranking, err := TopK(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, ranking.Items, DefaultTopN)

	for i := 1; i < len(ranking.Items); i++ {
		assert.LessOrEqual(t, ranking.Items[i].Size, ranking.Items[i-1].Size)
	}
}

func TestTopKFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), 10)
	writeFile(t, filepath.Join(dir, "big.iso"), 10000)
	writeFile(t, filepath.Join(dir, "docs", "b.txt"), 20)

	ranking, err := TopK(context.Background(), dir, Options{Filters: []string{".txt"}}, nil)
	require.NoError(t, err)
	require.Len(t, ranking.Items, 2)

	for _, item := range ranking.Items {
		assert.True(t, strings.HasSuffix(item.Path, ".txt"), item.Path)
	}

	assert.Equal(t, filepath.Join(dir, "docs", "b.txt"), ranking.Items[0].Path)
}

func TestTopKNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeFile(t, file, 1)

	for _, path := range []string{file, filepath.Join(dir, "not_a_directory")} {
		_, err := TopK(context.Background(), path, Options{}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotADirectory))
	}
}

func TestTopKCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TopK(ctx, dir, Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// rankedPaths returns the ranked paths relative to dir, in ranking order.
func rankedPaths(t *testing.T, dir string, ranking *Ranking) []string {
	t.Helper()

	paths := make([]string, 0, len(ranking.Items))

	for _, item := range ranking.Items {
		rel, err := filepath.Rel(dir, item.Path)
		require.NoError(t, err)

		paths = append(paths, filepath.ToSlash(rel))
	}

	return paths
}

func TestTopKAccessDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for this user")
	}

	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	writeFile(t, filepath.Join(locked, "secret.bin"), 5000)
	writeFile(t, filepath.Join(dir, "open", "visible.bin"), 30)
	writeFile(t, filepath.Join(dir, "z.bin"), 20)
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	rec := &recorder{}

	ranking, err := TopK(context.Background(), dir, Options{Observer: rec, TopN: 10}, nil)
	require.NoError(t, err)

	assert.Contains(t, rec.kinds(), EventAccessDenied)
	assert.Positive(t, ranking.ErrorCount)
	assert.Equal(t, []string{"open", "open/visible.bin", "z.bin"}, rankedPaths(t, dir, ranking),
		"the walk continues past the unreadable directory")
}

func TestTopKSkipUnreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for this user")
	}

	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	writeFile(t, filepath.Join(locked, "secret.bin"), 5000)
	writeFile(t, filepath.Join(dir, "private.bin"), 4000)
	writeFile(t, filepath.Join(dir, "z.bin"), 20)
	require.NoError(t, os.Chmod(locked, 0o000))
	require.NoError(t, os.Chmod(filepath.Join(dir, "private.bin"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	rec := &recorder{}

	ranking, err := TopK(context.Background(), dir, Options{Observer: rec, SkipUnreadable: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"z.bin"}, rankedPaths(t, dir, ranking))
	assert.Zero(t, ranking.ErrorCount)
	assert.Empty(t, rec.kinds())
}

func TestTopKSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	external := t.TempDir()
	writeFile(t, filepath.Join(external, "huge.bin"), 9000)
	writeFile(t, filepath.Join(dir, "real.bin"), 10)
	symlink(t, filepath.Join(external, "huge.bin"), filepath.Join(dir, "file-link"))
	symlink(t, external, filepath.Join(dir, "dir-link"))

	ranking, err := TopK(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"real.bin"}, rankedPaths(t, dir, ranking))
	assert.Equal(t, int64(10), ranking.TotalBytes)
}

func TestTopKDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.bin"), 10)
	writeFile(t, filepath.Join(dir, "one", "mid.bin"), 20)
	writeFile(t, filepath.Join(dir, "one", "two", "deep.bin"), 300)

	tests := []struct {
		depth int
		want  []string
	}{
		{1, []string{"one", "top.bin"}},
		{2, []string{"one", "one/mid.bin", "top.bin"}},
		{0, []string{"one/two", "one/two/deep.bin", "one", "one/mid.bin", "top.bin"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth %d", tt.depth), func(t *testing.T) {
			ranking, err := TopK(context.Background(), dir, Options{Depth: tt.depth, TopN: 10}, nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, rankedPaths(t, dir, ranking))
		})
	}
}

func TestTopKExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.bin"), 10)
	writeFile(t, filepath.Join(dir, ".git", "objects", "pack.bin"), 9000)
	writeFile(t, filepath.Join(dir, "node_modules", "dep", "index.js"), 8000)

	ranking, err := TopK(context.Background(), dir, Options{
		Excludes: []string{`.*\.git/.*`, `.*node_modules/.*`},
		TopN:     10,
	}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"keep.bin", ".git", "node_modules"}, rankedPaths(t, dir, ranking),
		"excluded directories are listed but nothing below them")
	assert.Equal(t, int64(1), ranking.FileCount)
}

func TestTopKInvalidExclude(t *testing.T) {
	_, err := TopK(context.Background(), t.TempDir(), Options{Excludes: []string{"["}}, nil)
	assert.ErrorContains(t, err, "compiling exclusion pattern")
}

func TestTopKMinSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "big.bin"), 2000)
	writeFile(t, filepath.Join(dir, "small.bin"), 10)
	writeFile(t, filepath.Join(dir, "sub", "tiny.bin"), 5)

	ranking, err := TopK(context.Background(), dir, Options{MinSize: 1024}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"big.bin"}, rankedPaths(t, dir, ranking))
	assert.Equal(t, int64(1), ranking.FileCount)
	assert.Zero(t, ranking.DirCount)
}
