package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/dirscan/internal/dirstat"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// options assembles the library options shared by all commands.
func options(cmd *cobra.Command, cfg *viper.Viper) dirstat.Options {
	log := newLogger(cfg, cmd.ErrOrStderr())

	log.Debug("configuration",
		"filters", cfg.GetStringSlice(filtersKey),
		"excludes", cfg.GetStringSlice(excludesKey),
		"output", cfg.GetString(outputKey),
		"config", cfg.ConfigFileUsed(),
	)

	return dirstat.Options{
		Filters:        cfg.GetStringSlice(filtersKey),
		Excludes:       cfg.GetStringSlice(excludesKey),
		SkipUnreadable: cfg.GetBool(unreadableKey),
		Observer:       dirstat.NewLogObserver(log),
	}
}

// depth reads a traversal depth limit.
func depth(cfg *viper.Viper, key string) (int, error) {
	limit := cfg.GetInt(key)
	if limit < 0 {
		return 0, errors.New("depth cannot be negative")
	}

	return limit, nil
}

// minSize parses a human readable size such as "10KB" or "1.5MiB".
func minSize(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid min-size: %w", err)
	}

	return int64(size), nil //nolint:gosec // Size conversion from humanize is safe
}

func runTree(cmd *cobra.Command, cfg *viper.Viper, path string) error {
	opt := options(cmd, cfg)
	opt.Workers = cfg.GetInt(workersKey)

	var err error
	if opt.Depth, err = depth(cfg, treeDepthKey); err != nil {
		return err
	}

	tree, err := dirstat.Scan(path, opt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	return PrintTree(tree, out, isTerminal(out))
}

func runTop(cmd *cobra.Command, cfg *viper.Viper, path string) error {
	opt := options(cmd, cfg)
	opt.TopN = cfg.GetInt(topKey)

	var err error
	if opt.Depth, err = depth(cfg, topDepthKey); err != nil {
		return err
	}

	if opt.MinSize, err = minSize(cfg.GetString(topMinSizeKey)); err != nil {
		return err
	}

	output := cfg.GetString(outputKey)
	stderr := cmd.ErrOrStderr()
	enableProgress := output == "table" && !cfg.GetBool(logDebugKey) && isTerminal(stderr)

	// Simple progress callback that prints directly to stderr
	var progressHook func(files, bytes int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		progressHook = func(files, bytes int64) {
			msg := fmt.Sprintf("Scanning… %d files, %s",
				files, humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	ranking, err := dirstat.TopK(cmd.Context(), path, opt, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch output {
	case "json":
		return PrintJSON(ranking, out)
	case "yaml":
		return PrintYAML(ranking, out)
	case "plain":
		return PrintRankingPlain(ranking, out)
	default:
		return PrintRanking(ranking, out)
	}
}

func runUsage(cmd *cobra.Command, cfg *viper.Viper, path string) error {
	opt := options(cmd, cfg)
	opt.IncludeFree = cfg.GetBool(usageFreeKey)

	usage, err := dirstat.Summarize(path, opt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch cfg.GetString(outputKey) {
	case "json":
		return PrintJSON(usage, out)
	case "yaml":
		return PrintYAML(usage, out)
	case "plain":
		return PrintUsagePlain(usage, out)
	default:
		return PrintUsage(usage, cfg.GetFloat64(usageShareKey), out, isTerminal(out))
	}
}
