// Package cli implements the dirscan command-line interface.
package cli

import (
	"fmt"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/dirscan/internal/integration"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().Execute()
}

// Command builds the root command and its subcommands.
func (c CLI) Command() *cobra.Command {
	cfg := newConfig()

	var configPath string

	root := &cobra.Command{
		Use:   "dirscan",
		Short: "Inventory a directory tree and report where the space goes",
		Long: heredoc.Doc(`
			dirscan inventories a directory tree.

			It prints an indented tree annotated with sizes, ranks the largest
			files and directories, and summarizes the space used by the
			immediate children of a path.

			Settings are read from flags, DIRSCAN_* environment variables and
			an optional dirscan.yaml in the current directory, in that order.
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := loadConfig(cfg, configPath); err != nil {
				return err
			}

			output := cfg.GetString(outputKey)
			if !slices.Contains(allowedOutputs, output) {
				return fmt.Errorf("invalid output format %q: must be one of %v", output, allowedOutputs)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, configFlagName, "", "Config file (default ./dirscan.yaml)")
	flags.Bool(debugFlagName, false, "Enable debug logging")
	flags.String(logFileFlagName, "", "Write logs to a rotating file instead of stderr")
	flags.StringSliceP(
		extFlagName,
		"x",
		[]string{},
		"File suffixes to include (e.g., .go,.md). Use '!' prefix to exclude (e.g., !.log,!_test.go)",
	)
	flags.StringP(outputFlagName, "o", defaultOutput, fmt.Sprintf("Output format: one of %v", allowedOutputs))
	flags.StringSliceP(excludeFlagName, "e", DefaultExcludes, "Regex patterns to exclude")
	flags.Bool(readableFlag, false, "Leave out entries the current user cannot open (top, usage)")

	bindFlag(cfg, flags, debugFlagName, logDebugKey)
	bindFlag(cfg, flags, logFileFlagName, logFilenameKey)
	bindFlag(cfg, flags, extFlagName, filtersKey)
	bindFlag(cfg, flags, outputFlagName, outputKey)
	bindFlag(cfg, flags, excludeFlagName, excludesKey)
	bindFlag(cfg, flags, readableFlag, unreadableKey)

	root.AddCommand(
		treeCommand(cfg),
		topCommand(cfg),
		usageCommand(cfg),
		initCommand(),
		c.versionCommand(),
	)

	return root
}

func treeCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Print the directory tree with sizes",
		Long: heredoc.Doc(`
			Print the tree below path (default: current directory), four spaces
			per level, with file sizes.

			Symbolic links are followed once: a link to something already
			listed is shown as [SYMLINK] and not descended into. Directories
			that cannot be read are shown as [ACCESS DENIED].
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, cfg, pathArg(args))
		},
	}

	cmd.Flags().IntP(workersFlagName, "w", defaultWorkers, "Concurrent subtree workers (0 = number of CPUs, 1 = sequential)")
	cmd.Flags().IntP(depthFlagName, "d", 0, "Maximum listing depth (0=unlimited)")
	bindFlag(cfg, cmd.Flags(), workersFlagName, workersKey)
	bindFlag(cfg, cmd.Flags(), depthFlagName, treeDepthKey)

	return cmd
}

func topCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top [path]",
		Short: "List the largest files and directories",
		Long: heredoc.Doc(`
			Walk the tree below path (default: current directory) and list its
			largest files and directories.

			Directories are ranked by the files directly inside them, not by
			their whole subtree. Entries smaller than --min-size (e.g. 10KB,
			1.5MiB) are not ranked.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop(cmd, cfg, pathArg(args))
		},
	}

	cmd.Flags().IntP(topFlagName, "t", defaultTop, "Number of items to display")
	cmd.Flags().IntP(depthFlagName, "d", 0, "Maximum traversal depth (0=unlimited)")
	cmd.Flags().String(minSizeFlagName, defaultMinSize, "Minimum size of a ranked item (e.g., 1KB)")
	bindFlag(cfg, cmd.Flags(), topFlagName, topKey)
	bindFlag(cfg, cmd.Flags(), depthFlagName, topDepthKey)
	bindFlag(cfg, cmd.Flags(), minSizeFlagName, topMinSizeKey)

	return cmd
}

func usageCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage [path]",
		Short: "Summarize the space used by the entries of a directory",
		Long: heredoc.Doc(`
			Show the share of each immediate entry of path (default: current
			directory). Subdirectories count with the files directly inside
			them. Symbolic links are ignored.

			Entries below --min-share percent are folded into "other".
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsage(cmd, cfg, pathArg(args))
		},
	}

	cmd.Flags().Bool(freeFlagName, false, "Add the free space of the filesystem as an entry")
	cmd.Flags().Float64(shareFlagName, defaultMinShare, "Fold entries below this percentage into \"other\"")
	bindFlag(cfg, cmd.Flags(), freeFlagName, usageFreeKey)
	bindFlag(cfg, cmd.Flags(), shareFlagName, usageShareKey)

	return cmd
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Output init script for shell usage",
		Long: heredoc.Doc(`
			Print a zsh function that pipes "dirscan top" into fzf and changes
			into the selected directory. Load it with:

				eval "$(dirscan init)"
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rendered, err := integration.Render()
			if err != nil {
				return fmt.Errorf("rendering integration script: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)

			return err
		},
	}
}

func (c CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), c.version)

			return err
		},
	}
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return "."
	}

	return args[0]
}
