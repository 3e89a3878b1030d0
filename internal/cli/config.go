package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configBaseName = "dirscan"
	envPrefix      = "DIRSCAN"

	configFlagName  = "config"
	debugFlagName   = "debug"
	logFileFlagName = "log-file"
	extFlagName     = "ext"
	outputFlagName  = "output"
	workersFlagName = "workers"
	topFlagName     = "top"
	freeFlagName    = "free"
	shareFlagName   = "min-share"
	excludeFlagName = "exclude"
	depthFlagName   = "depth"
	minSizeFlagName = "min-size"
	readableFlag    = "skip-unreadable"

	filtersKey       = "filters"
	excludesKey      = "excludes"
	unreadableKey    = "skip_unreadable"
	treeDepthKey     = "tree.depth"
	topDepthKey      = "ranking.depth"
	topMinSizeKey    = "ranking.min_size"
	outputKey        = "output"
	workersKey       = "workers"
	topKey           = "top"
	usageFreeKey     = "usage.free"
	usageShareKey    = "usage.min_share"
	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logDebugKey      = "log.debug"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultOutput        = "table"
	defaultWorkers       = 0
	defaultTop           = 5
	defaultMinShare      = 2.0
	defaultMinSize       = "0KB"
	defaultLogLevel      = "warn"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

// allowedOutputs lists the accepted --output values.
//
//nolint:gochecknoglobals // Config constant
var allowedOutputs = []string{"table", "json", "yaml", "plain"}

// DefaultExcludes contains the default exclusion patterns.
//
//nolint:gochecknoglobals // Config constant
var DefaultExcludes = []string{`.*\.git/.*`, `.*node_modules/.*`}

// newConfig returns a viper instance with defaults and environment lookup.
func newConfig() *viper.Viper {
	cfg := viper.New()

	cfg.SetConfigName(configBaseName)
	cfg.SetConfigType("yaml")
	cfg.AddConfigPath(".")
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(filtersKey, []string{})
	cfg.SetDefault(excludesKey, DefaultExcludes)
	cfg.SetDefault(unreadableKey, false)
	cfg.SetDefault(treeDepthKey, 0)
	cfg.SetDefault(topDepthKey, 0)
	cfg.SetDefault(topMinSizeKey, defaultMinSize)
	cfg.SetDefault(outputKey, defaultOutput)
	cfg.SetDefault(workersKey, defaultWorkers)
	cfg.SetDefault(topKey, defaultTop)
	cfg.SetDefault(usageFreeKey, false)
	cfg.SetDefault(usageShareKey, defaultMinShare)

	// Logging defaults (used by config/env and as fallbacks for flags).
	cfg.SetDefault(logFilenameKey, "")
	cfg.SetDefault(logLevelKey, defaultLogLevel)
	cfg.SetDefault(logDebugKey, false)
	cfg.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	cfg.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	cfg.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	cfg.SetDefault(logCompressKey, defaultLogCompress)

	return cfg
}

// loadConfig reads the config file, if any. A missing default file is not an error,
// a missing explicit one is.
func loadConfig(cfg *viper.Viper, path string) error {
	if path != "" {
		cfg.SetConfigFile(path)
	}

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("reading config: %w", err)
	}

	return nil
}

// bindFlag wires a flag to a config key so config/env values feed it.
func bindFlag(cfg *viper.Viper, flags *pflag.FlagSet, name, key string) {
	flag := flags.Lookup(name)
	if flag == nil {
		panic(fmt.Sprintf("flag %q for config key %q not found", name, key))
	}

	if err := cfg.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func parseLogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// newLogger builds the logger used for diagnostics.
//
// Records go to a rotating log file when log.filename is set and to stderr otherwise.
// Debug mode lowers the level to debug.
func newLogger(cfg *viper.Viper, stderr io.Writer) *slog.Logger {
	level := parseLogLevel(cfg.GetString(logLevelKey), slog.LevelWarn)
	if cfg.GetBool(logDebugKey) {
		level = slog.LevelDebug
	}

	writer := stderr

	if filename := strings.TrimSpace(cfg.GetString(logFilenameKey)); filename != "" {
		writer = &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    cfg.GetInt(logMaxSizeKey),
			MaxBackups: cfg.GetInt(logMaxBackupsKey),
			MaxAge:     cfg.GetInt(logMaxAgeKey),
			Compress:   cfg.GetBool(logCompressKey),
		}
	}

	return slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level}))
}
