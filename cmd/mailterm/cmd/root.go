package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mailterm/internal/model"
)

var (
	cfgFile     string
	storeDriver string
	dbPath      string
	verbose     bool
	cfg         *model.AppConfig
	logger      *slog.Logger
	logCloser   io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "mailterm",
	Short: "Terminal email client",
	Long: `mailterm lists, reads and composes email in the terminal.

Messages are kept in a local SQLite database. Outgoing mail is sent over
SMTP and the inbox can be imported over IMAP when configured; run
"mailterm setup" to configure both.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()

		var err error
		cfg, err = model.LoadConfig(path)
		if err != nil {
			if cmd.Name() != "setup" {
				return fmt.Errorf("load config: %w", err)
			}
			// setup exists to repair the config, so start from defaults.
			cfg = model.DefaultAppConfig()
		}

		if err := applyFlagOverrides(cmd, cfg); err != nil {
			return err
		}

		logger, logCloser, err = setupLogging(cfg.Log, verbose)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		slog.SetDefault(logger)
		logger.Debug("config loaded", "path", path, "store", cfg.Store.Driver)

		return nil
	},
	RunE: runTUI,
}

// Execute runs the root command with a background context.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// closeLog runs as a cobra finalizer, so it also runs when RunE fails.
func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return model.DefaultConfigPath()
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, c *model.AppConfig) error {
	flags := cmd.Flags()
	if flags.Changed("store") {
		c.Store.Driver = storeDriver
	}
	if flags.Changed("db") {
		c.Store.Path = dbPath
		if !flags.Changed("store") {
			c.Store.Driver = model.StoreDriverSQLite
		}
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// setupLogging sends logs to the configured file; the terminal belongs to
// the TUI. An empty file name discards logs.
func setupLogging(lc model.LogConfig, verbose bool) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(lc.Level))); err != nil {
			return nil, nil, fmt.Errorf("log.level %q: %w", lc.Level, err)
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := slog.NewTextHandler(f, opts)
	return slog.New(handler), f, nil
}

func init() {
	cobra.OnFinalize(closeLog)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/mailterm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "message store: sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
