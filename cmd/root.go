// Package cmd provides CLI commands for saftools.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/saftools/checksum"
	"github.com/lehigh-university-libraries/saftools/config"
	"github.com/lehigh-university-libraries/saftools/console"
	"github.com/lehigh-university-libraries/saftools/report"
	"github.com/lehigh-university-libraries/saftools/version"
)

var (
	configFile   string
	logDir       string
	reportFile   string
	silent       bool
	showProgress bool
	noColor      bool
)

var (
	cfg     = &config.Config{}
	printer = console.New(console.Normal, true)
	logFile *os.File
)

func logLevel() slog.Level {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "INFO"
	}

	switch logLevel {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// stderr receives the console log lines.
var stderr io.Writer = os.Stderr

// consoleLevel is the least severe level logged to the console. Silent and
// progress output keep the console for errors and the counter line.
func consoleLevel(mode console.Mode) slog.Level {
	level := logLevel()
	switch mode {
	case console.Silent:
		level = max(level, slog.LevelError)
	case console.Progress:
		level = max(level, slog.LevelWarn)
	}
	return level
}

// setupLogger logs to stderr and, when dir is set, also to a per-run file
// named after the command. The file always gets the LOG_LEVEL level.
func setupLogger(command, dir string, mode console.Mode) error {
	closeLog()

	opts := &slog.HandlerOptions{
		Level: consoleLevel(mode),
	}
	var handler slog.Handler = slog.NewTextHandler(stderr, opts)

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		name := fmt.Sprintf("%s-%s.log", command, time.Now().UTC().Format("20060102T150405Z"))
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("log directory %s is not writable: %w", dir, err)
		}
		logFile = f
		handler = fanout{handler, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel()})}
	}

	logger := slog.New(handler)

	slog.SetDefault(logger)
	return nil
}

// fanout passes each record to every handler enabled for its level.
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, next := range h {
		if next.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, next := range h {
		if !next.Enabled(ctx, r.Level) {
			continue
		}
		if err := next.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(h))
	for i, next := range h {
		out[i] = next.WithAttrs(attrs)
	}
	return out
}

func (h fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(h))
	for i, next := range h {
		out[i] = next.WithGroup(name)
	}
	return out
}

func closeLog() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "saftools",
	Short: "Maintain DSpace Simple Archive Format trees",
	Long: `saftools checks and repairs DSpace Simple Archive Format (SAF) trees
before they are imported.

A source directory holds one item per subdirectory, each with a contents
manifest and a dublin_core.xml metadata file.

Examples:
  saftools find ./export --write-dir ./checksums
  saftools remove ./export --write-dir ./checksums --strip-contents
  saftools dedupe ./export --dry-run
  saftools rename ./export mapping.csv --validate both
  saftools batch ./export --size 250`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// setup loads the config and prepares logging and console output.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	mode := console.Normal
	switch {
	case silent:
		mode = console.Silent
	case showProgress:
		mode = console.Progress
	}

	dir := stringFlag(cmd, "log-dir", logDir, cfg.LogDir)
	if err := setupLogger(cmd.Name(), dir, mode); err != nil {
		return err
	}

	useColor := !noColor
	if !cmd.Flags().Changed("no-color") && cfg.Color != nil {
		useColor = *cfg.Color
	}
	printer = console.New(mode, useColor)
	printer.Err = stderr
	return nil
}

// stringFlag returns the flag value unless it was left unset and the config
// supplies one.
func stringFlag(cmd *cobra.Command, name, value, fromConfig string) string {
	if !cmd.Flags().Changed(name) && fromConfig != "" {
		return fromConfig
	}
	return value
}

func algorithm(cmd *cobra.Command, name string) (checksum.Algorithm, error) {
	return checksum.Get(stringFlag(cmd, "checksum", name, cfg.Checksum))
}

// finish prints the summary, writes the JSON report when asked and passes
// the run error through.
func finish(summary *report.Summary, runErr error) error {
	if summary == nil {
		return runErr
	}
	printer.Summary(summary.Text(), len(summary.Errors()) > 0)
	switch {
	case errors.Is(runErr, report.ErrItemsFailed):
		printer.Error("%s: %d item(s) failed", summary.Command, len(summary.Errors()))
	case runErr == nil:
		printer.Success("%s finished", summary.Command)
	}
	if reportFile != "" {
		if err := summary.WriteJSON(reportFile); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		slog.Debug("report written", "path", reportFile)
	}
	return runErr
}

// Execute runs the root command.
func Execute() {
	err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version.GetFullVersion()))
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	_ = setupLogger("", "", console.Normal)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default: $"+config.EnvVar+")")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write the log to a file in this directory")
	rootCmd.PersistentFlags().StringVar(&reportFile, "report", "", "Write the run summary as JSON to this file")
	rootCmd.PersistentFlags().BoolVarP(&silent, "silent", "s", false, "Print errors only")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", false, "Show a progress counter instead of per-item output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")
	rootCmd.MarkFlagsMutuallyExclusive("silent", "progress")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(removeDuplicatesCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)
}
