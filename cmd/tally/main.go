// Command tally replays a CSV file of client transactions and prints the
// resulting account balances as CSV on stdout.
//
// Usage:
//
//	tally [flags] transactions.csv > accounts.csv
//
// Settings are read from the environment (optionally from a .env file):
// TALLY_LOG_LEVEL, TALLY_CHANNEL_SIZE, TALLY_PLUGIN_TIMEOUT, TALLY_AUDIT and
// TALLY_METRICS. With TALLY_METRICS set, order metrics are collected by an
// in-process OpenTelemetry provider and written to stderr on exit. Without it
// they go to the global provider, which records nothing unless tally is
// embedded in a program that installs one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/xraph/tally"
	audithook "github.com/xraph/tally/audit_hook"
	"github.com/xraph/tally/internal/config"
	"github.com/xraph/tally/observability"
	"github.com/xraph/tally/pipeline"
	"github.com/xraph/tally/store/memory"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "tally:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tally", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "optional dotenv file")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: tally [flags] transactions.csv")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected exactly one CSV file")
	}

	envErr := config.LoadEnv(*envFile)
	settings := config.Load()

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: settings.LogLevel}))
	if envErr != nil {
		logger.Debug("no .env file loaded", "path", *envFile, "error", envErr)
	}

	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("csv file %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("csv file %q is not a regular file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meters := newMeterSetup(settings.Metrics)
	defer func() {
		// reported regardless of TALLY_LOG_LEVEL
		report := slog.New(slog.NewTextHandler(stderr, nil))
		if err := meters.flush(context.Background(), report); err != nil {
			logger.Warn("metrics flush failed", "error", err)
		}
	}()

	opts := []tally.Option{
		tally.WithLogger(logger),
		tally.WithPluginTimeout(settings.PluginTimeout),
		tally.WithPlugin(observability.NewMetricsExtension(
			observability.NewOTelFactory(meters.Meter()),
		)),
	}
	if settings.Audit {
		opts = append(opts, tally.WithPlugin(audithook.New(auditLogger(logger), audithook.WithLogger(logger))))
	}

	manager := tally.New(memory.New(), opts...)
	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := manager.Stop(); err != nil {
			logger.Warn("stop failed", "error", err)
		}
	}()

	logger.Debug("reading transactions", "path", path)

	_, err = pipeline.Run(ctx, manager, f, stdout,
		pipeline.WithLogger(logger),
		pipeline.WithChannelSize(settings.ChannelSize),
	)
	return err
}

// auditLogger writes audit events as structured log lines.
func auditLogger(logger *slog.Logger) audithook.RecorderFunc {
	return func(_ context.Context, evt *audithook.AuditEvent) error {
		logger.Info("audit",
			"id", evt.ID.String(),
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"severity", evt.Severity,
		)
		return nil
	}
}
