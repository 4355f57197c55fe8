// Command splitbook tracks expenses and who owes them from the terminal.
//
// Each invocation loads the stored ledger, runs one command and, when the
// command mutates the ledger, writes the snapshot back before exiting.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"splitbook/internal/backend"
	"splitbook/internal/cli"
	"splitbook/internal/config"
	"splitbook/internal/ledger"
	applog "splitbook/internal/log"
	"splitbook/internal/sheets"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := cli.SetupLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(applog.WithContext(context.Background(), logger))
	code := run(ctx, cfg, logger, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger, args []string) int {
	if len(args) == 0 {
		cli.PrintUsage(os.Stderr)
		return 2
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		return 1
	}

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldBackend, bcfg.Type, applog.FieldError, err)
		return 1
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", applog.FieldError, err)
		}
	}()

	store := ledger.New(res.Snapshots.Load(ctx), res.Persister,
		ledger.WithLogger(logger.WithComponent(applog.ComponentLedger).Logger))

	app := &cli.App{
		Store:       store,
		Snapshots:   res.Snapshots,
		Out:         os.Stdout,
		RecentLimit: cfg.RecentLimit,
	}
	if cfg.SheetsEnabled() {
		app.NewExporter = func(ctx context.Context) (sheets.SnapshotExporter, error) {
			return backend.NewExporter(ctx, bcfg)
		}
	}
	if consumer, ok := res.Publisher.(cli.EventConsumer); ok {
		app.Consumer = consumer
	}

	logger.Debug("Running command", applog.FieldCommand, args[0])

	if err := app.Run(ctx, args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			cli.PrintUsage(os.Stderr)
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
