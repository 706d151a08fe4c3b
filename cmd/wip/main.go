// Package main is the entry point for the wip CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"wip/internal/backend/wip"
	"wip/internal/cli"
	"wip/internal/commands"
	"wip/internal/config"
	"wip/internal/credentials"
	"wip/internal/engine"
	"wip/internal/service"
	"wip/internal/store"
	"wip/internal/transport"
	"wip/internal/upload"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newService wires the sync engine to the on-disk store and the remote.
func newService(ctx context.Context, cfg *config.Config) (service.Service, error) {
	logger := slog.Default()

	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	disk := store.Open(cfg.StorePath())

	creds, err := credentials.Load(disk)
	if err != nil {
		return nil, &service.AuthError{Err: fmt.Errorf("load credentials: %w", err)}
	}

	// The settings file (or WIP_DEVELOPMENT) selects the origin.
	if cfg.Settings != nil {
		mode := service.Production
		if cfg.Settings.Development() {
			mode = service.Development
		}
		if creds.Get().Mode != mode {
			if err := creds.SetMode(mode); err != nil {
				return nil, fmt.Errorf("apply endpoint mode: %w", err)
			}
		}
	}

	timeout := config.DefaultRequestTimeout
	if cfg.Settings != nil {
		timeout = cfg.Settings.RequestTimeout()
	}

	gql := transport.New(creds, transport.WithLogger(logger))
	api := wip.New(gql, timeout, logger)
	uploader := upload.New(api,
		upload.WithHTTPClient(gql.HTTPClient()),
		upload.WithLogger(logger),
	)

	return engine.New(api, uploader, creds,
		engine.WithSnapshotStore(disk),
		engine.WithLogger(logger),
		engine.OnSignal(func(s engine.Signal) {
			attrs := []any{"kind", s.Kind.String()}
			if s.Err != nil {
				attrs = append(attrs, "err", s.Err)
				logger.Warn("signal", attrs...)
				return
			}
			logger.Info("signal", attrs...)
		}),
	), nil
}
