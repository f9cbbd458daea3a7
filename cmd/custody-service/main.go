// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/custody/lib/accesslog"
	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/config"
	"github.com/bureau-foundation/custody/lib/contentstore"
	"github.com/bureau-foundation/custody/lib/custody"
	"github.com/bureau-foundation/custody/lib/ledger"
	"github.com/bureau-foundation/custody/lib/process"
	"github.com/bureau-foundation/custody/lib/secret"
	"github.com/bureau-foundation/custody/lib/service"
	"github.com/bureau-foundation/custody/lib/servicetoken"
	"github.com/bureau-foundation/custody/lib/version"
	"github.com/bureau-foundation/custody/lib/watchdog"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("custody-service", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to custody.yaml (default: $"+config.EnvVar+")")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("custody-service %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := service.NewLogger(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	custodyService, closeAll, err := openService(ctx, cfg, clock.Real(), logger)
	if err != nil {
		return err
	}
	defer closeAll()

	socketServer := service.NewSocketServer(cfg.Paths.Socket, logger, custodyService.auth)
	socketServer.SetErrorKind(custody.Kind)
	custodyService.registerActions(socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	httpDone := make(chan error, 1)
	if cfg.HTTP.Address != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.HTTP.Address,
			Handler: custodyService.httpHandler(),
			Logger:  logger,
		})
		go func() {
			httpDone <- httpServer.Serve(ctx)
		}()
	} else {
		httpDone <- nil
	}

	logger.Info("custody service running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"socket", cfg.Paths.Socket,
		"http", cfg.HTTP.Address,
		"store", cfg.Store.Backend,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	if err := <-httpDone; err != nil {
		logger.Error("http server error", "error", err)
	}

	checkpoint := custodyService.engine.Checkpoint()
	logger.Info("final ledger checkpoint",
		"root", checkpoint.Root,
		"chains", checkpoint.Chains,
		"events", checkpoint.Events,
	)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService builds every component named by cfg. The returned
// function closes them in reverse order and marks the run as cleanly
// stopped. The journal is sealed only if every component opened.
func openService(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*CustodyService, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*CustodyService, func(), error) {
		closeAll()
		return nil, nil, err
	}

	public, _, generated, err := servicetoken.LoadOrGenerateKeypair(cfg.Paths.State)
	if err != nil {
		return fail(fmt.Errorf("token signing keypair: %w", err))
	}
	if generated {
		logger.Info("generated token signing keypair", "dir", cfg.Paths.State)
	}

	statePath := filepath.Join(cfg.Paths.State, watchdog.FileName)
	previous, found, err := watchdog.Start(statePath, watchdog.State{
		PID:       os.Getpid(),
		Version:   version.Info(),
		StartedAt: clk.Now(),
	})
	if err != nil {
		return fail(fmt.Errorf("run state: %w", err))
	}
	if found && !previous.Clean() {
		logger.Warn("previous run did not stop cleanly",
			"pid", previous.PID,
			"started_at", previous.StartedAt,
		)
	}
	opened := false
	closers = append(closers, func() {
		var seal *watchdog.Seal
		if opened && cfg.Paths.Journal != "" {
			events, err := ledger.ReadJournal(cfg.Paths.Journal)
			if err != nil {
				logger.Error("sealing journal", "error", err)
			} else {
				current := watchdog.SealJournal(events)
				seal = &current
			}
		}
		if err := watchdog.Stop(statePath, clk.Now(), seal); err != nil {
			logger.Error("recording clean stop", "error", err)
		}
	})

	store, closeStore, err := openStore(cfg, clk, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeStore)

	var journal *ledger.Journal
	if cfg.Paths.Journal != "" {
		journal, err = ledger.OpenJournal(cfg.Paths.Journal)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := journal.Close(); err != nil {
				logger.Error("closing journal", "error", err)
			}
		})
		if previous.Journal != nil {
			if err := checkJournalSeal(cfg.Paths.Journal, *previous.Journal, logger); err != nil {
				return fail(err)
			}
		}
	}
	custodyLedger := ledger.New(ledger.Config{Clock: clk, Journal: journal, Logger: logger})

	var accessLog *accesslog.Log
	if cfg.Paths.AccessLog != "" {
		accessLog, err = accesslog.Open(ctx, accesslog.Config{Path: cfg.Paths.AccessLog, Logger: logger})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := accessLog.Close(); err != nil {
				logger.Error("closing access log", "error", err)
			}
		})
	}

	custodyService, err := newCustodyService(serviceConfig{
		Store:     store,
		Ledger:    custodyLedger,
		AccessLog: accessLog,
		Auth: &service.AuthConfig{
			PublicKey: public,
			Audience:  servicetoken.Audience,
			Blacklist: servicetoken.NewBlacklist(),
			Clock:     clk,
		},
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return fail(err)
	}
	opened = true
	return custodyService, closeAll, nil
}

// checkJournalSeal refuses a journal that lost or changed events
// since the last clean stop.
func checkJournalSeal(path string, seal watchdog.Seal, logger *slog.Logger) error {
	events, err := ledger.ReadJournal(path)
	if err != nil {
		return err
	}
	if err := watchdog.VerifySeal(seal, events); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("journal matches last seal",
		"sealed_events", seal.Events,
		"events", len(events),
	)
	return nil
}

// openStore returns the configured content store and a function that
// releases the master key the store borrows.
func openStore(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (contentstore.Store, func(), error) {
	if cfg.Store.Backend == config.BackendMemory {
		logger.Warn("using in-memory evidence store; evidence does not survive restart")
		return contentstore.NewMemoryStore(clk), func() {}, nil
	}

	compression, err := contentstore.ParseCompressionMode(cfg.Store.Compression)
	if err != nil {
		return nil, nil, err
	}

	var masterKey *secret.Buffer
	release := func() {}
	if cfg.Store.EncryptionKeyFile != "" {
		masterKey, err = secret.ReadKeyFile(cfg.Store.EncryptionKeyFile, contentstore.KeySize)
		if err != nil {
			return nil, nil, fmt.Errorf("store encryption key: %w", err)
		}
		release = func() { masterKey.Close() }
	}

	store, err := contentstore.NewFileStore(cfg.Paths.Store, contentstore.FileStoreOptions{
		Clock:       clk,
		Compression: compression,
		MasterKey:   masterKey,
		MaxBlobSize: service.DefaultMaxRequestSize,
		Logger:      logger,
	})
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("opening evidence store: %w", err)
	}
	logger.Info("evidence store ready",
		"root", cfg.Paths.Store,
		"compression", compression,
		"encrypted", store.Encrypted(),
	)
	return store, release, nil
}
