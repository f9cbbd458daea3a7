// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/custody/lib/accesslog"
	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/contentstore"
	"github.com/bureau-foundation/custody/lib/custody"
	"github.com/bureau-foundation/custody/lib/ledger"
	"github.com/bureau-foundation/custody/lib/service"
)

// CustodyService binds the custody engine to the service surfaces.
type CustodyService struct {
	engine    *custody.Engine
	accessLog *accesslog.Log
	auth      *service.AuthConfig
	clock     clock.Clock
	startedAt time.Time
	logger    *slog.Logger
}

type serviceConfig struct {
	Store     contentstore.Store
	Ledger    *ledger.Ledger
	AccessLog *accesslog.Log // optional
	Auth      *service.AuthConfig
	Clock     clock.Clock
	Logger    *slog.Logger
}

func newCustodyService(config serviceConfig) (*CustodyService, error) {
	if config.Auth == nil {
		return nil, fmt.Errorf("custody service: Auth is required")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	engineConfig := custody.Config{
		Store:  config.Store,
		Ledger: config.Ledger,
		Clock:  config.Clock,
		Logger: config.Logger,
	}
	// A nil *accesslog.Log stored in the interface would not compare
	// equal to nil inside the engine.
	if config.AccessLog != nil {
		engineConfig.AccessLog = config.AccessLog
	}
	engine, err := custody.New(engineConfig)
	if err != nil {
		return nil, err
	}
	return &CustodyService{
		engine:    engine,
		accessLog: config.AccessLog,
		auth:      config.Auth,
		clock:     config.Clock,
		startedAt: config.Clock.Now(),
		logger:    config.Logger,
	}, nil
}
