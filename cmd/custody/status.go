// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/custody/cmd/custody/cli"
	"github.com/bureau-foundation/custody/lib/service"
	"github.com/bureau-foundation/custody/lib/tui"
	"github.com/bureau-foundation/custody/lib/version"
)

type statusView struct {
	UptimeSeconds float64             `cbor:"uptime_seconds" json:"uptime_seconds"`
	Build         version.BuildReport `cbor:"build" json:"build"`
}

func statusCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn   connection
		output outputOptions
	)
	return &cli.Command{
		Name:        "status",
		Summary:     "Check that the service is running",
		Description: "Needs no token.",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("status")
			conn.configOptions.addFlags(flagSet)
			flagSet.StringVar(&conn.socketPath, "socket", "", "service socket (default: paths.socket from the config)")
			output.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody status [flags]"); err != nil {
				return err
			}
			socketPath, err := conn.socket()
			if err != nil {
				return err
			}
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			var status statusView
			if err := service.NewServiceClientFromToken(socketPath, nil).Call(callCtx, "status", nil, &status); err != nil {
				return err
			}
			return output.emit(env, status, func(*tui.Renderer) string {
				uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Round(time.Second)
				return fmt.Sprintf("custody-service %s up %s (%s)\n", status.Build.Version, uptime, socketPath)
			})
		},
	}
}
