// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/custody/cmd/custody/cli"
	"github.com/bureau-foundation/custody/lib/config"
	"github.com/bureau-foundation/custody/lib/service"
	"github.com/bureau-foundation/custody/lib/tui"
	"github.com/bureau-foundation/custody/lib/version"
)

// TokenFileEnvVar names the default token file for evidence commands.
const TokenFileEnvVar = "CUSTODY_TOKEN_FILE"

// callTimeout bounds one socket call.
const callTimeout = 2 * time.Minute

// environment is what commands read and write outside their flags.
// Tests replace its fields.
type environment struct {
	stdout   io.Writer
	stderr   io.Writer
	getenv   func(string) string
	now      func() time.Time
	terminal bool
}

func newEnvironment() *environment {
	return &environment{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		getenv:   os.Getenv,
		now:      time.Now,
		terminal: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (e *environment) renderer() *tui.Renderer {
	return tui.NewRenderer(tui.DefaultTheme, e.terminal)
}

func root(ctx context.Context, env *environment) *cli.Command {
	return &cli.Command{
		Name:        "custody",
		Summary:     "Evidence chain-of-custody operations",
		Description: "Register evidence, move custody between holders, verify integrity, and audit the ledger.",
		Output:      env.stderr,
		Subcommands: []*cli.Command{
			registerCommand(ctx, env),
			showCommand(ctx, env),
			listCommand(ctx, env),
			searchCommand(ctx, env),
			transferCommand(ctx, env),
			verifyCommand(ctx, env),
			historyCommand(ctx, env),
			auditCommand(ctx, env),
			txCommand(ctx, env),
			exportCommand(ctx, env),
			tokenCommand(ctx, env),
			journalCommand(env),
			keygenCommand(env),
			statusCommand(ctx, env),
			versionCommand(env),
		},
	}
}

// configOptions locates the service configuration.
type configOptions struct {
	path string
}

func (o *configOptions) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.path, "config", "", "path to custody.yaml (default: $"+config.EnvVar+")")
}

func (o *configOptions) load() (*config.Config, error) {
	if o.path != "" {
		return config.LoadFile(o.path)
	}
	return config.Load()
}

// connection is how evidence commands reach the service.
type connection struct {
	configOptions
	socketPath string
	tokenFile  string
}

func (c *connection) addFlags(flagSet *pflag.FlagSet) {
	c.configOptions.addFlags(flagSet)
	flagSet.StringVar(&c.socketPath, "socket", "", "service socket (default: paths.socket from the config)")
	flagSet.StringVar(&c.tokenFile, "token-file", "", "token file from 'custody token mint' (default: $"+TokenFileEnvVar+")")
}

func (c *connection) socket() (string, error) {
	if c.socketPath != "" {
		return c.socketPath, nil
	}
	cfg, err := c.load()
	if err != nil {
		return "", fmt.Errorf("%w (or pass --socket)", err)
	}
	return cfg.Paths.Socket, nil
}

// client returns an authenticated client.
func (c *connection) client(env *environment) (*service.ServiceClient, error) {
	socketPath, err := c.socket()
	if err != nil {
		return nil, err
	}
	tokenFile := c.tokenFile
	if tokenFile == "" {
		tokenFile = env.getenv(TokenFileEnvVar)
	}
	if tokenFile == "" {
		return nil, fmt.Errorf("no token: pass --token-file or set %s", TokenFileEnvVar)
	}
	return service.NewServiceClient(socketPath, tokenFile)
}

// call runs one action with a bounded deadline.
func (c *connection) call(ctx context.Context, env *environment, action string, fields map[string]any, result any) error {
	client, err := c.client(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return client.Call(ctx, action, fields, result)
}

// outputOptions selects JSON or rendered text.
type outputOptions struct {
	json bool
}

func (o *outputOptions) addFlags(flagSet *pflag.FlagSet) {
	flagSet.BoolVar(&o.json, "json", false, "output as JSON")
}

// emit writes value as JSON with --json, else the text from render.
func (o *outputOptions) emit(env *environment, value any, render func(*tui.Renderer) string) error {
	if o.json {
		return cli.WriteJSON(env.stdout, value)
	}
	_, err := io.WriteString(env.stdout, render(env.renderer()))
	return err
}

func versionCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			fmt.Fprintf(env.stdout, "custody %s\n", version.Full())
			return nil
		},
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func requireArgs(args []string, count int, usage string) error {
	if len(args) != count {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
