// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/custody/cmd/custody/cli"
	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/ledger"
	"github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/tui"
	"github.com/bureau-foundation/custody/lib/watchdog"
)

func journalCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "journal",
		Summary: "Inspect the ledger journal offline",
		Description: "Read the append-only journal written by custody-service. The journal\n" +
			"is read without the writer's lock, so these commands work on a live service.",
		Subcommands: []*cli.Command{
			journalVerifyCommand(env),
			journalDumpCommand(env),
		},
	}
}

// journalOptions resolves the journal path from --journal or the config.
type journalOptions struct {
	configOptions
	path string
}

func (o *journalOptions) addFlags(flagSet *pflag.FlagSet) {
	o.configOptions.addFlags(flagSet)
	flagSet.StringVar(&o.path, "journal", "", "journal file (default: paths.journal from the config)")
}

func (o *journalOptions) read() ([]custody.LedgerEvent, string, error) {
	path := o.path
	if path == "" {
		cfg, err := o.load()
		if err != nil {
			return nil, "", fmt.Errorf("%w (or pass --journal)", err)
		}
		if cfg.Paths.Journal == "" {
			return nil, "", fmt.Errorf("paths.journal is not configured")
		}
		path = cfg.Paths.Journal
	}
	events, err := ledger.ReadJournal(path)
	return events, path, err
}

// seal returns the journal seal from the last clean service stop. It
// applies only when the journal path came from the config.
func (o *journalOptions) seal() (*watchdog.Seal, error) {
	if o.path != "" {
		return nil, nil
	}
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	state, err := watchdog.Read(filepath.Join(cfg.Paths.State, watchdog.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state.Journal, nil
}

func journalVerifyCommand(env *environment) *cli.Command {
	var options journalOptions
	return &cli.Command{
		Name:        "verify",
		Summary:     "Check every hash chain in the journal",
		Description: "Recomputes each event hash and checks the prev_hash links. When the journal comes from\n" +
			"the config, also checks it against the seal custody-service wrote at its last clean stop.\n" +
			"Exits 2 if a chain is broken or the seal does not match.",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("verify")
			options.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody journal verify [flags]"); err != nil {
				return err
			}
			events, path, err := options.read()
			if err != nil {
				return err
			}
			if err := ledger.VerifyEvents(events); err != nil {
				fmt.Fprintf(env.stdout, "%s: %v\n", path, err)
				return &cli.ExitError{Code: exitMismatch}
			}
			seal, err := options.seal()
			if err != nil {
				return err
			}
			if seal != nil {
				if err := watchdog.VerifySeal(*seal, events); err != nil {
					fmt.Fprintf(env.stdout, "%s: %v\n", path, err)
					return &cli.ExitError{Code: exitMismatch}
				}
			}
			checkpoint := ledger.CheckpointEvents(events, env.now())
			fmt.Fprintf(env.stdout, "%s: %d events in %d chains, all intact\n", path, checkpoint.Events, checkpoint.Chains)
			fmt.Fprintf(env.stdout, "root %s\n", checkpoint.Root)
			if seal != nil {
				fmt.Fprintf(env.stdout, "matches the seal of %d events from the last clean stop\n", seal.Events)
			}
			return nil
		},
	}
}

func journalDumpCommand(env *environment) *cli.Command {
	var (
		options    journalOptions
		output     outputOptions
		diagnostic bool
	)
	return &cli.Command{
		Name:    "dump",
		Summary: "Print journal events",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("dump")
			options.addFlags(flagSet)
			output.addFlags(flagSet)
			flagSet.BoolVar(&diagnostic, "cbor", false, "print each record in CBOR diagnostic notation")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody journal dump [flags]"); err != nil {
				return err
			}
			events, _, err := options.read()
			if err != nil {
				return err
			}
			if !diagnostic {
				return output.emit(env, events, func(*tui.Renderer) string { return eventLines(events) })
			}
			for _, event := range events {
				data, err := codec.Marshal(event)
				if err != nil {
					return err
				}
				notation, err := codec.Diagnose(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(env.stdout, notation)
			}
			return nil
		},
	}
}
