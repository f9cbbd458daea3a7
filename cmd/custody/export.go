// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/custody/cmd/custody/cli"
	custodyengine "github.com/bureau-foundation/custody/lib/custody"
	"github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/sealed"
	"github.com/bureau-foundation/custody/lib/secret"
	"github.com/bureau-foundation/custody/lib/tui"
)

func exportCommand(ctx context.Context, env *environment) *cli.Command {
	return &cli.Command{
		Name:    "export",
		Summary: "Create and open sealed evidence exports",
		Subcommands: []*cli.Command{
			exportCreateCommand(ctx, env),
			exportOpenCommand(env),
		},
	}
}

func exportCreateCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn       connection
		recipients []string
		purpose    string
		outPath    string
	)
	return &cli.Command{
		Name:    "create",
		Summary: "Export a sealed copy of an evidence item",
		Description: "Seal the evidence bytes, record, and ledger events to one or more age recipients.\n" +
			"The export is recorded in the ledger as an access by the current custodian.",
		Usage: "custody export create --recipient <age1...> --purpose <text> --out <file> [flags] <evidence-id>",
		Examples: []cli.Example{{
			Description: "Export for the defense expert",
			Command:     "custody export create --recipient age1... --purpose 'Defense discovery' --out photo.age EVD-0A1B2C3D",
		}},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("create")
			conn.addFlags(flagSet)
			flagSet.StringArrayVar(&recipients, "recipient", nil, "age public key of a recipient (repeatable)")
			flagSet.StringVar(&purpose, "purpose", "", "why the evidence leaves custody (required)")
			flagSet.StringVar(&outPath, "out", "", "where to write the sealed bundle (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody export create [flags] <evidence-id>"); err != nil {
				return err
			}
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			var result custody.ExportResult
			err := conn.call(ctx, env, "export", map[string]any{
				"id":         args[0],
				"recipients": recipients,
				"purpose":    purpose,
			}, &result)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, result.Bundle, 0o600); err != nil {
				return fmt.Errorf("writing export bundle: %w", err)
			}
			fmt.Fprintf(env.stdout, "exported %s to %s (%d bytes, tx %s)\n", result.EvidenceID, outPath, len(result.Bundle), result.TxRef)
			return nil
		},
	}
}

// exportOpenCommand decrypts a bundle offline. It does not contact the
// service.
func exportOpenCommand(env *environment) *cli.Command {
	var (
		output   outputOptions
		identity string
		contents string
	)
	return &cli.Command{
		Name:    "open",
		Summary: "Decrypt an export bundle with an age identity",
		Usage:   "custody export open --identity <file> [flags] <bundle>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("open")
			output.addFlags(flagSet)
			flagSet.StringVar(&identity, "identity", "", "file holding the AGE-SECRET-KEY (required)")
			flagSet.StringVar(&contents, "contents", "", "also write the evidence bytes to this file")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody export open --identity <file> <bundle>"); err != nil {
				return err
			}
			if identity == "" {
				return fmt.Errorf("--identity is required")
			}
			sealedBundle, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading bundle: %w", err)
			}
			privateKey, err := secret.ReadFromPath(identity)
			if err != nil {
				return fmt.Errorf("reading identity: %w", err)
			}
			keypair := &sealed.Keypair{PrivateKey: privateKey}
			defer keypair.Close()

			bundle, err := custodyengine.OpenExport(sealedBundle, keypair)
			if err != nil {
				return err
			}
			if contents != "" {
				if err := os.WriteFile(contents, bundle.Content, 0o600); err != nil {
					return fmt.Errorf("writing evidence bytes: %w", err)
				}
			}
			return output.emit(env, bundle, func(r *tui.Renderer) string {
				return r.Evidence(bundle.Evidence) +
					fmt.Sprintf("\nPurpose: %s\n%d bytes, %d ledger events\n", bundle.Purpose, len(bundle.Content), len(bundle.Events)) +
					eventLines(bundle.Events)
			})
		},
	}
}
