// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/custody/cmd/custody/cli"
	"github.com/bureau-foundation/custody/lib/contentstore"
	"github.com/bureau-foundation/custody/lib/sealed"
	"github.com/bureau-foundation/custody/lib/secret"
)

func keygenCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate key material",
		Subcommands: []*cli.Command{
			keygenStoreCommand(env),
			keygenAgeCommand(env),
		},
	}
}

func keygenStoreCommand(env *environment) *cli.Command {
	var outPath string
	return &cli.Command{
		Name:        "store",
		Summary:     "Generate a content store master key",
		Description: "Writes a random key as hex, for store.encryption_key_file.",
		Usage:       "custody keygen store --out <file>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("store")
			flagSet.StringVar(&outPath, "out", "", "key file to create (required, must not exist)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody keygen store --out <file>"); err != nil {
				return err
			}
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			key, err := secret.New(contentstore.KeySize)
			if err != nil {
				return err
			}
			defer key.Close()
			if _, err := rand.Read(key.Bytes()); err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			encoded := make([]byte, hex.EncodedLen(key.Len())+1)
			defer secret.Zero(encoded)
			hex.Encode(encoded, key.Bytes())
			encoded[len(encoded)-1] = '\n'
			if err := writeNewSecretFile(outPath, encoded); err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "wrote %d-byte store key to %s\n", contentstore.KeySize, outPath)
			return nil
		},
	}
}

func keygenAgeCommand(env *environment) *cli.Command {
	var outPath string
	return &cli.Command{
		Name:    "age",
		Summary: "Generate an age identity for receiving exports",
		Description: "Writes the AGE-SECRET-KEY to --out and prints the public key to pass\n" +
			"as --recipient to 'custody export create'.",
		Usage: "custody keygen age --out <file>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("age")
			flagSet.StringVar(&outPath, "out", "", "identity file to create (required, must not exist)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody keygen age --out <file>"); err != nil {
				return err
			}
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()
			contents := append([]byte(nil), keypair.PrivateKey.Bytes()...)
			contents = append(contents, '\n')
			defer secret.Zero(contents)
			if err := writeNewSecretFile(outPath, contents); err != nil {
				return err
			}
			fmt.Fprintln(env.stdout, keypair.PublicKey)
			return nil
		},
	}
}

// writeNewSecretFile creates path with mode 0600, refusing to replace
// an existing file.
func writeNewSecretFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
