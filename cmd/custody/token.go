// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/custody/cmd/custody/cli"
	"github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/service"
	"github.com/bureau-foundation/custody/lib/servicetoken"
	"github.com/bureau-foundation/custody/lib/tui"
)

func tokenCommand(ctx context.Context, env *environment) *cli.Command {
	return &cli.Command{
		Name:    "token",
		Summary: "Mint, inspect, and revoke service tokens",
		Description: "Tokens are signed with the service keypair in paths.state. Minting and\n" +
			"inspecting work offline; revocation is sent to the running service.",
		Subcommands: []*cli.Command{
			tokenMintCommand(env),
			tokenInspectCommand(env),
			tokenRevokeCommand(ctx, env),
		},
	}
}

func tokenMintCommand(env *environment) *cli.Command {
	var (
		config  configOptions
		role    string
		name    string
		subject string
		ttl     time.Duration
		outPath string
	)
	return &cli.Command{
		Name:    "mint",
		Summary: "Mint a token for one actor",
		Usage:   "custody token mint --role <role> --name <name> --subject <id> --out <file> [flags]",
		Examples: []cli.Example{{
			Description: "Mint a token for a field officer",
			Command:     "custody token mint --role police --name 'Officer Chen' --subject badge-4471 --out chen.token",
		}},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("mint")
			config.addFlags(flagSet)
			flagSet.StringVar(&role, "role", "", "actor role (required)")
			flagSet.StringVar(&name, "name", "", "display name recorded in the ledger (required)")
			flagSet.StringVar(&subject, "subject", "", "stable actor id such as a badge number (required)")
			flagSet.DurationVar(&ttl, "ttl", 0, "token lifetime (default: tokens.ttl from the config)")
			flagSet.StringVar(&outPath, "out", "", "write the token here instead of stdout")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody token mint [flags]"); err != nil {
				return err
			}
			parsedRole, err := custody.ParseRole(role)
			if err != nil {
				return fmt.Errorf("--role: %w", err)
			}
			cfg, err := config.load()
			if err != nil {
				return err
			}
			if ttl == 0 {
				if ttl, err = cfg.TokenTTL(); err != nil {
					return err
				}
			}
			_, privateKey, err := servicetoken.LoadKeypair(cfg.Paths.State)
			if err != nil {
				return err
			}
			token, tokenBytes, err := servicetoken.Issue(privateKey, servicetoken.Claims{
				Subject: subject,
				Role:    parsedRole,
				Name:    name,
			}, ttl, env.now())
			if err != nil {
				return err
			}
			encoded := servicetoken.EncodeString(tokenBytes) + "\n"
			if outPath == "" {
				_, err = fmt.Fprint(env.stdout, encoded)
				return err
			}
			if err := os.WriteFile(outPath, []byte(encoded), 0o600); err != nil {
				return fmt.Errorf("writing token: %w", err)
			}
			fmt.Fprintf(env.stderr, "token %s for %s expires %s\n", token.ID, token.Actor(), token.Expires().Format(time.RFC3339))
			return nil
		},
	}
}

// tokenView is the printable form of a decoded token.
type tokenView struct {
	ID        string       `json:"id"`
	Subject   string       `json:"subject"`
	Role      custody.Role `json:"role"`
	Name      string       `json:"name"`
	Audience  string       `json:"audience"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	Expired   bool         `json:"expired"`
}

func tokenInspectCommand(env *environment) *cli.Command {
	var (
		config configOptions
		output outputOptions
	)
	return &cli.Command{
		Name:        "inspect",
		Summary:     "Verify a token's signature and print its claims",
		Description: "Verifies against the public key in paths.state. An expired token is still printed.",
		Usage:       "custody token inspect [flags] <token-file>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("inspect")
			config.addFlags(flagSet)
			output.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody token inspect [flags] <token-file>"); err != nil {
				return err
			}
			token, err := readVerifiedToken(config, args[0])
			if err != nil {
				return err
			}
			view := tokenView{
				ID:        token.ID,
				Subject:   token.Subject,
				Role:      token.Role,
				Name:      token.Name,
				Audience:  token.Audience,
				IssuedAt:  time.Unix(token.IssuedAt, 0).UTC(),
				ExpiresAt: token.Expires(),
				Expired:   !env.now().Before(token.Expires()),
			}
			return output.emit(env, view, func(r *tui.Renderer) string {
				rows := [][]tui.Cell{
					{{Text: "id"}, {Text: view.ID}},
					{{Text: "subject"}, {Text: view.Subject}},
					{{Text: "role"}, {Text: string(view.Role)}},
					{{Text: "name"}, {Text: view.Name}},
					{{Text: "audience"}, {Text: view.Audience}},
					{{Text: "issued"}, {Text: view.IssuedAt.Format(time.RFC3339)}},
					{{Text: "expires"}, {Text: view.ExpiresAt.Format(time.RFC3339)}},
				}
				if view.Expired {
					rows = append(rows, []tui.Cell{{Text: "state"}, {Text: "expired", Color: tui.DefaultTheme.IntegrityAlert}})
				}
				return r.Table([]string{"CLAIM", "VALUE"}, rows)
			})
		},
	}
}

func tokenRevokeCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn   connection
		reason string
	)
	return &cli.Command{
		Name:        "revoke",
		Summary:     "Revoke tokens on the running service",
		Description: "Signs a revocation for each token file with the service key and sends it to the service.",
		Usage:       "custody token revoke --reason <text> [flags] <token-file>...",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("revoke")
			conn.configOptions.addFlags(flagSet)
			flagSet.StringVar(&conn.socketPath, "socket", "", "service socket (default: paths.socket from the config)")
			flagSet.StringVar(&reason, "reason", "", "why the tokens are revoked")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: custody token revoke [flags] <token-file>...")
			}
			cfg, err := conn.load()
			if err != nil {
				return err
			}
			_, privateKey, err := servicetoken.LoadKeypair(cfg.Paths.State)
			if err != nil {
				return err
			}
			tokens := make([]*servicetoken.Token, 0, len(args))
			for _, path := range args {
				token, err := readVerifiedToken(conn.configOptions, path)
				if err != nil {
					return err
				}
				tokens = append(tokens, token)
			}
			signed, err := servicetoken.SignRevocation(privateKey,
				servicetoken.RevocationFor(reason, env.now().Unix(), tokens...))
			if err != nil {
				return err
			}

			socketPath := conn.socketPath
			if socketPath == "" {
				socketPath = cfg.Paths.Socket
			}
			client := service.NewServiceClientFromToken(socketPath, nil)
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			var response struct {
				Revoked int `cbor:"revoked"`
			}
			if err := client.Call(callCtx, "revoke-tokens", map[string]any{"revocation": signed}, &response); err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "revoked %d token(s)\n", response.Revoked)
			return nil
		},
	}
}

// readVerifiedToken reads a token file and checks its signature and
// audience. Expiry is not checked.
func readVerifiedToken(config configOptions, path string) (*servicetoken.Token, error) {
	cfg, err := config.load()
	if err != nil {
		return nil, err
	}
	publicKey, err := servicetoken.LoadPublicKey(cfg.Paths.State)
	if err != nil {
		return nil, err
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	tokenBytes, err := servicetoken.DecodeString(string(contents))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Verifying at the epoch skips the expiry check.
	token, err := servicetoken.VerifyForServiceAt(publicKey, tokenBytes, servicetoken.Audience, time.Unix(0, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return token, nil
}
