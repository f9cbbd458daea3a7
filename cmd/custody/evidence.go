// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/custody/cmd/custody/cli"
	"github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/tui"
)

// Exit codes of "custody verify" beyond 0 and 1.
const (
	exitMismatch           = 2
	exitStorageUnavailable = 3
)

func registerCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn         connection
		output       outputOptions
		caseID       string
		evidenceType string
		description  string
		notes        string
		filename     string
	)
	return &cli.Command{
		Name:    "register",
		Summary: "Register a new evidence file",
		Usage:   "custody register --case <id> --type <type> --description <text> [flags] <file>",
		Examples: []cli.Example{{
			Description: "Register a scene photo",
			Command:     "custody register --case CASE-2026-114 --type photo --description 'Front door' door.jpg",
		}},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("register")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			flagSet.StringVar(&caseID, "case", "", "case identifier (required)")
			flagSet.StringVar(&evidenceType, "type", "", "evidence type, e.g. photo or document (required)")
			flagSet.StringVar(&description, "description", "", "what the evidence is (required)")
			flagSet.StringVar(&notes, "notes", "", "free-form notes")
			flagSet.StringVar(&filename, "filename", "", "original file name to record (default: base name of <file>)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody register [flags] <file>"); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading evidence file: %w", err)
			}
			if filename == "" {
				filename = filepath.Base(args[0])
			}
			var evidence custody.Evidence
			err = conn.call(ctx, env, "register", map[string]any{
				"data":              data,
				"original_filename": filename,
				"case_id":           caseID,
				"evidence_type":     evidenceType,
				"description":       description,
				"notes":             notes,
			}, &evidence)
			if err != nil {
				return err
			}
			return output.emit(env, evidence, func(r *tui.Renderer) string { return r.Evidence(evidence) })
		},
	}
}

func showCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn   connection
		output outputOptions
	)
	return &cli.Command{
		Name:        "show",
		Summary:     "Show an evidence record",
		Description: "Show the full evidence record. Every show is recorded in the ledger as an access.",
		Usage:       "custody show [flags] <evidence-id>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("show")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody show [flags] <evidence-id>"); err != nil {
				return err
			}
			var result custody.AccessResult
			if err := conn.call(ctx, env, "show", map[string]any{"id": args[0]}, &result); err != nil {
				return err
			}
			return output.emit(env, result, func(r *tui.Renderer) string { return r.Evidence(result.Evidence) })
		},
	}
}

func listCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn      connection
		output    outputOptions
		caseID    string
		custodian string
		status    string
	)
	return &cli.Command{
		Name:    "list",
		Summary: "List evidence",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("list")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			flagSet.StringVar(&caseID, "case", "", "only this case")
			flagSet.StringVar(&custodian, "custodian", "", "only evidence held by this role")
			flagSet.StringVar(&status, "status", "", "only evidence in this status")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody list [flags]"); err != nil {
				return err
			}
			fields := map[string]any{}
			if caseID != "" {
				fields["case_id"] = caseID
			}
			if custodian != "" {
				role, err := custody.ParseRole(custodian)
				if err != nil {
					return err
				}
				fields["custodian"] = role
			}
			if status != "" {
				parsed, err := custody.ParseStatus(status)
				if err != nil {
					return err
				}
				fields["status"] = parsed
			}
			var summaries []custody.Summary
			if err := conn.call(ctx, env, "list", fields, &summaries); err != nil {
				return err
			}
			return output.emit(env, summaries, func(r *tui.Renderer) string { return r.EvidenceList(summaries) })
		},
	}
}

func transferCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn   connection
		output outputOptions
		toRole string
		toName string
		reason string
		notes  string
	)
	return &cli.Command{
		Name:    "transfer",
		Summary: "Transfer custody to another holder",
		Usage:   "custody transfer --to-role <role> --to-name <name> --reason <text> [flags] <evidence-id>",
		Examples: []cli.Example{{
			Description: "Hand a photo to the lab",
			Command:     "custody transfer --to-role forensic_lab --to-name 'Dr. Okafor' --reason 'Fingerprint analysis' EVD-0A1B2C3D",
		}},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("transfer")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			flagSet.StringVar(&toRole, "to-role", "", "recipient role (required)")
			flagSet.StringVar(&toName, "to-name", "", "recipient name (required)")
			flagSet.StringVar(&reason, "reason", "", "why custody moves (required)")
			flagSet.StringVar(&notes, "notes", "", "free-form notes")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody transfer [flags] <evidence-id>"); err != nil {
				return err
			}
			role, err := custody.ParseRole(toRole)
			if err != nil {
				return fmt.Errorf("--to-role: %w", err)
			}
			var evidence custody.Evidence
			err = conn.call(ctx, env, "transfer", map[string]any{
				"id":      args[0],
				"to_role": role,
				"to_name": toName,
				"reason":  reason,
				"notes":   notes,
			}, &evidence)
			if err != nil {
				return err
			}
			return output.emit(env, evidence, func(r *tui.Renderer) string { return r.Evidence(evidence) })
		},
	}
}

func verifyCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn   connection
		output outputOptions
	)
	return &cli.Command{
		Name:    "verify",
		Summary: "Verify evidence integrity",
		Description: "Recompute the evidence hash and compare it with the hash recorded at registration.\n\n" +
			"Exits 2 on a mismatch and 3 when the stored file cannot be read.",
		Usage: "custody verify [flags] <evidence-id>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("verify")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody verify [flags] <evidence-id>"); err != nil {
				return err
			}
			var result custody.VerificationResult
			if err := conn.call(ctx, env, "verify", map[string]any{"id": args[0]}, &result); err != nil {
				return err
			}
			if err := output.emit(env, result, func(r *tui.Renderer) string { return r.Verification(result) }); err != nil {
				return err
			}
			switch {
			case result.Outcome == custody.OutcomeStorageUnavailable:
				return &cli.ExitError{Code: exitStorageUnavailable}
			case !result.Matched:
				return &cli.ExitError{Code: exitMismatch}
			}
			return nil
		},
	}
}

func historyCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn   connection
		output outputOptions
		raw    bool
	)
	return &cli.Command{
		Name:    "history",
		Summary: "Show the custody timeline",
		Usage:   "custody history [flags] <evidence-id>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("history")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			flagSet.BoolVar(&raw, "events", false, "show raw ledger events instead of the timeline")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody history [flags] <evidence-id>"); err != nil {
				return err
			}
			if raw {
				var events []custody.LedgerEvent
				if err := conn.call(ctx, env, "events", map[string]any{"id": args[0]}, &events); err != nil {
					return err
				}
				return output.emit(env, events, func(*tui.Renderer) string { return eventLines(events) })
			}
			var history custody.CustodyHistory
			if err := conn.call(ctx, env, "history", map[string]any{"id": args[0]}, &history); err != nil {
				return err
			}
			return output.emit(env, history, func(r *tui.Renderer) string { return r.Timeline(history) })
		},
	}
}

func txCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn   connection
		output outputOptions
	)
	return &cli.Command{
		Name:    "tx",
		Summary: "Look up a ledger event by tx_ref",
		Usage:   "custody tx [flags] <tx-ref>",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("tx")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "custody tx [flags] <tx-ref>"); err != nil {
				return err
			}
			var event custody.LedgerEvent
			if err := conn.call(ctx, env, "tx", map[string]any{"tx_ref": args[0]}, &event); err != nil {
				return err
			}
			return output.emit(env, event, func(*tui.Renderer) string { return eventLines([]custody.LedgerEvent{event}) })
		},
	}
}

func auditCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn       connection
		output     outputOptions
		evidenceID string
		role       string
	)
	return &cli.Command{
		Name:    "audit",
		Summary: "Query the access log",
		Usage:   "custody audit (--evidence <id> | --role <role>) [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("audit")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			flagSet.StringVar(&evidenceID, "evidence", "", "rows for one evidence item")
			flagSet.StringVar(&role, "role", "", "rows written by actors of one role")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "custody audit (--evidence <id> | --role <role>)"); err != nil {
				return err
			}
			var response struct {
				Entries []custody.AccessLogEntry `cbor:"entries" json:"entries"`
				Total   int64                    `cbor:"total" json:"total"`
			}
			fields := map[string]any{}
			if evidenceID != "" {
				fields["evidence_id"] = evidenceID
			}
			if role != "" {
				fields["role"] = role
			}
			if err := conn.call(ctx, env, "audit", fields, &response); err != nil {
				return err
			}
			return output.emit(env, response, func(r *tui.Renderer) string {
				rows := make([][]tui.Cell, len(response.Entries))
				for i, entry := range response.Entries {
					rows[i] = []tui.Cell{
						{Text: entry.Timestamp.UTC().Format("2006-01-02 15:04:05")},
						{Text: entry.EvidenceID},
						{Text: string(entry.EventKind), Color: tui.DefaultTheme.EventColor(entry.EventKind)},
						{Text: fmt.Sprintf("%s (%s)", entry.ActorName, entry.ActorRole)},
						{Text: entry.Detail},
					}
				}
				return r.Table([]string{"TIME", "EVIDENCE", "EVENT", "WHO", "DETAIL"}, rows) +
					fmt.Sprintf("%d of %d rows\n", len(response.Entries), response.Total)
			})
		},
	}
}

// eventLines renders ledger events one per line with their hashes.
func eventLines(events []custody.LedgerEvent) string {
	var builder strings.Builder
	for _, event := range events {
		fmt.Fprintf(&builder, "%s  %s\n", event.TxRef, event)
		fmt.Fprintf(&builder, "    prev %s\n    hash %s\n", event.PrevHash, event.Hash)
	}
	return builder.String()
}

func searchCommand(ctx context.Context, env *environment) *cli.Command {
	var (
		conn      connection
		output    outputOptions
		caseID    string
		custodian string
		limit     int
	)
	return &cli.Command{
		Name:        "search",
		Summary:     "Search evidence by description, type, filename, or case",
		Description: "Ranks evidence by relevance to the query. Like list, search is not recorded in the ledger.",
		Usage:       "custody search [flags] <query>...",
		Examples: []cli.Example{{
			Description: "Find window photos in one case",
			Command:     "custody search --case CASE-2026-114 broken window",
		}},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("search")
			conn.addFlags(flagSet)
			output.addFlags(flagSet)
			flagSet.StringVar(&caseID, "case", "", "only this case")
			flagSet.StringVar(&custodian, "custodian", "", "only evidence held by this role")
			flagSet.IntVar(&limit, "limit", 0, "maximum results (default 20)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: custody search [flags] <query>...")
			}
			fields := map[string]any{"query": strings.Join(args, " ")}
			if limit != 0 {
				fields["limit"] = limit
			}
			if caseID != "" {
				fields["case_id"] = caseID
			}
			if custodian != "" {
				role, err := custody.ParseRole(custodian)
				if err != nil {
					return err
				}
				fields["custodian"] = role
			}
			var hits []custody.SearchHit
			if err := conn.call(ctx, env, "search", fields, &hits); err != nil {
				return err
			}
			return output.emit(env, hits, func(r *tui.Renderer) string {
				summaries := make([]custody.Summary, len(hits))
				for i, hit := range hits {
					summaries[i] = hit.Summary
				}
				return r.EvidenceList(summaries)
			})
		},
	}
}
