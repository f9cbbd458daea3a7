// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/custody/lib/schema/custody"
)

var renderEpoch = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func TestTableAlignsColumns(t *testing.T) {
	renderer := NewRenderer(DefaultTheme, false)
	output := renderer.Table([]string{"ID", "NAME"}, [][]Cell{
		{{Text: "EVD-1"}, {Text: "a"}},
		{{Text: "X"}, {Text: "bb"}},
	})
	want := "ID     NAME\n" +
		"EVD-1  a\n" +
		"X      bb\n"
	if output != want {
		t.Errorf("Table() =\n%q\nwant\n%q", output, want)
	}
}

func TestPlainRendererHasNoEscapes(t *testing.T) {
	renderer := NewRenderer(DefaultTheme, false)
	output := renderer.EvidenceList([]custody.Summary{{
		ID:                "EVD-0A1B2C3D",
		CaseID:            "CASE-1",
		EvidenceType:      "photo",
		Status:            custody.StatusVerified,
		Custodian:         custody.Custodian{Role: custody.RoleJudge, Name: "Judge Amari"},
		IntegrityVerified: false,
		OriginalFilename:  "knife.jpg",
	}})
	if strings.Contains(output, "\x1b[") {
		t.Errorf("plain output contains escape sequences: %q", output)
	}
	for _, want := range []string{"EVD-0A1B2C3D", "Judge Amari (judge)", "ALERT", "knife.jpg"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestEmptyList(t *testing.T) {
	output := NewRenderer(DefaultTheme, false).EvidenceList(nil)
	if output != "No evidence found.\n" {
		t.Errorf("EvidenceList(nil) = %q", output)
	}
}

func TestTimeline(t *testing.T) {
	renderer := NewRenderer(DefaultTheme, false)
	output := renderer.Timeline(custody.CustodyHistory{
		EvidenceID: "EVD-0A1B2C3D",
		Timeline: []custody.TimelineItem{
			{Event: custody.EventCreated, ActorRole: custody.RolePolice, ActorName: "Officer Diaz", Details: "Evidence registered", Timestamp: renderEpoch, TxRef: "0xabc"},
			{Event: custody.EventTransferred, ActorRole: custody.RoleForensicLab, ActorName: "Dr. Okafor", Details: "Analysis", Timestamp: renderEpoch.Add(time.Hour), TxRef: "0xdef"},
		},
		ChainIntact: true,
		HeadHash:    strings.Repeat("ab", 32),
	})
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("timeline has %d lines, want 4:\n%s", len(lines), output)
	}
	if !strings.Contains(lines[1], "2026-05-01 09:30:00Z") || !strings.Contains(lines[1], "created") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "Dr. Okafor (forensic_lab)") {
		t.Errorf("transfer row = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "chain intact (2 events, head abababababababab)") {
		t.Errorf("footer = %q", lines[3])
	}
}

func TestVerification(t *testing.T) {
	renderer := NewRenderer(DefaultTheme, false)
	output := renderer.Verification(custody.VerificationResult{
		EvidenceID:   "EVD-0A1B2C3D",
		Filename:     "knife.jpg",
		Outcome:      custody.OutcomeMismatch,
		OriginalHash: "aaaa",
		CurrentHash:  "bbbb",
		TxRef:        "0x01",
		Message:      custody.MessageMismatch,
	})
	if !strings.HasPrefix(output, custody.MessageMismatch+"\n") {
		t.Errorf("output = %q", output)
	}
	if !strings.Contains(output, "current:  bbbb") {
		t.Errorf("output missing current hash: %q", output)
	}
}

func TestThemeColors(t *testing.T) {
	if DefaultTheme.StatusColor("lost") != DefaultTheme.FaintText {
		t.Error("unknown status should be faint")
	}
	if DefaultTheme.IntegrityColor(false) != DefaultTheme.IntegrityAlert {
		t.Error("IntegrityColor(false) should be the alert color")
	}
	if DefaultTheme.EventColor(custody.EventVerified) != DefaultTheme.EventVerified {
		t.Error("EventColor(verified) mismatch")
	}
}
