// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// Theme defines the color palette for custody terminal output. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Evidence status colors.
	StatusRegistered  lipgloss.Color
	StatusInAnalysis  lipgloss.Color
	StatusTransferred lipgloss.Color
	StatusVerified    lipgloss.Color
	StatusArchived    lipgloss.Color

	// Ledger event colors.
	EventCreated     lipgloss.Color
	EventAccessed    lipgloss.Color
	EventTransferred lipgloss.Color
	EventVerified    lipgloss.Color

	// Integrity results.
	IntegrityOK    lipgloss.Color
	IntegrityAlert lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
}

// StatusColor returns the color for an evidence status, or FaintText
// for unknown values.
func (theme Theme) StatusColor(status custody.Status) lipgloss.Color {
	switch status {
	case custody.StatusRegistered:
		return theme.StatusRegistered
	case custody.StatusInAnalysis:
		return theme.StatusInAnalysis
	case custody.StatusTransferred:
		return theme.StatusTransferred
	case custody.StatusVerified:
		return theme.StatusVerified
	case custody.StatusArchived:
		return theme.StatusArchived
	default:
		return theme.FaintText
	}
}

// EventColor returns the color for a ledger event kind.
func (theme Theme) EventColor(kind custody.EventKind) lipgloss.Color {
	switch kind {
	case custody.EventCreated:
		return theme.EventCreated
	case custody.EventAccessed:
		return theme.EventAccessed
	case custody.EventTransferred:
		return theme.EventTransferred
	case custody.EventVerified:
		return theme.EventVerified
	default:
		return theme.FaintText
	}
}

// IntegrityColor returns IntegrityOK or IntegrityAlert.
func (theme Theme) IntegrityColor(ok bool) lipgloss.Color {
	if ok {
		return theme.IntegrityOK
	}
	return theme.IntegrityAlert
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	StatusRegistered:  lipgloss.Color("75"),  // blue
	StatusInAnalysis:  lipgloss.Color("220"), // yellow/amber
	StatusTransferred: lipgloss.Color("141"), // light purple
	StatusVerified:    lipgloss.Color("114"), // green
	StatusArchived:    lipgloss.Color("245"), // gray

	EventCreated:     lipgloss.Color("75"),
	EventAccessed:    lipgloss.Color("245"),
	EventTransferred: lipgloss.Color("141"),
	EventVerified:    lipgloss.Color("114"),

	IntegrityOK:    lipgloss.Color("114"),
	IntegrityAlert: lipgloss.Color("196"), // bright red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
}
