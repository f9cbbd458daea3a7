// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// timeLayout is how timestamps appear in tables.
const timeLayout = "2006-01-02 15:04:05Z07:00"

// columnGap separates table columns.
const columnGap = "  "

// Renderer formats custody values as text.
type Renderer struct {
	theme Theme
	color bool
}

// NewRenderer returns a renderer. With color false, output carries
// no escape sequences.
func NewRenderer(theme Theme, color bool) *Renderer {
	return &Renderer{theme: theme, color: color}
}

// Cell is one table cell. A zero Color renders in NormalText.
type Cell struct {
	Text  string
	Color lipgloss.Color
}

func (r *Renderer) paint(text string, color lipgloss.Color) string {
	if !r.color {
		return text
	}
	if color == "" {
		color = r.theme.NormalText
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

// Table renders rows under headers with columns aligned. Widths are
// measured before styling so escape sequences do not skew alignment.
func (r *Renderer) Table(headers []string, rows [][]Cell) string {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell.Text))
			}
		}
	}

	var builder strings.Builder
	headerCells := make([]string, len(headers))
	for i, header := range headers {
		headerCells[i] = pad(header, widths[i])
	}
	headerLine := strings.TrimRight(strings.Join(headerCells, columnGap), " ")
	if r.color {
		headerLine = lipgloss.NewStyle().Bold(true).Foreground(r.theme.HeaderForeground).Render(headerLine)
	}
	builder.WriteString(headerLine)
	builder.WriteByte('\n')

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			text := cell.Text
			if i < len(row)-1 {
				text = pad(text, widths[i])
			}
			cells[i] = r.paint(text, cell.Color)
		}
		builder.WriteString(strings.Join(cells, columnGap))
		builder.WriteByte('\n')
	}
	return builder.String()
}

func pad(text string, width int) string {
	if gap := width - lipgloss.Width(text); gap > 0 {
		return text + strings.Repeat(" ", gap)
	}
	return text
}

// EvidenceList renders list summaries, one row per item.
func (r *Renderer) EvidenceList(summaries []custody.Summary) string {
	if len(summaries) == 0 {
		return r.paint("No evidence found.", r.theme.FaintText) + "\n"
	}
	rows := make([][]Cell, len(summaries))
	for i, summary := range summaries {
		rows[i] = []Cell{
			{Text: summary.ID},
			{Text: summary.CaseID},
			{Text: summary.EvidenceType},
			{Text: string(summary.Status), Color: r.theme.StatusColor(summary.Status)},
			{Text: summary.Custodian.String()},
			{Text: integrityLabel(summary.IntegrityVerified), Color: r.theme.IntegrityColor(summary.IntegrityVerified)},
			{Text: summary.OriginalFilename, Color: r.theme.FaintText},
		}
	}
	return r.Table([]string{"ID", "CASE", "TYPE", "STATUS", "CUSTODIAN", "INTEGRITY", "FILE"}, rows)
}

type labeledValue struct {
	label string
	value string
	color lipgloss.Color
}

// Evidence renders one record as labeled lines.
func (r *Renderer) Evidence(evidence custody.Evidence) string {
	fields := []labeledValue{
		{"ID", evidence.ID, ""},
		{"Case", evidence.CaseID, ""},
		{"Type", evidence.EvidenceType, ""},
		{"Description", evidence.Description, ""},
		{"File", evidence.OriginalFilename, ""},
		{"Stored as", evidence.StoredFilename, r.theme.FaintText},
		{"Size", fmt.Sprintf("%d bytes", evidence.Size), ""},
		{"Hash", evidence.ContentHash, r.theme.FaintText},
		{"Status", string(evidence.Status), r.theme.StatusColor(evidence.Status)},
		{"Custodian", evidence.Custodian.String(), ""},
		{"Integrity", integrityLabel(evidence.IntegrityVerified), r.theme.IntegrityColor(evidence.IntegrityVerified)},
		{"Created", formatTime(evidence.CreatedAt), ""},
		{"Updated", formatTime(evidence.UpdatedAt), ""},
		{"Last tx", evidence.TxRef, r.theme.FaintText},
	}
	if evidence.Notes != "" {
		fields = append(fields, labeledValue{"Notes", evidence.Notes, ""})
	}

	var builder strings.Builder
	for _, field := range fields {
		label := pad(field.label+":", 13)
		if r.color {
			label = lipgloss.NewStyle().Foreground(r.theme.FaintText).Render(label)
		}
		builder.WriteString(label)
		builder.WriteString(r.paint(field.value, field.color))
		builder.WriteByte('\n')
	}
	return builder.String()
}

// Timeline renders a custody history, oldest event first, followed by
// the chain state.
func (r *Renderer) Timeline(history custody.CustodyHistory) string {
	rows := make([][]Cell, len(history.Timeline))
	for i, item := range history.Timeline {
		rows[i] = []Cell{
			{Text: formatTime(item.Timestamp)},
			{Text: string(item.Event), Color: r.theme.EventColor(item.Event)},
			{Text: fmt.Sprintf("%s (%s)", item.ActorName, item.ActorRole)},
			{Text: item.TxRef, Color: r.theme.FaintText},
			{Text: item.Details},
		}
	}

	var builder strings.Builder
	builder.WriteString(r.Table([]string{"TIME", "EVENT", "WHO", "TX", "DETAILS"}, rows))
	chain := "chain intact"
	if !history.ChainIntact {
		chain = "CHAIN BROKEN"
	}
	builder.WriteString(r.paint(chain, r.theme.IntegrityColor(history.ChainIntact)))
	builder.WriteString(r.paint(fmt.Sprintf(" (%d events, head %s)", len(history.Timeline), shortHash(history.HeadHash)), r.theme.FaintText))
	builder.WriteByte('\n')
	return builder.String()
}

// Verification renders an integrity check result.
func (r *Renderer) Verification(result custody.VerificationResult) string {
	color := r.theme.IntegrityColor(result.Matched)
	if result.Outcome == custody.OutcomeStorageUnavailable {
		color = r.theme.StatusInAnalysis
	}

	var builder strings.Builder
	builder.WriteString(r.paint(result.Message, color))
	builder.WriteByte('\n')
	builder.WriteString(fmt.Sprintf("  evidence: %s (%s)\n", result.EvidenceID, result.Filename))
	builder.WriteString(fmt.Sprintf("  original: %s\n", result.OriginalHash))
	if result.CurrentHash != "" {
		builder.WriteString(fmt.Sprintf("  current:  %s\n", result.CurrentHash))
	}
	if result.Error != "" {
		builder.WriteString(fmt.Sprintf("  error:    %s\n", result.Error))
	}
	if result.TxRef != "" {
		builder.WriteString(fmt.Sprintf("  tx:       %s\n", result.TxRef))
	}
	return builder.String()
}

func integrityLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "ALERT"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
