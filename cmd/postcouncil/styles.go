package main

import (
	"fmt"
	"strconv"

	"postcouncil/internal/campaign"
	"postcouncil/internal/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	warning     = lipgloss.Color("#FFC107")
	muted       = lipgloss.Color("#6b7280")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(20)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

func statusStyle(s types.LogStatus) lipgloss.Style {
	switch s {
	case types.LogError:
		return lipgloss.NewStyle().Foreground(destructive)
	case types.LogPartial:
		return lipgloss.NewStyle().Foreground(warning)
	}
	return lipgloss.NewStyle().Foreground(accent)
}

// renderSummary renders an activation summary as a bordered key/value box.
func renderSummary(s *campaign.Summary) string {
	rows := [][2]string{
		{"Execution", s.ExecutionID},
		{"Campaign", s.CampaignID},
		{"Trigger", s.Trigger},
		{"Workflow", string(s.Strategy)},
		{"Employees processed", strconv.Itoa(s.SubjectsProcessed)},
		{"Posts triggered", strconv.Itoa(s.PostsTriggered)},
		{"Status", statusStyle(s.Status).Render(string(s.Status))},
	}
	var body string
	for i, r := range rows {
		if i > 0 {
			body += "\n"
		}
		body += labelStyle.Render(r[0]) + r[1]
	}
	return boxStyle.Render(headerStyle.Render("Activation complete") + "\n\n" + body)
}

// renderLogs renders log entries as a table.
func renderLogs(entries []types.LogEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		tokens := ""
		if e.InputTokens > 0 || e.OutputTokens > 0 {
			tokens = fmt.Sprintf("%d/%d", e.InputTokens, e.OutputTokens)
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("15:04:05.000"),
			e.ExecutionID,
			e.Step,
			string(e.Status),
			e.Model,
			tokens,
			strconv.FormatInt(e.LatencyMS, 10),
			truncate(e.ErrorMessage, 60),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("TIME", "EXECUTION", "STEP", "STATUS", "MODEL", "TOKENS", "MS", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 3 && row >= 0 && row < len(entries) {
				return statusStyle(entries[row].Status).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
