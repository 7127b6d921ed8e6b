package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session"
)

var (
	labelStyle    = lipgloss.NewStyle().Bold(true)
	valueMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func urgencyStyle(u session.Urgency) lipgloss.Style {
	switch u {
	case session.UrgencyCritical:
		return criticalStyle
	case session.UrgencyWarning:
		return warningStyle
	default:
		return normalStyle
	}
}

func statusStyle(s models.QuestionStatus) lipgloss.Style {
	switch s {
	case models.QuestionStatusDone:
		return normalStyle
	case models.QuestionStatusSkipped:
		return warningStyle
	case models.QuestionStatusTimedOut:
		return criticalStyle
	default:
		return valueMuted
	}
}

// renderStatus is the single status line shown while a session runs.
func renderStatus(state models.SessionState, presets []int) string {
	if state.TotalQuestions == 0 {
		return valueMuted.Render("no session configured")
	}
	if state.SessionCompleted {
		return labelStyle.Render("Session complete")
	}

	clock := urgencyStyle(session.UrgencyFor(state.RemainingSeconds)).
		Render(session.FormatTime(state.RemainingSeconds))

	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("Question %d/%d", state.CurrentQuestionIndex, state.TotalQuestions)))
	b.WriteString("  ")
	b.WriteString(clock)
	if rec, ok := state.CurrentRecord(); ok && rec.ExtensionsGranted > 0 {
		b.WriteString(valueMuted.Render(fmt.Sprintf(" (+%d ext)", rec.ExtensionsGranted)))
	}
	if !state.IsRunning {
		b.WriteString("  ")
		b.WriteString(valueMuted.Render("[paused]"))
	}
	if state.ExtensionPromptVisible {
		b.WriteString("  ")
		b.WriteString(promptStyle.Render(extensionPrompt(presets)))
	}
	return b.String()
}

func extensionPrompt(presets []int) string {
	parts := []string{"Need more time?"}
	keys := []string{"e", "E"}
	for i, p := range presets {
		if i >= len(keys) {
			break
		}
		parts = append(parts, fmt.Sprintf("%s=+%ds", keys[i], p))
	}
	parts = append(parts, "n=no")
	return strings.Join(parts, " ")
}

// renderSummary is the per-question table shown when a session ends.
func renderSummary(state models.SessionState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-4s %-8s %-8s %-9s %s", "Q", "Spent", "Allotted", "Status", "Ext")))
	for _, r := range state.Records {
		status := statusStyle(r.Status).Render(fmt.Sprintf("%-9s", r.Status.Label()))
		fmt.Fprintf(&b, "%-4d %-8s %-8s %s %d\n",
			r.QuestionNumber,
			session.FormatTime(r.TimeSpentSeconds),
			session.FormatTime(r.AllottedSeconds),
			status,
			r.ExtensionsGranted,
		)
	}
	b.WriteString("\n")
	b.WriteString(session.Report(state))
	return b.String()
}

// renderPreview describes a setup before it starts.
func renderPreview(totalQuestions, secondsPerQuestion int) string {
	return fmt.Sprintf("%d questions • %s each\nTotal: %s\n",
		totalQuestions,
		session.FormatTime(secondsPerQuestion),
		session.FormatTime(session.PreviewTotal(totalQuestions, secondsPerQuestion)),
	)
}

const keyHelp = "d done · s skip · e/E extend · n decline · p pause · q quit"
