package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"focusnoise/internal/app/session"
	"focusnoise/internal/app/timer"
	"focusnoise/internal/domain/receipt"
	"focusnoise/internal/infra/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	rankStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("117"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 2)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.snap.Phase == session.PhaseIdle || m.snap.Phase == session.PhaseStarting {
		return titleStyle.Render("focusnoise") + phaseStyle.Render("  warming up...") + "\n"
	}

	var b strings.Builder

	header := titleStyle.Render("focusnoise")
	switch {
	case m.cancelled || m.snap.Phase == session.PhaseFinalizing:
		header += phaseStyle.Render("  winding down...")
	case m.snap.TimerState == timer.StatePaused:
		header += pausedStyle.Render("  ⏸ PAUSED")
	}
	b.WriteString(header + "\n\n")

	b.WriteString(m.renderTimer() + "\n")
	b.WriteString(m.renderTracks())
	b.WriteString(m.renderProgress())
	if len(m.snap.Tasks) > 0 {
		b.WriteString(m.renderTasks())
	}

	b.WriteString("\n" + helpStyle.Render("p pause · +/- volume · q end session") + "\n")
	return panelStyle.Render(b.String()) + "\n"
}

func (m Model) renderTimer() string {
	var line string
	if m.snap.Bounded {
		total := m.snap.Elapsed + m.snap.Remaining
		line = fmt.Sprintf("%s  %s / %s remaining %s",
			m.bar.ViewAs(ratio(m.snap.Elapsed, total)),
			valueStyle.Render(formatDuration(m.snap.Elapsed)),
			valueStyle.Render(formatDuration(total)),
			valueStyle.Render(formatDuration(m.snap.Remaining)))
	} else {
		line = fmt.Sprintf("%s %s  %s",
			labelStyle.Render("elapsed"),
			valueStyle.Render(formatDuration(m.snap.Elapsed)),
			phaseStyle.Render("(open-ended)"))
	}
	return line + "\n"
}

func (m Model) renderTracks() string {
	var b strings.Builder
	for _, t := range m.snap.Tracks {
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			labelStyle.Render("▶"),
			valueStyle.Render(audio.DisplayName(t.Name)),
			levelBar(t.Current)))
	}
	b.WriteString(fmt.Sprintf("  %s %s\n",
		labelStyle.Render("master"),
		levelBar(m.snap.Master)))
	if m.snap.LastWeather != nil {
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			labelStyle.Render("weather"),
			valueStyle.Render(audio.DisplayName(m.snap.LastWeather.Sound)),
			phaseStyle.Render(fmt.Sprintf("(%d so far)", m.snap.WeatherCount))))
	}
	return b.String()
}

func (m Model) renderProgress() string {
	return fmt.Sprintf("  %s %s %s %s %s %s\n",
		labelStyle.Render("rank"),
		rankStyle.Render(m.snap.Tier.Title()),
		labelStyle.Render("streak"),
		valueStyle.Render(fmt.Sprintf("%dd", m.snap.Streak)),
		labelStyle.Render("total"),
		valueStyle.Render(formatHours(m.snap.TotalFocus)))
}

func (m Model) renderTasks() string {
	var b strings.Builder
	b.WriteString("  " + labelStyle.Render("working on") + "\n")
	for _, t := range m.snap.Tasks {
		b.WriteString("    " + valueStyle.Render("· "+t) + "\n")
	}
	return b.String()
}

// levelBar renders a 10-cell volume meter for a 0..1 level.
func levelBar(level float64) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level*10 + 0.5)
	return valueStyle.Render(strings.Repeat("█", filled)) +
		phaseStyle.Render(strings.Repeat("░", 10-filled))
}

func ratio(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	r := float64(part) / float64(total)
	if r > 1 {
		r = 1
	}
	return r
}

// RenderReceipt formats the post-session receipt for plain terminal output,
// printed after the dashboard has exited.
func RenderReceipt(rec receipt.Receipt) string {
	var b strings.Builder

	outcome := "cancelled"
	if rec.Completed {
		outcome = "completed"
	}
	b.WriteString(titleStyle.Render("session "+outcome) + "\n\n")

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", labelStyle.Render(label), valueStyle.Render(value)))
	}

	row("focused", formatDuration(rec.Focused))
	for i, t := range rec.Tasks {
		label := "task"
		if i > 0 {
			label = ""
		}
		row(label, t)
	}
	if rec.WeatherEvents > 0 {
		row("weather", fmt.Sprintf("%d events", rec.WeatherEvents))
	}

	if rec.RankChanged {
		row("rank", fmt.Sprintf("%s → %s", rec.RankBefore.Title(), rankStyle.Render(rec.RankAfter.Title())))
	} else {
		row("rank", rec.RankAfter.Title())
	}
	if rec.StreakChanged {
		row("streak", fmt.Sprintf("%d → %d days", rec.StreakBefore, rec.StreakAfter))
	} else {
		row("streak", fmt.Sprintf("%d days", rec.StreakAfter))
	}
	row("total", formatHours(rec.TotalFocus))

	return b.String()
}

// formatDuration renders h:mm:ss, dropping the hour part when zero.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}
