// Package dashboard renders the live session view. It is a read-only
// consumer of engine snapshots; all state lives in the engine.
package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"focusnoise/internal/app/session"
)

// volumeStep is the master volume change per keypress.
const volumeStep = 0.05

// Engine is the narrow control surface the dashboard needs.
type Engine interface {
	TogglePause() error
	Cancel()
	StepMaster(delta float64) float64
}

// Messages

// SnapshotMsg carries a fresh engine snapshot.
type SnapshotMsg session.Snapshot

// DoneMsg signals that the session reached Done and the UI should exit.
type DoneMsg struct{}

type keyMap struct {
	Pause   key.Binding
	VolUp   key.Binding
	VolDown key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Pause:   key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		VolUp:   key.NewBinding(key.WithKeys("+", "=", "w"), key.WithHelp("+", "volume up")),
		VolDown: key.NewBinding(key.WithKeys("-", "s"), key.WithHelp("-", "volume down")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "end session")),
	}
}

// Model is the bubbletea model for the session dashboard.
type Model struct {
	engine    Engine
	snap      session.Snapshot
	bar       progress.Model
	keys      keyMap
	width     int
	cancelled bool
}

// New creates the dashboard model.
func New(engine Engine) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.ShowPercentage = false
	return Model{
		engine: engine,
		bar:    bar,
		keys:   defaultKeys(),
		width:  80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 12
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case SnapshotMsg:
		m.snap = session.Snapshot(msg)
		return m, nil

	case DoneMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			// Ask the engine to stop; the UI exits on DoneMsg once the
			// fade-out has finished.
			m.cancelled = true
			m.engine.Cancel()
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			_ = m.engine.TogglePause()
			return m, nil
		case key.Matches(msg, m.keys.VolUp):
			m.engine.StepMaster(volumeStep)
			return m, nil
		case key.Matches(msg, m.keys.VolDown):
			m.engine.StepMaster(-volumeStep)
			return m, nil
		}
	}
	return m, nil
}
