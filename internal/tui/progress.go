package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianshen/autodoc/internal/docgen"
)

// SnapshotMsg delivers a progress snapshot to the ProgressModel.
type SnapshotMsg docgen.Snapshot

// StateMsg delivers an orchestrator state transition.
type StateMsg docgen.State

// DoneMsg ends the program once the run has returned.
type DoneMsg struct {
	Err error
}

var stateLabels = map[docgen.State]string{
	docgen.StateInit:         "Starting",
	docgen.StateClientReady:  "Client ready",
	docgen.StateDirectoryViz: "Mapping directory structure",
	docgen.StatePreOverview:  "Drafting project overview",
	docgen.StateGenerating:   "Documenting files",
	docgen.StatePostOverview: "Synthesizing project overview",
	docgen.StateDone:         "Done",
	docgen.StateFailed:       "Failed",
}

// ProgressModel is a Bubble Tea model showing the progress of one run.
type ProgressModel struct {
	title    string
	bar      progress.Model
	spinner  spinner.Model
	snap     docgen.Snapshot
	state    docgen.State
	started  time.Time
	now      func() time.Time
	done     bool
	err      error
	cancel   func()
	quitting bool

	titleStyle lipgloss.Style
	infoStyle  lipgloss.Style
	errStyle   lipgloss.Style
}

// NewProgressModel creates a ProgressModel for a run of total files. cancel
// is called when the user interrupts with ctrl+c or q.
func NewProgressModel(title string, total int, cancel func()) *ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &ProgressModel{
		title:   title,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner: s,
		snap:    docgen.Snapshot{Total: total},
		started: time.Now(),
		now:     time.Now,
		cancel:  cancel,
		titleStyle: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}),
		infoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}),
		errStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Init starts the spinner.
func (m *ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles progress, state, resize and key messages.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.quitting && m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
		}
		return m, nil

	case tea.WindowSizeMsg:
		w := msg.Width - 4
		if w > 80 {
			w = 80
		}
		if w < 10 {
			w = 10
		}
		m.bar.Width = w
		return m, nil

	case SnapshotMsg:
		m.snap = docgen.Snapshot(msg)
		return m, m.bar.SetPercent(m.snap.Ratio())

	case StateMsg:
		m.state = docgen.State(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the title line, the bar and the counters.
func (m *ProgressModel) View() string {
	var b strings.Builder

	label := stateLabels[m.state]
	if m.quitting && !m.done {
		label = "Cancelling"
	}
	head := m.titleStyle.Render(m.title)
	if m.done {
		b.WriteString(head + "  " + label + "\n")
	} else {
		b.WriteString(head + "  " + m.spinner.View() + " " + label + "\n")
	}

	b.WriteString(m.bar.ViewAs(m.snap.Ratio()))
	b.WriteString("\n")
	b.WriteString(m.infoStyle.Render(FormatSnapshot(m.snap, m.now().Sub(m.started))))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.errStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

// Snapshot returns the last snapshot received.
func (m *ProgressModel) Snapshot() docgen.Snapshot { return m.snap }

// FormatSnapshot renders a one-line progress summary, used by the TUI and by
// the plain progress output when stderr is not a terminal.
func FormatSnapshot(s docgen.Snapshot, elapsed time.Duration) string {
	line := fmt.Sprintf("%d/%d files (%.0f%%)", s.Completed, s.Total, s.Ratio()*100)
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed", s.Failed)
	}
	if s.LastKey != "" {
		mark := "ok"
		if !s.LastSucceeded {
			mark = "failed"
		}
		line += fmt.Sprintf(", last: %s (%s)", s.LastKey, mark)
	}
	return line + fmt.Sprintf(", %s", elapsed.Round(100*time.Millisecond))
}
