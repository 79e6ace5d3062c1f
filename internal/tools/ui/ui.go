package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(2)
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg struct{}

type doneMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	frame   int
	started time.Time
	elapsed time.Duration
	done    bool
	details []string
	err     error
	cancel  context.CancelFunc
	run     func() doneMsg
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), func() tea.Msg { return m.run() })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.cancel()
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(frames)
		m.elapsed = time.Since(m.started).Round(100 * time.Millisecond)
		return m, tick()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		m.elapsed = time.Since(m.started).Round(time.Millisecond)
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	switch {
	case !m.done:
		fmt.Fprintf(&b, "%s %s (%s)\n", frames[m.frame], titleStyle.Render(m.title), m.elapsed)
	case m.err != nil:
		fmt.Fprintf(&b, "%s %s (%s)\n", failStyle.Render("✗"), titleStyle.Render(m.title), m.elapsed)
	default:
		fmt.Fprintf(&b, "%s %s (%s)\n", okStyle.Render("✓"), titleStyle.Render(m.title), m.elapsed)
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render(d) + "\n")
	}
	if m.err != nil {
		b.WriteString(failStyle.Render("error: "+m.err.Error()) + "\n")
	}
	return b.String()
}

// Run executes fn under an interactive progress view. Pressing q or ctrl+c
// cancels the context handed to fn.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := model{
		title:   title,
		started: time.Now(),
		cancel:  cancel,
		run: func() doneMsg {
			details, err := fn(ctx)
			return doneMsg{details: details, err: err}
		},
	}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("run ui: %w", err)
	}
	fm := final.(model)
	return fm.details, fm.err
}
