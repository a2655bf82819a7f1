package dashboard

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leefowlercu/dron/internal/monitor"
	"github.com/leefowlercu/dron/internal/tui/styles"
)

// chrome is the number of lines taken by everything but the table rows.
const chrome = 7

type resultMsg monitor.Result

type closedMsg struct{}

// Model is the interactive monitor. Results arrive from a monitor.Poller; the
// next result is only read after the previous one was rendered.
type Model struct {
	table       table.Model
	results     <-chan monitor.Result
	withCommand bool

	entries   []monitor.Entry
	updatedAt time.Time
	err       error
	quitting  bool
	width     int
	height    int
}

// New creates a model reading from results.
func New(results <-chan monitor.Result, withCommand bool) Model {
	headers := Headers(withCommand)
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: len(h) + 2}
	}

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Secondary).
		BorderBottom(true).
		Bold(true)
	s.Selected = styles.Selected

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(s),
	)

	return Model{
		table:       t,
		results:     results,
		withCommand: withCommand,
	}
}

func waitForResult(ch <-chan monitor.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return resultMsg(r)
	}
}

// Init starts reading results.
func (m Model) Init() tea.Cmd {
	return waitForResult(m.results)
}

// Update handles keys, resizes and poll results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-chrome, 3))
		m.table.SetWidth(msg.Width)
		return m, nil

	case resultMsg:
		m.updatedAt = msg.At
		m.err = msg.Err
		if msg.Err != nil {
			slog.Debug("monitor refresh failed", "error", msg.Err)
		} else {
			m.setEntries(msg.Entries)
		}
		return m, waitForResult(m.results)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// setEntries replaces the rows, widening columns to fit and keeping the cursor
// on the same unit when it is still listed.
func (m *Model) setEntries(entries []monitor.Entry) {
	var selected string
	if row := m.table.SelectedRow(); row != nil {
		selected = row[0]
	}

	cols := m.table.Columns()
	rows := make([]table.Row, 0, len(entries))
	cursor := 0
	for i, e := range entries {
		r := Row(e, m.withCommand)
		for c := range cols {
			if w := lipgloss.Width(r[c]) + 2; w > cols[c].Width {
				cols[c].Width = w
			}
		}
		if e.Unit == selected {
			cursor = i
		}
		rows = append(rows, table.Row(r))
	}

	m.entries = entries
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.table.SetCursor(cursor)
}

// Entries returns the rows currently displayed.
func (m Model) Entries() []monitor.Entry {
	return m.entries
}

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("dron monitor"))
	b.WriteString("\n")

	if m.updatedAt.IsZero() {
		b.WriteString(styles.MutedText.Render("loading..."))
	} else {
		b.WriteString(styles.MutedText.Render("refreshed at: " + m.updatedAt.Format(time.RFC3339Nano)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.summary())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(styles.HelpText.Render("j/k: move  g/G: top/bottom  q: quit"))

	return b.String()
}

func (m Model) summary() string {
	var running, failed int
	for _, e := range m.entries {
		if e.Running() {
			running++
		}
		if !e.StatusOK {
			failed++
		}
	}
	parts := []string{
		fmt.Sprintf("%d jobs", len(m.entries)),
		styles.WarningText.Render(fmt.Sprintf("%d running", running)),
	}
	if failed > 0 {
		parts = append(parts, styles.ErrorText.Render(fmt.Sprintf("%d failing", failed)))
	} else {
		parts = append(parts, styles.SuccessText.Render("0 failing"))
	}
	return strings.Join(parts, "  ")
}

// Run starts the interactive monitor.
func Run(results <-chan monitor.Result, withCommand bool) error {
	p := tea.NewProgram(New(results, withCommand), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run monitor; %w", err)
	}
	return nil
}
