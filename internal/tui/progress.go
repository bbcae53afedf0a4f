// Package tui renders interactive progress for update runs. Non-interactive
// callers get a plain table or JSON through the same row data.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const tickInterval = 150 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner.
type tickMsg time.Time

// RowMsg updates one component's row. Empty fields leave the previous value
// in place.
type RowMsg struct {
	Component string
	Status    string
	Version   string
	Detail    string
}

// DoneMsg signals that every component reached a terminal state.
type DoneMsg struct{}

// ErrorMsg signals a run-level failure; the display quits and surfaces it.
type ErrorMsg struct {
	Err error
}

// ComponentRow is one line of the update table.
type ComponentRow struct {
	Component string
	Kind      string
	Status    string
	Version   string
	Detail    string
}

// UpdateModel is a bubbletea model showing one row per component as it moves
// through resolving, downloading and installing.
type UpdateModel struct {
	title    string
	rows     []ComponentRow
	rowIndex map[string]int
	done     bool
	err      error
	tick     int
}

// NewUpdateModel seeds the table with every component in pending state so
// the full plan is visible before any work starts.
func NewUpdateModel(title string, rows []ComponentRow) UpdateModel {
	index := make(map[string]int, len(rows))
	seeded := make([]ComponentRow, len(rows))
	for i, r := range rows {
		if r.Status == "" {
			r.Status = "pending"
		}
		seeded[i] = r
		index[r.Component] = i
	}
	return UpdateModel{title: title, rows: seeded, rowIndex: index}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m UpdateModel) Init() tea.Cmd {
	return scheduleTick()
}

func (m UpdateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case RowMsg:
		if i, ok := m.rowIndex[msg.Component]; ok {
			row := &m.rows[i]
			if msg.Status != "" {
				row.Status = msg.Status
			}
			if msg.Version != "" {
				row.Version = msg.Version
			}
			if msg.Detail != "" {
				row.Detail = msg.Detail
			}
		}
		return m, nil

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m UpdateModel) View() string {
	if m.done && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}
	b.WriteString(RenderTable(m.rows, true))

	if !m.done {
		done, total := m.progressCounts()
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s %d/%d components done...\n", spinner, done, total)
	}
	return b.String()
}

func (m UpdateModel) progressCounts() (int, int) {
	done := 0
	for _, row := range m.rows {
		switch row.Status {
		case "installed", "updated", "up-to-date", "failed":
			done++
		}
	}
	return done, len(m.rows)
}

// Err returns any run-level error the display quit on.
func (m UpdateModel) Err() error {
	return m.err
}

// RenderTable formats component rows as an aligned text table. Used by the
// interactive view and as the plain fallback.
func RenderTable(rows []ComponentRow, color bool) string {
	headers := []string{"COMPONENT", "TYPE", "STATUS", "VERSION", "DETAIL"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.Component, r.Kind, r.Status, r.Version, r.Detail}
		for j, v := range cells[i] {
			if len(v) > widths[j] {
				widths[j] = len(v)
			}
		}
	}

	var b strings.Builder
	parts := make([]string, len(headers))
	for i, h := range headers {
		cell := pad(h, widths[i])
		if color {
			cell = HeaderStyle.Render(cell)
		}
		parts[i] = cell
	}
	b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
	b.WriteByte('\n')

	for _, row := range cells {
		for i, v := range row {
			cell := pad(v, widths[i])
			if color && i == 2 {
				cell = StatusStyle(v).Render(cell)
			}
			parts[i] = cell
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
