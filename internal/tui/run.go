package tui

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork starts the update display, launches workFn in a goroutine, and
// blocks until both finish. workFn pushes RowMsg updates through send.
func RunWithWork(out io.Writer, model UpdateModel, workFn func(send func(tea.Msg))) error {
	p := tea.NewProgram(model, tea.WithOutput(out))

	go func() {
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)
		workFn(p.Send)
		p.Send(DoneMsg{})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(UpdateModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
