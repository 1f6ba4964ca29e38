package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// IsInteractive reports whether stdout is attached to a terminal.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

type doneMsg struct {
	err error
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	done    <-chan error
	err     error
}

func newSpinnerModel(message string, done <-chan error) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return spinnerModel{spinner: s, message: message, done: done}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForDone())
}

func (m spinnerModel) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-m.done}
	}
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		// The operation keeps running; the spinner is display only.
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	return fmt.Sprintf("%s %s", m.spinner.View(), m.message)
}

// WithSpinner runs fn while showing an animated spinner with the message.
// On a non-terminal writer the message is printed once instead.
func WithSpinner(out io.Writer, message string, fn func() error) error {
	if !IsInteractive() {
		fmt.Fprintln(out, message)
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	model := newSpinnerModel(message, done)
	program := tea.NewProgram(model, tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		// Fall back to waiting for the operation if the TUI could not start.
		return <-done
	}
	if m, ok := final.(spinnerModel); ok {
		return m.err
	}
	return nil
}
