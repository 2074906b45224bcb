package progress

import (
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/mattn/go-isatty"
)

// -----
// Models
// -----

// Model represents the spinner shown while a report is fetched
type Model struct {
	spinner spinner.Model
	message string
	done    bool
	err     error
}

// -----
// Messages
// -----

// UpdateMsg updates the spinner message
type UpdateMsg struct {
	Message string
}

// DoneMsg signals completion
type DoneMsg struct {
	Error error
}

// -----
// Styles
// -----

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// -----
// Constructor
// -----

// New creates a new spinner model
func New(message string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return Model{
		spinner: s,
		message: message,
	}
}

// -----
// Bubbletea Interface
// -----

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case UpdateMsg:
		m.message = msg.Message
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Error
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

// View implements tea.Model
func (m *Model) View() string {
	if m.done {
		if m.err != nil {
			return errorStyle.Render("✗ ") + textStyle.Render(m.message) + "\n"
		}
		return successStyle.Render("✓ ") + textStyle.Render(m.message) + "\n"
	}
	return m.spinner.View() + " " + textStyle.Render(m.message)
}

// -----
// Runner
// -----

// Runner drives a spinner on a terminal
type Runner struct {
	program  *tea.Program
	finished chan struct{}
}

// NewRunner creates a spinner writing to out. Input and signals are left to
// the caller so Ctrl+C cancels the command context.
func NewRunner(out io.Writer, message string) *Runner {
	model := New(message)
	return &Runner{
		program: tea.NewProgram(&model,
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		finished: make(chan struct{}),
	}
}

// Start starts the spinner
func (r *Runner) Start() {
	go func() {
		defer close(r.finished)
		if _, err := r.program.Run(); err != nil {
			logger.Error("Error running progress", "error", err)
		}
	}()
}

// Update updates the spinner message
func (r *Runner) Update(message string) {
	r.program.Send(UpdateMsg{Message: message})
}

// Done stops the spinner and waits for its final frame
func (r *Runner) Done(err error) {
	r.program.Send(DoneMsg{Error: err})
	<-r.finished
}

// -----
// Simple Progress Functions
// -----

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WithSpinner runs fn while a spinner is shown on out. Without a terminal
// fn simply runs.
func WithSpinner(out io.Writer, message string, fn func() error) error {
	if !IsTerminal(out) {
		return fn()
	}
	runner := NewRunner(out, message)
	runner.Start()
	err := fn()
	runner.Done(err)
	return err
}
