package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsift/internal/model"
)

// loadTimeout bounds a full search + enrichment load.
const loadTimeout = 10 * time.Minute

var errLoadCancelled = errors.New("cancelled")

type loadDoneMsg struct {
	jobs []model.JobListing
	err  error
}

type loaderModel struct {
	label   string
	loadFn  func(ctx context.Context) ([]model.JobListing, error)
	cancel  context.CancelFunc
	ctx     context.Context
	spinner spinner.Model
	result  []model.JobListing
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doLoad(), m.spinner.Tick)
}

func (m loaderModel) doLoad() tea.Cmd {
	loadFn, ctx := m.loadFn, m.ctx
	return func() tea.Msg {
		jobs, err := loadFn(ctx)
		return loadDoneMsg{jobs: jobs, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg:
		m.result = msg.jobs
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.done = true
			m.err = errLoadCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s...\n", m.spinner.View(), m.label)
}

// RunLoader shows a spinner while loadFn runs. It renders inline (no alt
// screen); ctrl+c cancels the load.
func RunLoader(label string, loadFn func(ctx context.Context) ([]model.JobListing, error)) ([]model.JobListing, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	m := loaderModel{
		label:   label,
		loadFn:  loadFn,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
	}
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
