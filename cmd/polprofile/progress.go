package main

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leofalp/polprofile/patterns/pipeline"
	"github.com/leofalp/polprofile/profile"
)

// showProgress renders a transient spinner labelled from the run's event
// feed. Off a terminal the feed is left to Run.Wait.
//
// The program owns the terminal, so Ctrl+C arrives as a key rather than a
// signal; it calls cancelRun and the spinner stays until the run winds down.
func (a *app) showProgress(ctx context.Context, run *profile.Run, cancelRun context.CancelFunc, logger *slog.Logger) {
	if !a.interactive {
		return
	}

	program := tea.NewProgram(newProgressModel(run.Events(), cancelRun),
		tea.WithInput(a.stdin),
		tea.WithOutput(a.stderr),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		logger.DebugContext(ctx, "progress display stopped", slog.String("error", err.Error()))
	}
}

type (
	eventMsg pipeline.Event
	doneMsg  struct{}
)

type progressModel struct {
	spinner spinner.Model
	label   string
	events  <-chan pipeline.Event
	cancel  context.CancelFunc
	done    bool
}

func newProgressModel(events <-chan pipeline.Event, cancel context.CancelFunc) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return progressModel{
		spinner: s,
		label:   profile.Label("PoliticalProfileRouter"),
		events:  events,
		cancel:  cancel,
	}
}

func waitForEvent(events <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(event)
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		if msg.Status == pipeline.EventStarted {
			m.label = profile.Label(msg.Stage)
		}
		return m, waitForEvent(m.events)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && m.cancel != nil {
			m.cancel()
			m.label = "Cancelling"
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.label + "\n"
}
