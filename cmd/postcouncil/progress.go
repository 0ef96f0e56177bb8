package main

import (
	"context"
	"fmt"
	"io"

	"postcouncil/internal/campaign"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const maxBarWidth = 60

// unitDoneMsg reports one finished unit.
type unitDoneMsg struct {
	done, total int
	failed      bool
}

// activationDoneMsg ends the progress program.
type activationDoneMsg struct{}

// progressModel renders a bar of finished units while an activation runs.
type progressModel struct {
	bar    progress.Model
	done   int
	total  int
	failed int
	closed bool
}

func newProgressModel() progressModel {
	return progressModel{bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))}
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case unitDoneMsg:
		m.done, m.total = msg.done, msg.total
		if msg.failed {
			m.failed++
		}
	case activationDoneMsg:
		m.closed = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-24, 10), maxBarWidth)
	}
	return m, nil
}

func (m progressModel) View() string {
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	line := fmt.Sprintf("%s %d/%d units", m.bar.ViewAs(pct), m.done, m.total)
	if m.failed > 0 {
		line += " " + mutedStyle.Render(fmt.Sprintf("(%d failed)", m.failed))
	}
	if m.closed {
		return line + "\n"
	}
	return line
}

// progressRun drives a progress bar on w for the duration of one activation.
type progressRun struct {
	program *tea.Program
}

func newProgressRun(w io.Writer) *progressRun {
	return &progressRun{program: tea.NewProgram(newProgressModel(),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)}
}

// Observe is the orchestrator's progress hook.
func (r *progressRun) Observe(done, total int, u campaign.UnitResult) {
	r.program.Send(unitDoneMsg{done: done, total: total, failed: u.Err != nil})
}

// Activate runs orch in the background and the bar in the foreground. A bar
// that fails to start cancels the activation.
func (r *progressRun) Activate(ctx context.Context, orch *campaign.Orchestrator, req campaign.ActivationRequest) (*campaign.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		summary *campaign.Summary
		err     error
	}
	resc := make(chan result, 1)
	go func() {
		s, err := orch.Activate(ctx, req)
		resc <- result{s, err}
		r.program.Send(activationDoneMsg{})
	}()

	if _, err := r.program.Run(); err != nil {
		cancel()
		<-resc
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	res := <-resc
	return res.summary, res.err
}
