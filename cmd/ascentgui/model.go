package main

import (
	"context"
	"strings"
	"time"

	"github.com/ascentgui/ascent"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

const windowTitle = "AscentGUI"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	windowStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type tickMsg time.Time

// snapshotMsg is the result of one telemetry read.
type snapshotMsg struct {
	snapshot ascent.Snapshot
	err      error
}

// model is the overlay session. A single tick chain is alive at any time: each tick
// either reads the telemetry (when visible) or schedules the next tick.
type model struct {
	ctx        context.Context
	source     ascent.TelemetrySource
	sourceName string
	metrics    *ascent.Metrics // nil if disabled
	logger     kitlog.Logger
	toggle     string
	refresh    time.Duration
	target     float64

	visible bool
	report  *ascent.AscentReport
	err     error
}

func newModel(ctx context.Context, conf ascent.Config, source ascent.TelemetrySource, metrics *ascent.Metrics, logger kitlog.Logger) model {
	return model{
		ctx:        ctx,
		source:     source,
		sourceName: conf.Telemetry.Source,
		metrics:    metrics,
		logger:     kitlog.With(logger, "subsys", "overlay"),
		toggle:     conf.Display.Toggle(),
		refresh:    conf.Display.Refresh,
		target:     conf.Target(),
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetch() tea.Cmd {
	return func() tea.Msg {
		s, err := m.source.Next(m.ctx)
		return snapshotMsg{s, err}
	}
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case m.toggle:
			m.visible = !m.visible
			level.Debug(m.logger).Log("visible", m.visible)
		case "x":
			m.visible = false
		}
		return m, nil

	case tickMsg:
		if !m.visible {
			return m, m.tick()
		}
		return m, m.fetch()

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			level.Warn(m.logger).Log("source", m.sourceName, "err", msg.err)
			if m.metrics != nil {
				m.metrics.TelemetryError(m.sourceName)
			}
			return m, m.tick()
		}
		r := ascent.NewTargetedAscentReport(msg.snapshot, m.target)
		m.report = &r
		m.err = nil
		if m.metrics != nil {
			m.metrics.Observe(r)
		}
		level.Debug(m.logger).Log("report", r)
		return m, m.tick()
	}
	return m, nil
}

func (m model) View() string {
	if !m.visible {
		return helpStyle.Render("press " + m.toggle + " to show " + windowTitle + ", q to quit")
	}
	var s strings.Builder
	s.WriteString(titleStyle.Render(windowTitle))
	s.WriteString("\n")
	if m.report == nil {
		s.WriteString(helpStyle.Render("waiting for telemetry"))
	} else {
		for _, line := range m.report.Lines() {
			s.WriteString("\n")
			if line.Separator {
				s.WriteString(separatorStyle.Render(line.String()))
				continue
			}
			s.WriteString(labelStyle.Render(line.Label+":") + " " + line.Value)
		}
	}
	if m.err != nil {
		s.WriteString("\n\n")
		s.WriteString(errStyle.Render(m.err.Error()))
	}
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.toggle + ": hide  x: close  q: quit"))
	return windowStyle.Render(s.String())
}
