package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmax-ai/traylord/pkg/api"
	"github.com/rmax-ai/traylord/pkg/client"
	"github.com/rmax-ai/traylord/pkg/format"
	"github.com/rmax-ai/traylord/pkg/provider"
)

// Config
const (
	pollRate = 2 * time.Second
	barWidth = 30
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	tierStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)

	barOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	barHotStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barBGStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))

	mainStyle = lipgloss.NewStyle().MarginLeft(1)
)

type tickMsg time.Time

type dataMsg struct {
	resp api.StateResponse
	err  error
}

type model struct {
	spinner spinner.Model
	api     *client.Client
	resp    api.StateResponse
	err     error
	ready   bool
}

func initialModel(endpoint string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner: s,
		api:     client.NewClient(endpoint),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetch(),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollRate)
		defer cancel()

		resp, err := m.api.GetState(ctx)
		return dataMsg{resp: resp, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		return m, tea.Batch(m.fetch(), tick())

	case dataMsg:
		m.err = msg.err
		if msg.err == nil {
			m.resp = msg.resp
			m.ready = true
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("traylord"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ daemon unreachable: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render("Is traylord-d running?"))
		b.WriteString("\n")
		return mainStyle.Render(b.String())
	}

	if !m.ready {
		b.WriteString(m.spinner.View())
		b.WriteString(subtleStyle.Render(" connecting..."))
		b.WriteString("\n")
		return mainStyle.Render(b.String())
	}

	state := m.resp.State
	snap := state.Snapshot

	if snap == nil {
		b.WriteString(m.spinner.View())
		b.WriteString(subtleStyle.Render(" waiting for first fetch..."))
		if state.LastError != "" {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render("✗ " + state.LastError))
		}
		b.WriteString("\n")
		return mainStyle.Render(b.String())
	}

	if snap.Tier != "" {
		b.WriteString(tierStyle.Render(snap.Tier))
		b.WriteString("\n\n")
	}

	now := time.Now()
	for _, w := range snap.Windows {
		b.WriteString(renderWindow(w, now))
		b.WriteString("\n")
	}

	if snap.Extra != nil {
		if snap.Extra.LimitUSD != nil {
			b.WriteString(fmt.Sprintf("\nExtra usage: $%.2f / $%.2f\n", snap.Extra.UsedUSD, *snap.Extra.LimitUSD))
		} else {
			b.WriteString(fmt.Sprintf("\nExtra usage: $%.2f\n", snap.Extra.UsedUSD))
		}
	}

	b.WriteString("\n")
	if m.resp.Stale {
		b.WriteString(staleStyle.Render(fmt.Sprintf("⚠ stale data, last fetch failed: %s", state.LastError)))
	} else {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("fetched %s ago", format.Relative(now, snap.FetchedAt))))
	}
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("q: quit"))
	b.WriteString("\n")

	return mainStyle.Render(b.String())
}

func renderWindow(w provider.Window, now time.Time) string {
	pct := format.Percentage(w)

	filled := pct * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}

	barStyle := barOKStyle
	switch {
	case pct >= 90:
		barStyle = barHotStyle
	case pct >= 70:
		barStyle = barWarnStyle
	}

	bar := barStyle.Render(strings.Repeat("█", filled)) +
		barBGStyle.Render(strings.Repeat("░", barWidth-filled))

	return fmt.Sprintf("%-11s %s %3d%%  %s",
		w.Title,
		bar,
		pct,
		subtleStyle.Render("resets in "+format.Relative(w.PeriodEnd, now)),
	)
}

func main() {
	endpoint := flag.String("endpoint", client.DefaultEndpoint, "traylord-d API endpoint")
	flag.Parse()

	p := tea.NewProgram(initialModel(*endpoint))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
