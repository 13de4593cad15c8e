package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tasksync/internal/connectivity"
)

// newStatusCmd launches a live connectivity/conflict status view, grounded
// on internal/views/builder/model.go's tea.Model Init/Update/View shape.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a live connectivity and conflict status view",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			sys.withConnectivity(func(online bool) {})

			p := tea.NewProgram(newStatusModel(sys))
			_, err = p.Run()
			return err
		},
	}
}

type statusTickMsg time.Time

type statusModel struct {
	sys        *system
	status     connectivity.Status
	nConflicts int
	quitting   bool
}

func newStatusModel(sys *system) statusModel {
	return statusModel{sys: sys}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m statusModel) Init() tea.Cmd {
	return tickEvery(time.Second)
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case statusTickMsg:
		m.status = m.sys.monitor.Status()
		m.nConflicts = len(m.sys.engine.Conflicts())
		return m, tickEvery(time.Second)
	}

	return m, nil
}

func (m statusModel) View() string {
	if m.quitting {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("tasksyncd status")

	connStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	connLabel := "online"
	if !m.status.IsOnline {
		connStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
		connLabel = "offline"
	}

	since := "never"
	if !m.status.LastSuccessfulAt.IsZero() {
		since = m.status.TimeSinceLastSuccess.Round(time.Second).String() + " ago"
	}

	conflictStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	return fmt.Sprintf("%s\n\nconnectivity: %s\nlast successful probe: %s\n%s\n\nq to quit",
		title,
		connStyle.Render(connLabel),
		since,
		conflictStyle.Render(fmt.Sprintf("unresolved conflicts: %d", m.nConflicts)),
	)
}
