package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/pulseguard/internal/client"
	"github.com/muurk/pulseguard/internal/site"
)

// watchKeyMap defines key bindings for the watch dashboard
type watchKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Refresh, k.Quit},
	}
}

func defaultWatchKeys() watchKeyMap {
	return watchKeyMap{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Messages
type connectedMsg struct{ err error }
type updatedMsg struct{}
type refreshedMsg struct{ ok bool }
type tickMsg time.Time

// WatchModel is the live dashboard shown by 'pulseguard watch --tui'.
// It logs in on startup, then redraws whenever the engine signals that
// remote state changed.
type WatchModel struct {
	client  *client.Client
	handler *site.Handler

	spinner spinner.Model
	help    help.Model
	keys    watchKeyMap

	connecting bool
	connectErr error
	site       site.Site
	updates    int

	width  int
	height int
}

// NewWatchModel creates the dashboard model. The client must be
// initialized but not yet logged in; the model performs the login so
// the spinner has something honest to show.
func NewWatchModel(c *client.Client, h *site.Handler) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(PrimaryColor)
	return WatchModel{
		client:     c,
		handler:    h,
		spinner:    sp,
		help:       help.New(),
		keys:       defaultWatchKeys(),
		connecting: true,
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loginCmd())
}

func (m WatchModel) loginCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.client.LoginContext(context.Background())
		if err == nil && !m.client.Connected() {
			err = fmt.Errorf("portal rejected the credentials")
		}
		return connectedMsg{err: err}
	}
}

func (m WatchModel) waitForUpdateCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.client.WaitForUpdateContext(context.Background()); err != nil {
			return nil
		}
		return updatedMsg{}
	}
}

func (m WatchModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{ok: m.client.UpdateContext(context.Background())}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if !m.connecting {
				return m, m.refreshCmd()
			}
		}
		return m, nil

	case connectedMsg:
		m.connecting = false
		m.connectErr = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.site = m.handler.Snapshot()
		return m, tea.Batch(m.waitForUpdateCmd(), tickCmd())

	case updatedMsg:
		m.updates++
		m.site = m.handler.Snapshot()
		return m, m.waitForUpdateCmd()

	case refreshedMsg:
		if msg.ok {
			m.site = m.handler.Snapshot()
		}
		return m, nil

	case tickMsg:
		// Keep relative timestamps moving even without remote changes
		m.site = m.handler.Snapshot()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("PULSEGUARD"))
	b.WriteString("\n\n")

	if m.connecting {
		b.WriteString(fmt.Sprintf("%s Connecting to %s...\n",
			m.spinner.View(), m.client.Host()))
		return b.String()
	}
	if m.connectErr != nil {
		b.WriteString(ErrStyle.Render(fmt.Sprintf("Connection failed: %v", m.connectErr)))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	name := m.site.Name
	if name == "" {
		name = "(site not yet discovered)"
	}
	b.WriteString(fmt.Sprintf("%s  %s\n", ZoneHeaderStyle.Render(name),
		alarmStyle(m.site.AlarmStatus).Render(displayStatus(m.site.AlarmStatus))))
	b.WriteString(HelpStyle.Render(fmt.Sprintf("portal %s  ·  %d update signals  ·  last sync %s",
		m.client.Version(), m.updates, relativeTime(m.site.LastUpdated))))
	b.WriteString("\n\n")

	b.WriteString(m.renderZones())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m WatchModel) renderZones() string {
	if len(m.site.Zones) == 0 {
		return HelpStyle.Render("No zones reported yet.") + "\n"
	}
	var b strings.Builder
	b.WriteString(ZoneHeaderStyle.Render(fmt.Sprintf("  %-4s %-24s %-12s %-14s %s",
		"ID", "ZONE", "STATE", "STATUS", "LAST ACTIVITY")))
	b.WriteString("\n")
	for _, zone := range m.site.Zones {
		style := ZoneClosedStyle
		if strings.EqualFold(zone.State, "Open") || strings.EqualFold(zone.State, "Motion") {
			style = ZoneOpenStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("  %-4d %-24s %-12s %-14s %s",
			zone.ID, truncate(zone.Name, 24), zone.State, zone.Status,
			relativeTime(zone.LastActivity))))
		b.WriteString("\n")
	}
	return b.String()
}

func displayStatus(status string) string {
	if status == "" {
		return "status unknown"
	}
	return status
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}
