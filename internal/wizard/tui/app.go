package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/session"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery  Screen = "discovery"
	ScreenConnecting Screen = "connecting"
	ScreenDashboard  Screen = "dashboard"
)

// ConnectTimeout bounds opening a session, including the initial fetches
const ConnectTimeout = 20 * time.Second

// Messages for screen transitions
type connectedMsg struct {
	session *session.Session
	err     error
}

// connectKeyMap defines key bindings for the connecting screen
type connectKeyMap struct {
	Retry key.Binding
	Back  key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k connectKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Retry, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k connectKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Retry, k.Back, k.Quit}}
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	// Current screen state
	CurrentScreen  Screen
	PreviousScreen Screen

	// Screen models
	DiscoveryModel DiscoveryModel
	DashboardModel DashboardModel

	// Shared application state
	Registry  *config.Registry
	Target    *Target
	Session   *session.Session
	LastError error

	// Cancels the push channel of the open session
	stopPush context.CancelFunc

	// UI state
	Width   int
	Height  int
	Spinner spinner.Model

	// Help
	Help        help.Model
	ConnectKeys connectKeyMap
}

// NewAppModel creates the application model. With a target it connects
// straight away, otherwise it starts on the discovery screen.
func NewAppModel(registry *config.Registry, target *Target) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	model := AppModel{
		Registry: registry,
		Target:   target,
		Spinner:  s,
		Help:     help.New(),
		ConnectKeys: connectKeyMap{
			Retry: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
			Back:  key.NewBinding(key.WithKeys("b", "esc"), key.WithHelp("b", "choose host")),
			Quit:  key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
	}

	if target != nil {
		model.CurrentScreen = ScreenConnecting
	} else {
		model.CurrentScreen = ScreenDiscovery
		model.DiscoveryModel = NewDiscoveryModel(registry)
	}
	return model
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.Init()
	case ScreenConnecting:
		return tea.Batch(connect(m.Target, m.preferences()), m.Spinner.Tick)
	default:
		return nil
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// Propagate to all screens
		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		m.DashboardModel.Width = msg.Width
		m.DashboardModel.Height = msg.Height
		return m, cmd

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}

	case connectedMsg:
		return m.handleConnected(msg)

	case spinner.TickMsg:
		if m.CurrentScreen == ScreenConnecting && m.LastError == nil {
			var cmd tea.Cmd
			m.Spinner, cmd = m.Spinner.Update(msg)
			return m, cmd
		}
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.CurrentScreen {
	case ScreenDiscovery:
		updated, c := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		cmd = c

		if target := m.DiscoveryModel.GetSelectedTarget(); target != nil {
			m.Target = target
			return m.transitionTo(ScreenConnecting)
		}

		// Quit only from the host list, not while typing
		if m.DiscoveryModel.Mode == entryNone && m.DiscoveryModel.HostList.FilterState() != list.Filtering {
			if keyMsg, ok := msg.(tea.KeyMsg); ok {
				if keyMsg.String() == "q" || keyMsg.String() == "esc" {
					return m, tea.Quit
				}
			}
		}

	case ScreenConnecting:
		return m.handleConnectingScreen(msg)

	case ScreenDashboard:
		updated, c := m.DashboardModel.Update(msg)
		m.DashboardModel = updated.(DashboardModel)
		cmd = c

		if m.DashboardModel.IsBackRequested() {
			m.closeSession()
			return m.transitionTo(ScreenDiscovery)
		}
		if m.DashboardModel.IsQuitRequested() {
			m.Close()
			return m, tea.Quit
		}
	}

	return m, cmd
}

// handleConnectingScreen handles input while connecting or after a failed attempt
func (m AppModel) handleConnectingScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.LastError == nil {
		return m, nil
	}

	switch keyMsg.String() {
	case "r":
		return m.transitionTo(ScreenConnecting)
	case "b", "esc":
		return m.transitionTo(ScreenDiscovery)
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// handleConnected records the new session, remembers the host and opens the dashboard
func (m AppModel) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	if m.CurrentScreen != ScreenConnecting {
		// The user left the connecting screen; drop the late session
		if msg.session != nil {
			msg.session.Close()
		}
		return m, nil
	}

	if msg.err != nil {
		m.LastError = msg.err
		return m, nil
	}

	m.Session = msg.session
	m.rememberHost()

	ctx, cancel := context.WithCancel(context.Background())
	m.stopPush = cancel
	sess := m.Session
	go func() {
		if err := sess.RunPush(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("Push channel stopped", zap.Error(err))
		}
	}()

	return m.transitionTo(ScreenDashboard)
}

// rememberHost saves the connected host so it shows up next time
func (m AppModel) rememberHost() {
	if m.Registry == nil || m.Target == nil {
		return
	}

	host := m.Registry.SetHost(m.Target.Name, m.Target.URL, m.Target.APIKey)
	if m.Target.PluginID != "" {
		host.PluginID = m.Target.PluginID
	}
	host.LegacyCommands = m.Target.Legacy
	m.Registry.UpdateHostLastSeen(m.Target.Name)

	if err := m.Registry.Save(); err != nil {
		logging.Warn("Failed to save host registry",
			zap.String("host", m.Target.Name),
			zap.Error(err),
		)
	}
}

// transitionTo transitions to a new screen
func (m AppModel) transitionTo(screen Screen) (tea.Model, tea.Cmd) {
	m.PreviousScreen = m.CurrentScreen
	m.CurrentScreen = screen

	var cmd tea.Cmd

	switch screen {
	case ScreenDiscovery:
		m.Target = nil
		m.LastError = nil
		m.DiscoveryModel = NewDiscoveryModel(m.Registry)
		m.DiscoveryModel.Width = m.Width
		m.DiscoveryModel.Height = m.Height
		sizeCmd := func() tea.Msg { return tea.WindowSizeMsg{Width: m.Width, Height: m.Height} }
		cmd = tea.Batch(m.DiscoveryModel.Init(), sizeCmd)

	case ScreenConnecting:
		m.LastError = nil
		cmd = tea.Batch(connect(m.Target, m.preferences()), m.Spinner.Tick)

	case ScreenDashboard:
		name := m.Session.Options.Name
		if name == "" {
			name = m.Session.Options.BaseURL
		}
		m.DashboardModel = NewDashboardModel(m.Session, name)
		m.DashboardModel.Width = m.Width
		m.DashboardModel.Height = m.Height
		cmd = m.DashboardModel.Init()
	}

	return m, cmd
}

func (m AppModel) preferences() *config.Preferences {
	if m.Registry == nil {
		return nil
	}
	return m.Registry.Preferences
}

// closeSession stops the push channel and releases the session
func (m *AppModel) closeSession() {
	if m.stopPush != nil {
		m.stopPush()
		m.stopPush = nil
	}
	m.DashboardModel.Close()
	if m.Session != nil {
		m.Session.Close()
		m.Session = nil
	}
}

// Close releases the open session, if any. It is safe to call more than once.
func (m *AppModel) Close() {
	m.closeSession()
}

// View renders the current screen
// Each screen handles its own container using RenderApplicationContainer()
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenConnecting:
		return m.renderConnectingScreen()
	case ScreenDashboard:
		return m.DashboardModel.View()
	default:
		return "Unknown screen"
	}
}

// renderConnectingScreen renders connection progress or the failure that ended it
func (m AppModel) renderConnectingScreen() string {
	var b strings.Builder
	b.WriteString("\n")

	url := ""
	if m.Target != nil {
		url = m.Target.URL
	}

	if m.LastError == nil {
		b.WriteString(RenderTitle(fmt.Sprintf("%s Connecting to %s", m.Spinner.View(), url)))
		b.WriteString("\n")
		b.WriteString(RenderSubtitle("  Loading plugin settings and light status..."))
		return RenderApplicationContainer(b.String(), "", m.Width, m.Height)
	}

	b.WriteString(RenderTitle("✗ Could not connect to " + url))
	b.WriteString("\n")
	b.WriteString(ErrorBoxStyle.Render(hostapi.GetShortErrorMessage(m.LastError)))
	b.WriteString("\n\n")

	if hint := hostapi.GetTroubleshootingHint(m.LastError); hint != "" {
		b.WriteString("Troubleshooting:\n")
		b.WriteString(hint)
		b.WriteString("\n\n")
	}

	b.WriteString(MenuItemStyle.Render("r - Retry"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("b - Choose another host"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("q - Exit application"))
	b.WriteString("\n")

	return RenderApplicationContainer(b.String(), m.Help.View(m.ConnectKeys), m.Width, m.Height)
}

// connect is a command that opens a session for target
func connect(target *Target, prefs *config.Preferences) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
		defer cancel()

		sess, err := session.Open(ctx, session.Options{
			Name:        target.Name,
			BaseURL:     target.URL,
			APIKey:      target.APIKey,
			PluginID:    target.PluginID,
			Legacy:      target.Legacy,
			Preferences: prefs,
		})
		return connectedMsg{session: sess, err: err}
	}
}
