package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/ledstatus"
	"github.com/muurk/ledstatus/internal/session"
	"github.com/muurk/ledstatus/internal/ui"
)

const (
	// actionTimeout bounds a single command sent from the dashboard
	actionTimeout = 30 * time.Second

	// pushStatusInterval is how often the push connection state is redrawn
	pushStatusInterval = 2 * time.Second
)

// Tab is a dashboard page
type Tab int

const (
	TabControl Tab = iota
	TabSetup
	TabDiagnostics
	TabTriggers
)

var allTabs = []Tab{TabControl, TabSetup, TabDiagnostics, TabTriggers}

func (t Tab) String() string {
	switch t {
	case TabControl:
		return "Control"
	case TabSetup:
		return "Setup"
	case TabDiagnostics:
		return "Diagnostics"
	case TabTriggers:
		return "Triggers"
	default:
		return fmt.Sprintf("Tab(%d)", int(t))
	}
}

// id is the name reported to the navbar on tab changes
func (t Tab) id() string {
	return strings.ToLower(t.String())
}

// Message types for async operations
type refreshMsg struct {
	ch chan struct{}
}

type actionDoneMsg struct {
	action string
	err    error
}

type pushTickMsg time.Time

// passwordAction is what a submitted sudo password is used for
type passwordAction int

const (
	passwordForNothing passwordAction = iota
	passwordForStep
	passwordForFix
)

// dashboardKeyMap defines key bindings for the dashboard screen
type dashboardKeyMap struct {
	NextTab key.Binding
	PrevTab key.Binding
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Help    key.Binding
	Back    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Enter, k.Help, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTab, k.PrevTab, k.Enter},
		{k.Help, k.Back, k.Quit},
	}
}

// DashboardModel is the connected view of one host
type DashboardModel struct {
	Session  *session.Session
	HostName string

	// UI state
	Width       int
	Height      int
	ActiveTab   Tab
	ShowingHelp bool
	Spinner     spinner.Model
	Help        help.Model
	Keys        dashboardKeyMap

	// Per-tab cursors
	StepCursor     int
	FailureCursor  int
	CategoryCursor int
	RuleCursor     int

	// Shared sudo password prompt for setup steps and fixes
	Password        textinput.Model
	PasswordFocused bool
	passwordFor     passwordAction

	// Inline trigger editor, nil when closed
	Editor *ruleEditor

	// Action state
	Busy          string
	Status        string
	StatusIsError bool
	Notice        string // Result of the last finish check
	Unsaved       bool   // Trigger lists differ from the host

	// Subscription plumbing
	updates     chan struct{}
	done        chan struct{}
	unsubscribe []func()

	backRequested bool
	quitRequested bool
}

// NewDashboardModel creates the dashboard for an open session and
// subscribes to every component's changes.
func NewDashboardModel(sess *session.Session, hostName string) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	password := textinput.New()
	password.Placeholder = "sudo password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 30

	m := DashboardModel{
		Session:  sess,
		HostName: hostName,
		Spinner:  s,
		Help:     help.New(),
		Password: password,
		updates:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		Keys: dashboardKeyMap{
			NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
			PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous tab")),
			Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run")),
			Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
			Back:    key.NewBinding(key.WithKeys("b", "esc"), key.WithHelp("b", "hosts")),
			Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
	}

	if sess != nil {
		updates := m.updates
		notify := func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		}
		m.unsubscribe = []func(){
			sess.Navbar.Subscribe(notify),
			sess.Wizard.Subscribe(notify),
			sess.Diagnostics.Subscribe(notify),
			sess.Settings.Subscribe(notify),
		}
	}
	return m
}

// Init starts listening for component changes and reports the initial tab
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(m.updates, m.done),
		pushTick(),
		m.tabChange("", m.ActiveTab.id()),
	)
}

// Close unsubscribes from the session's components and switches off a
// torch that was turned on for the control tab.
func (m *DashboardModel) Close() {
	if m.done == nil {
		return
	}
	for _, unsubscribe := range m.unsubscribe {
		unsubscribe()
	}
	m.unsubscribe = nil
	close(m.done)
	m.done = nil

	if m.Session != nil && m.Session.Navbar != nil && m.ActiveTab == TabControl {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = m.Session.Navbar.OnTabChange(ctx, m.ActiveTab.id(), "")
	}
}

// Update handles messages and updates the model
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case refreshMsg:
		if msg.ch != m.updates || m.done == nil {
			return m, nil
		}
		return m, waitForUpdate(m.updates, m.done)

	case pushTickMsg:
		return m, pushTick()

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case spinner.TickMsg:
		if m.Busy == "" && !m.testRunning() {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.ShowingHelp {
			m.ShowingHelp = false
			return m, nil
		}
		if m.PasswordFocused {
			return m.updatePassword(msg)
		}
		if m.Editor != nil {
			return m.updateEditor(msg)
		}
		return m.updateNormalMode(msg)
	}

	return m, nil
}

// updateNormalMode handles keys shared by all tabs, then the active tab's keys
func (m DashboardModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		return m.switchTab(Tab((int(m.ActiveTab) + 1) % len(allTabs)))
	case "shift+tab":
		return m.switchTab(Tab((int(m.ActiveTab) + len(allTabs) - 1) % len(allTabs)))
	case "1", "2", "3", "4":
		return m.switchTab(Tab(int(msg.String()[0] - '1')))
	case "?":
		m.ShowingHelp = true
		return m, nil
	case "b", "esc":
		m.backRequested = true
		return m, nil
	case "q":
		m.quitRequested = true
		return m, nil
	}

	switch m.ActiveTab {
	case TabControl:
		return m.updateControlTab(msg)
	case TabSetup:
		return m.updateSetupTab(msg)
	case TabDiagnostics:
		return m.updateDiagnosticsTab(msg)
	case TabTriggers:
		return m.updateTriggersTab(msg)
	}
	return m, nil
}

// switchTab changes the visible tab and reports it to the navbar
func (m DashboardModel) switchTab(next Tab) (tea.Model, tea.Cmd) {
	if next == m.ActiveTab {
		return m, nil
	}
	previous := m.ActiveTab
	m.ActiveTab = next
	m.Status = ""
	return m, m.tabChange(previous.id(), next.id())
}

func (m DashboardModel) tabChange(previous, next string) tea.Cmd {
	if next == "" {
		return nil
	}
	if previous == "" {
		previous = "connect"
	}
	return m.run("torch", func(ctx context.Context) error {
		return m.Session.Navbar.OnTabChange(ctx, previous, next)
	})
}

// run executes fn asynchronously and reports the result as actionDoneMsg
func (m DashboardModel) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// start marks an action as running and starts the spinner
func (m DashboardModel) start(action string, fn func(ctx context.Context) error) (DashboardModel, tea.Cmd) {
	m.Busy = action
	m.Status = ""
	return m, tea.Batch(m.run(action, fn), m.Spinner.Tick)
}

func (m DashboardModel) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.action == m.Busy {
		m.Busy = ""
	}

	switch {
	case msg.err == nil:
		if msg.action != "torch" {
			m.Status = msg.action + " done"
			m.StatusIsError = false
		}
		switch msg.action {
		case "save triggers", "reload triggers":
			m.Unsaved = false
		}

	case errors.Is(msg.err, ledstatus.ErrPasswordRequired):
		m.Status = "The host needs the sudo password for " + msg.action
		m.StatusIsError = true
		m.PasswordFocused = true
		return m, m.Password.Focus()

	case errors.Is(msg.err, ledstatus.ErrInFlight):
		m.Status = "Still waiting for the previous " + msg.action + " request"
		m.StatusIsError = true

	default:
		m.Status = fmt.Sprintf("%s failed: %s", msg.action, hostapi.GetShortErrorMessage(msg.err))
		m.StatusIsError = true
	}
	return m, nil
}

// updatePassword handles typing into the sudo password prompt
func (m DashboardModel) updatePassword(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.PasswordFocused = false
		m.passwordFor = passwordForNothing
		m.Password.Blur()
		return m, nil

	case "enter":
		m.PasswordFocused = false
		m.Password.Blur()
		action := m.passwordFor
		m.passwordFor = passwordForNothing

		switch action {
		case passwordForStep:
			return m.runStep()
		case passwordForFix:
			return m.runFix()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.Password, cmd = m.Password.Update(msg)
	return m, cmd
}

// Control tab

func (m DashboardModel) updateControlTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	navbar := m.Session.Navbar

	switch msg.String() {
	case "l":
		return m.start("lights", navbar.ToggleLights)
	case "t":
		return m.start("torch button", navbar.ToggleTorch)
	case "T":
		return m.start("torch off", func(ctx context.Context) error {
			return navbar.SetTorch(ctx, false)
		})
	case "r":
		return m.start("refresh", navbar.Hydrate)
	}
	return m, nil
}

func (m DashboardModel) renderControlTab() string {
	state := m.Session.Navbar.State()
	opts := m.Session.Navbar.Options()
	settings := m.Session.Settings.Settings()

	lines := []string{
		m.renderField("Lights", RenderLightBadge(state.LightsOn), false),
	}

	torch := "disabled on the host"
	if opts.TorchEnabled {
		mode := "toggle"
		if !opts.TorchToggle {
			mode = fmt.Sprintf("momentary, %s", opts.TorchTimer)
		}
		if opts.TorchAutoOnWebcam {
			mode += ", on with webcam"
		}
		torch = RenderLightBadge(state.TorchOn) + SubtitleStyle.Render("  ("+mode+")")
	}
	lines = append(lines, m.renderField("Torch", torch, false))

	if count := int(settings.Strip.Count); count > 0 {
		lines = append(lines, m.renderField("Strip", fmt.Sprintf("%d LEDs", count), false))
	}
	lines = append(lines, m.renderField("Push channel", m.renderPushStatus(), false))

	parts := []string{m.renderSection("LIGHTS", lines)}

	if state.DeprecatedCommand != "" {
		warning := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
		parts = append(parts, "",
			warning.Render("⚠ Deprecated @ command in use: "+state.DeprecatedCommand),
			SubtitleStyle.Render("  Switch to the replacement command, see the plugin's @ command documentation."),
		)
	}

	parts = append(parts, "", HelpStyle.Render("l toggle lights • t torch • T torch off • r refresh"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m DashboardModel) renderPushStatus() string {
	if m.Session.Push == nil {
		return "not started"
	}
	status := m.Session.Push.Status()
	switch {
	case status.Connected:
		return lipgloss.NewStyle().Foreground(SecondaryColor).Render("connected")
	case status.Reconnecting && status.LastError != "":
		return lipgloss.NewStyle().Foreground(WarningColor).Render("reconnecting (" + status.LastError + ")")
	case status.Reconnecting:
		return lipgloss.NewStyle().Foreground(WarningColor).Render("reconnecting")
	default:
		return SubtitleStyle.Render("connecting")
	}
}

// Setup tab

func (m DashboardModel) updateSetupTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.StepCursor > 0 {
			m.StepCursor--
		}
	case "down", "j":
		if m.StepCursor < len(ledstatus.AllSteps)-1 {
			m.StepCursor++
		}
	case "enter", " ":
		return m.runStep()
	case "p":
		m.passwordFor = passwordForStep
		m.PasswordFocused = true
		return m, m.Password.Focus()
	case "f":
		m.Notice = m.Session.Wizard.Finish().Message()
	case "r":
		wizard := m.Session.Wizard
		api := m.Session.API
		return m.start("reload wizard", func(ctx context.Context) error {
			details, err := api.WizardDetails(ctx)
			if err != nil {
				return err
			}
			return wizard.Hydrate(details)
		})
	}
	return m, nil
}

// runStep runs the selected setup step with the entered password
func (m DashboardModel) runStep() (tea.Model, tea.Cmd) {
	step := ledstatus.AllSteps[m.StepCursor]
	password := m.Password.Value()
	wizard := m.Session.Wizard

	m.passwordFor = passwordForStep
	next, cmd := m.start(step.Label(), func(ctx context.Context) error {
		return wizard.RunStep(ctx, step, password)
	})
	return next, cmd
}

func (m DashboardModel) renderSetupTab() string {
	state := m.Session.Wizard.State()

	var intro string
	if m.Session.WizardPresent {
		intro = "Prepare the Raspberry Pi for driving the LED strip. Each step needs the sudo password."
	} else {
		intro = "The setup wizard was already completed on this host. Steps can still be re-run."
	}

	lines := make([]string, 0, len(ledstatus.AllSteps))
	for i, step := range ledstatus.AllSteps {
		label := RenderCheck(state.Done[step]) + " " + step.Label()
		lines = append(lines, m.renderCursorLine(label, i == m.StepCursor))
	}

	parts := []string{
		SubtitleStyle.Render(intro),
		"",
		m.renderSection("SETUP STEPS", lines),
		"",
		m.renderPasswordLine(),
	}
	if state.Complete() {
		parts = append(parts, "", lipgloss.NewStyle().Foreground(SecondaryColor).Render("All steps complete. Press f to finish."))
	}
	if m.Notice != "" {
		parts = append(parts, "", InfoBoxStyle.Render(m.Notice))
	}
	parts = append(parts, "", HelpStyle.Render("enter run step • p password • f finish • r reload"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Diagnostics tab

func (m DashboardModel) testRunning() bool {
	return m.Session != nil && m.Session.Diagnostics.Report().InProgress
}

func (m DashboardModel) updateDiagnosticsTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	failures := m.Session.Diagnostics.Report().Failures

	switch msg.String() {
	case "up", "k":
		if m.FailureCursor > 0 {
			m.FailureCursor--
		}
	case "down", "j":
		if m.FailureCursor < len(failures)-1 {
			m.FailureCursor++
		}
	case "enter", "s":
		m.FailureCursor = 0
		m.Notice = ""
		return m.start("OS config test", m.Session.Diagnostics.RunConfigTest)
	case "f":
		if len(failures) == 0 {
			return m, nil
		}
		return m.runFix()
	case "p":
		m.passwordFor = passwordForFix
		m.PasswordFocused = true
		return m, m.Password.Focus()
	}
	return m, nil
}

// runFix runs the fix of the selected failure with the entered password
func (m DashboardModel) runFix() (tea.Model, tea.Cmd) {
	index := m.FailureCursor
	password := m.Password.Value()
	diagnostics := m.Session.Diagnostics

	m.passwordFor = passwordForFix
	next, cmd := m.start("fix", func(ctx context.Context) error {
		return diagnostics.RunFix(ctx, index, password)
	})
	return next, cmd
}

func (m DashboardModel) renderDiagnosticsTab() string {
	report := m.Session.Diagnostics.Report()

	progress := ui.NewTestProgress().SetWidth(m.contentWidth())
	progress.ApplyReport(report)

	parts := []string{progress.Render()}

	if report.InProgress {
		parts = append(parts, "", m.Spinner.View()+" "+SubtitleStyle.Render("Running "+report.CurrentTest+"..."))
	}

	if len(report.Failures) > 0 {
		lines := make([]string, 0, len(report.Failures))
		for i, failure := range report.Failures {
			label := fmt.Sprintf("%s %s: %s", RenderCheck(failure.Fixed), failure.Name, failure.ReasonText)
			if failure.Fixed {
				label += SubtitleStyle.Render(" (fixed, restart required)")
			}
			lines = append(lines, m.renderCursorLine(label, i == m.FailureCursor))
		}
		parts = append(parts, "", m.renderSection("FAILED TESTS", lines), "", m.renderPasswordLine())
	}

	if !report.InProgress && len(report.Successes)+len(report.Failures) > 0 {
		if msg := m.Session.FinishWizard().Message(); msg != "" {
			parts = append(parts, "", InfoBoxStyle.Render(msg))
		}
	}

	parts = append(parts, "", HelpStyle.Render("enter start test • f fix selected • p password"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Rendering helpers

func (m DashboardModel) contentWidth() int {
	width := m.Width - 8
	if width < MinTerminalWidth-8 {
		width = MinTerminalWidth - 8
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}
	return width
}

// renderField renders a label/value line
func (m DashboardModel) renderField(label string, value string, selected bool) string {
	labelStyle := lipgloss.NewStyle().Width(16).Foreground(SubtleColor)
	valueStyle := lipgloss.NewStyle()

	if selected {
		labelStyle = labelStyle.Foreground(HighlightColor).Bold(true)
		valueStyle = valueStyle.Foreground(HighlightColor).Bold(true)
	}

	arrow := "  "
	if selected {
		arrow = "→ "
	}

	return lipgloss.JoinHorizontal(lipgloss.Left,
		arrow,
		labelStyle.Render(label),
		valueStyle.Render(value),
	)
}

// renderCursorLine renders a list entry with the selection arrow
func (m DashboardModel) renderCursorLine(text string, selected bool) string {
	if selected {
		return SelectedMenuItemStyle.Render("→ ") + text
	}
	return "    " + text
}

// renderSection renders a titled block of lines
func (m DashboardModel) renderSection(title string, lines []string) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true)

	parts := append([]string{titleStyle.Render(title)}, lines...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m DashboardModel) renderPasswordLine() string {
	label := "  Password: "
	if m.PasswordFocused {
		label = FocusedInputStyle.Render("→ Password: ")
	}
	return label + m.Password.View()
}

func (m DashboardModel) renderTabBar() string {
	tabs := make([]string, 0, len(allTabs))
	for i, tab := range allTabs {
		label := fmt.Sprintf("%d %s", i+1, tab)
		if tab == m.ActiveTab {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m DashboardModel) renderStatusLine() string {
	switch {
	case m.Busy != "":
		return m.Spinner.View() + " " + SubtitleStyle.Render(m.Busy+"...")
	case m.Status == "":
		return ""
	case m.StatusIsError:
		return lipgloss.NewStyle().Foreground(ErrorColor).Render("✗ " + m.Status)
	default:
		return lipgloss.NewStyle().Foreground(SecondaryColor).Render("✓ " + m.Status)
	}
}

// IsBackRequested reports whether the user asked to return to host selection
func (m DashboardModel) IsBackRequested() bool {
	return m.backRequested
}

// IsQuitRequested reports whether the user asked to exit
func (m DashboardModel) IsQuitRequested() bool {
	return m.quitRequested
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.Session == nil {
		return ""
	}
	if m.ShowingHelp {
		return RenderModal(m.renderHelpModalContent(), m.Width, m.Height)
	}

	var body string
	switch m.ActiveTab {
	case TabControl:
		body = m.renderControlTab()
	case TabSetup:
		body = m.renderSetupTab()
	case TabDiagnostics:
		body = m.renderDiagnosticsTab()
	case TabTriggers:
		body = m.renderTriggersTab()
	}

	host := lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(m.HostName) +
		SubtitleStyle.Render("  "+m.Session.API.BaseURL)

	content := lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left,
		"",
		host,
		"",
		m.renderTabBar(),
		"",
		body,
		"",
		m.renderStatusLine(),
	))

	return RenderApplicationContainer(content, m.Help.View(m.Keys), m.Width, m.Height)
}

// renderHelpModalContent renders the key reference for every tab
func (m DashboardModel) renderHelpModalContent() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("DASHBOARD HELP"),
		"",
		subtitleStyle.Render("Control:"),
		"  l  Toggle the LED strip",
		"  t  Press the torch button (toggle or timed, per plugin settings)",
		"  T  Switch the torch off",
		"  r  Re-read the light status from the host",
		"",
		subtitleStyle.Render("Setup:"),
		"  enter  Run the selected step",
		"  p      Enter the sudo password",
		"  f      Finish the wizard",
		"",
		subtitleStyle.Render("Diagnostics:"),
		"  enter  Run the OS configuration test",
		"  f      Apply the fix for the selected failure",
		"",
		subtitleStyle.Render("Triggers:"),
		"  ←/→    Switch category",
		"  n e d  New, edit, delete rule",
		"  t      Test the selected rule on the strip",
		"  s      Save all trigger lists to the host",
		"",
		"Press any key to close this help screen",
	)

	width := SafeModalWidth(76, m.Width)
	return BoxStyle.Width(width).Render(content)
}

// waitForUpdate blocks until a subscribed component changes
func waitForUpdate(ch chan struct{}, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ch:
			return refreshMsg{ch: ch}
		case <-done:
			return nil
		}
	}
}

// pushTick redraws the push connection state periodically
func pushTick() tea.Cmd {
	return tea.Tick(pushStatusInterval, func(t time.Time) tea.Msg {
		return pushTickMsg(t)
	})
}
