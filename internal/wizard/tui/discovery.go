package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/discovery"
)

// Target is a host the user can connect to, either saved or discovered
type Target struct {
	Name     string
	URL      string
	APIKey   string
	PluginID string
	Legacy   bool
	Version  string // OctoPrint version from mDNS, if discovered
	Saved    bool   // Present in the registry
}

// TargetFromHost builds a Target for a registry entry
func TargetFromHost(name string, host *config.Host) *Target {
	return &Target{
		Name:     name,
		URL:      host.URL,
		APIKey:   host.APIKey,
		PluginID: host.PluginID,
		Legacy:   host.LegacyCommands,
		Saved:    true,
	}
}

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	hosts []*discovery.Host
	err   error
}

// entryMode is what the text input is currently collecting
type entryMode int

const (
	entryNone entryMode = iota
	entryURL
	entryAPIKey
)

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// entryKeyMap defines key bindings while typing a URL or API key
type entryKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k entryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k entryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// hostItem wraps a Target for use with bubbles/list
type hostItem struct {
	target *Target
}

// FilterValue implements list.Item
func (h hostItem) FilterValue() string {
	return h.target.Name + " " + h.target.URL
}

// hostDelegate renders host cards
type hostDelegate struct {
	width int
}

func (d hostDelegate) Height() int { return 7 }

func (d hostDelegate) Spacing() int { return 1 }

func (d hostDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d hostDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	hi, ok := item.(hostItem)
	if !ok {
		return
	}
	target := hi.target
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + target.Name))
	} else {
		content.WriteString("  " + target.Name)
	}
	content.WriteString("\n\n")

	version := target.Version
	if version == "" {
		version = "unknown"
	}
	content.WriteString(fmt.Sprintf("  URL:       %s\n", target.URL))
	content.WriteString(fmt.Sprintf("  OctoPrint: %s\n", version))

	source, color := "Discovered", PrimaryColor
	if target.Saved {
		source, color = "Saved", SecondaryColor
	}
	if target.APIKey == "" {
		source += " • API key needed"
	}
	content.WriteString("  Source:    " + lipgloss.NewStyle().Foreground(color).Bold(true).Render(source))

	cardWidth := d.width - 6 // 2 for margin-left, 4 for border + padding
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(cardWidth)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	_, _ = fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel represents the host selection screen state
type DiscoveryModel struct {
	// Discovery state
	Scanning    bool
	ScanTimeout time.Duration
	HostList    list.Model
	Selected    bool
	Err         error
	saved       []*Target

	// Manual entry state
	Mode      entryMode
	Input     textinput.Model
	pendingTo *Target // Target waiting for an API key

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	EntryKeys     entryKeyMap

	selection *Target
}

// NewDiscoveryModel creates a host selection screen seeded with the saved hosts
func NewDiscoveryModel(registry *config.Registry) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.CharLimit = 256
	input.Width = 50

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	var saved []*Target
	scanTimeout := discovery.DefaultScanTimeout
	if registry != nil {
		for _, name := range registry.HostNames() {
			saved = append(saved, TargetFromHost(name, registry.GetHost(name)))
		}
		if registry.Preferences != nil && registry.Preferences.DiscoverTimeout > 0 {
			scanTimeout = time.Duration(registry.Preferences.DiscoverTimeout) * time.Second
		}
	}

	hostList := list.New(targetItems(saved), hostDelegate{width: MinTerminalWidth}, 0, 0)
	hostList.Title = "OctoPrint Hosts"
	hostList.SetShowStatusBar(false)
	hostList.SetFilteringEnabled(true)
	hostList.Styles.Title = TitleStyle

	return DiscoveryModel{
		ScanTimeout: scanTimeout,
		HostList:    hostList,
		saved:       saved,
		Input:       input,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys: discoveryKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Enter:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "connect")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter URL")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		EntryKeys: entryKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

func targetItems(targets []*Target) []list.Item {
	items := make([]list.Item, len(targets))
	for i, t := range targets {
		items[i] = hostItem{target: t}
	}
	return items
}

// Init starts a scan immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanHosts(m.ScanTimeout),
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Mode != entryNone {
			return m.updateEntry(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.HostList.SetDelegate(hostDelegate{width: msg.Width - 4})
		m.HostList.SetWidth(msg.Width - 4)
		m.HostList.SetHeight(msg.Height - 10) // Leave room for header/footer

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		m.HostList.SetItems(targetItems(mergeTargets(m.saved, msg.hosts)))

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if m.Mode == entryNone && !m.Scanning {
		m.HostList, cmd = m.HostList.Update(msg)
	}
	return m, cmd
}

// mergeTargets lists saved hosts first, then discovered hosts whose URL is not saved
func mergeTargets(saved []*Target, found []*discovery.Host) []*Target {
	targets := append([]*Target(nil), saved...)
	known := make(map[string]*Target, len(saved))
	for _, t := range saved {
		known[strings.TrimRight(t.URL, "/")] = t
	}

	for _, h := range found {
		url := h.BaseURL()
		if t, ok := known[url]; ok {
			t.Version = h.Version()
			continue
		}
		targets = append(targets, &Target{
			Name:    h.ShortName(),
			URL:     url,
			Version: h.Version(),
		})
	}
	return targets
}

// updateNormalMode handles keyboard input on the host list
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.HostList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.HostList, cmd = m.HostList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter", " ":
		item, ok := m.HostList.SelectedItem().(hostItem)
		if !ok {
			return m, nil
		}
		if item.target.APIKey == "" {
			m.pendingTo = item.target
			m.beginEntry(entryAPIKey)
			return m, nil
		}
		m.selection = item.target
		m.Selected = true
		return m, nil

	case "r":
		if m.Scanning {
			return m, nil
		}
		m.Err = nil
		return m, m.startScan()

	case "m":
		m.beginEntry(entryURL)
		return m, nil
	}

	var cmd tea.Cmd
	m.HostList, cmd = m.HostList.Update(msg)
	return m, cmd
}

func (m *DiscoveryModel) beginEntry(mode entryMode) {
	m.Mode = mode
	m.Input.SetValue("")
	switch mode {
	case entryURL:
		m.Input.Placeholder = "http://octopi.local"
		m.Input.EchoMode = textinput.EchoNormal
	case entryAPIKey:
		m.Input.Placeholder = "OctoPrint application key"
		m.Input.EchoMode = textinput.EchoPassword
		m.Input.EchoCharacter = '•'
	}
	m.Input.Focus()
}

func (m *DiscoveryModel) endEntry() {
	m.Mode = entryNone
	m.Input.SetValue("")
	m.Input.Blur()
}

// updateEntry handles keyboard input while typing a URL or API key
func (m DiscoveryModel) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pendingTo = nil
		m.endEntry()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.Input.Value())
		if value == "" {
			return m, nil
		}

		switch m.Mode {
		case entryURL:
			if !strings.Contains(value, "://") {
				value = "http://" + value
			}
			m.pendingTo = &Target{Name: hostNameFromURL(value), URL: strings.TrimRight(value, "/")}
			m.beginEntry(entryAPIKey)

		case entryAPIKey:
			m.pendingTo.APIKey = value
			m.selection = m.pendingTo
			m.pendingTo = nil
			m.Selected = true
			m.endEntry()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// hostNameFromURL derives a registry name from a URL ("http://octopi.local:80" → "octopi")
func hostNameFromURL(url string) string {
	name := url
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	if i := strings.IndexAny(name, ":/"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, ".local")
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content, helpText string
	switch {
	case m.Mode != entryNone:
		content = m.renderEntry()
		helpText = m.Help.View(m.EntryKeys)
	case m.Scanning && len(m.HostList.Items()) == 0:
		content = m.renderScanning(width)
		helpText = m.Help.View(m.Keys)
	default:
		content = m.renderHostResults()
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a centered scanning progress display
func (m DiscoveryModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)
	percent := 0.0
	if m.ScanTimeout > 0 {
		percent = min(1, elapsed.Seconds()/m.ScanTimeout.Seconds())
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s SEARCHING FOR OCTOPRINT", m.Spinner.View())),
		"",
		SubtitleStyle.Render("Scanning your network for OctoPrint hosts..."),
		"",
		m.ProgressBar.ViewAs(percent),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderHostResults renders the host list or a "no hosts found" message
func (m DiscoveryModel) renderHostResults() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n\n")
	}

	if len(m.HostList.Items()) == 0 {
		warningStyle := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
		b.WriteString("  ")
		b.WriteString(warningStyle.Render("⚠ No OctoPrint hosts found"))
		b.WriteString("\n\n")
		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Ensure the printer host is powered on and OctoPrint is running\n")
		b.WriteString("    • mDNS (UDP 5353) must be allowed between this machine and the host\n")
		b.WriteString("    • Press 'm' to enter the host URL directly\n")
		return b.String()
	}

	if m.Scanning {
		b.WriteString("  " + m.Spinner.View() + SubtitleStyle.Render(" scanning for more hosts..."))
		b.WriteString("\n")
	}
	b.WriteString(m.HostList.View())
	return b.String()
}

// renderEntry renders the URL or API key prompt
func (m DiscoveryModel) renderEntry() string {
	var b strings.Builder
	b.WriteString("\n")

	switch m.Mode {
	case entryURL:
		b.WriteString(RenderSubtitle("  Enter the OctoPrint URL"))
		b.WriteString("\n\n  URL:     ")
	case entryAPIKey:
		b.WriteString(RenderSubtitle(fmt.Sprintf("  Enter an API key for %s", m.pendingTo.URL)))
		b.WriteString("\n\n  API key: ")
	}
	b.WriteString(m.Input.View())
	b.WriteString("\n\n")
	b.WriteString(SubtitleStyle.Render("  Create one under User Settings → Application Keys in OctoPrint"))
	b.WriteString("\n")

	return b.String()
}

// GetSelectedTarget returns the chosen host, or nil before a selection
func (m DiscoveryModel) GetSelectedTarget() *Target {
	if !m.Selected {
		return nil
	}
	return m.selection
}

// scanHosts is a command that performs mDNS host discovery
func scanHosts(timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		hosts, err := discovery.ScanForHosts(context.Background(), timeout)
		return scanCompleteMsg{hosts: hosts, err: err}
	}
}
