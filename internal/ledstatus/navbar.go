package ledstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/push"
)

// Push message types handled by Navbar
const (
	PushTypeLights        = "lights"
	PushTypeTorch         = "torch"
	PushTypeATDeprecation = "at_cmd_deprecation"
)

// DefaultControlTab is the tab that shows the webcam
const DefaultControlTab = "control"

// NavbarOptions mirrors the torch settings that change Navbar behaviour
type NavbarOptions struct {
	// TorchEnabled reports whether the torch effect is enabled at all
	TorchEnabled bool

	// TorchToggle switches the torch button from momentary to on/off toggle
	TorchToggle bool

	// TorchAutoOnWebcam turns the torch on while the control tab is visible
	TorchAutoOnWebcam bool

	// TorchTimer is how long a momentary torch stays on. After it elapses
	// the state is re-read from the host. Zero disables the re-read.
	TorchTimer time.Duration

	// ControlTab names the tab that shows the webcam (default: "control")
	ControlTab string
}

// NavbarOptionsFromSettings derives options from the plugin's torch settings
func NavbarOptionsFromSettings(s TorchSettings) NavbarOptions {
	return NavbarOptions{
		TorchEnabled:      s.Enabled,
		TorchToggle:       s.Toggle,
		TorchAutoOnWebcam: s.AutoOnWebcam,
		TorchTimer:        time.Duration(s.Timer) * time.Second,
		ControlTab:        DefaultControlTab,
	}
}

// NavbarState is a snapshot of the toolbar status
type NavbarState struct {
	LightState

	// Hydrated is set once the initial status fetch succeeded
	Hydrated bool

	// DeprecatedCommand is the last deprecated @ command the host reported
	DeprecatedCommand string
}

// Navbar tracks the strip and torch state shown in the toolbar and
// issues the light and torch commands.
type Navbar struct {
	notifier

	cmd      Commander
	status   StatusSource
	pluginID string
	opts     NavbarOptions

	mu                sync.Mutex
	state             LightState
	hydrated          bool
	deprecatedCommand string
	torchTimer        *time.Timer

	lightsInFlight atomic.Bool
	torchInFlight  atomic.Bool
}

// NewNavbar creates a Navbar for the given plugin id
func NewNavbar(cmd Commander, status StatusSource, pluginID string, opts NavbarOptions) *Navbar {
	if opts.ControlTab == "" {
		opts.ControlTab = DefaultControlTab
	}
	return &Navbar{
		cmd:      cmd,
		status:   status,
		pluginID: pluginID,
		opts:     opts,
	}
}

// State returns a snapshot of the toolbar state
func (n *Navbar) State() NavbarState {
	n.mu.Lock()
	defer n.mu.Unlock()

	return NavbarState{
		LightState:        n.state,
		Hydrated:          n.hydrated,
		DeprecatedCommand: n.deprecatedCommand,
	}
}

// Options returns the options the Navbar was created with
func (n *Navbar) Options() NavbarOptions {
	return n.opts
}

// Hydrate seeds the state with one status fetch before the first render
func (n *Navbar) Hydrate(ctx context.Context) error {
	status, err := n.status.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetch light status: %w", err)
	}

	n.mu.Lock()
	n.state = lightStateFrom(status)
	n.hydrated = true
	n.mu.Unlock()

	n.notify()
	return nil
}

// ToggleLights switches the strip to the opposite of its known state
func (n *Navbar) ToggleLights(ctx context.Context) error {
	n.mu.Lock()
	on := n.state.LightsOn
	n.mu.Unlock()

	return n.SetLights(ctx, !on)
}

// SetLights sends lights_on or lights_off and applies the host's answer
func (n *Navbar) SetLights(ctx context.Context, on bool) error {
	if !n.lightsInFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer n.lightsInFlight.Store(false)

	command := hostapi.CmdLightsOff
	if on {
		command = hostapi.CmdLightsOn
	}

	data, err := n.cmd.Command(ctx, command, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	n.applyResponse(command, data)
	return nil
}

// ToggleTorch presses the torch button. In toggle mode the host flips the
// torch and the new state arrives by push; otherwise the torch is switched
// on for the configured timer.
func (n *Navbar) ToggleTorch(ctx context.Context) error {
	if n.opts.TorchToggle {
		if !n.torchInFlight.CompareAndSwap(false, true) {
			return ErrInFlight
		}
		defer n.torchInFlight.Store(false)

		if _, err := n.cmd.Command(ctx, hostapi.CmdToggleTorch, nil); err != nil {
			return fmt.Errorf("%s: %w", hostapi.CmdToggleTorch, err)
		}
		return nil
	}
	return n.SetTorch(ctx, true)
}

// SetTorch sends torch_on or torch_off and applies the host's answer
func (n *Navbar) SetTorch(ctx context.Context, on bool) error {
	if !n.torchInFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer n.torchInFlight.Store(false)

	command := hostapi.CmdTorchOff
	if on {
		command = hostapi.CmdTorchOn
	}

	data, err := n.cmd.Command(ctx, command, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	n.applyResponse(command, data)

	if on && !n.opts.TorchToggle {
		n.scheduleTorchCheck()
	}
	return nil
}

// OnTabChange switches the torch to match the control tab's visibility
// when auto-on-webcam is enabled. Nothing is sent if the torch already
// has the desired state.
func (n *Navbar) OnTabChange(ctx context.Context, previous, next string) error {
	if !n.opts.TorchEnabled || !n.opts.TorchAutoOnWebcam {
		return nil
	}
	if previous != n.opts.ControlTab && next != n.opts.ControlTab {
		return nil
	}

	desired := next == n.opts.ControlTab

	n.mu.Lock()
	current := n.state.TorchOn
	n.mu.Unlock()

	if current == desired {
		return nil
	}
	return n.SetTorch(ctx, desired)
}

// HandlePush applies lights, torch and deprecation messages in arrival order.
// Messages from other plugins are ignored.
func (n *Navbar) HandlePush(msg push.Message) {
	if msg.Plugin != n.pluginID {
		return
	}

	switch msg.Type {
	case PushTypeLights, PushTypeTorch:
		var payload struct {
			On *bool `json:"on"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.On == nil {
			logging.Warn("Ignoring malformed state message", zap.String("type", msg.Type))
			return
		}

		n.mu.Lock()
		if msg.Type == PushTypeLights {
			n.state.LightsOn = *payload.On
		} else {
			n.state.TorchOn = *payload.On
		}
		n.mu.Unlock()
		n.notify()

	case PushTypeATDeprecation:
		var command string
		if err := json.Unmarshal(msg.Payload, &command); err != nil {
			command = string(msg.Payload)
		}
		logging.Warn("Host reported a deprecated @ command", zap.String("command", command))

		n.mu.Lock()
		n.deprecatedCommand = command
		n.mu.Unlock()
		n.notify()
	}
}

// Close stops the pending torch timer, if any
func (n *Navbar) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.torchTimer != nil {
		n.torchTimer.Stop()
		n.torchTimer = nil
	}
}

// applyResponse merges a command response into the state. The host
// answers light and torch commands with its status snapshot; an empty
// body leaves the state to the push channel.
func (n *Navbar) applyResponse(command string, data []byte) {
	if len(data) == 0 {
		return
	}

	var status struct {
		LightsOn *bool `json:"lights_on"`
		TorchOn  *bool `json:"torch_on"`
	}
	if err := json.Unmarshal(data, &status); err != nil {
		logging.Debug("Command response is not a status snapshot",
			zap.String("command", command),
			zap.Error(err),
		)
		return
	}
	if status.LightsOn == nil && status.TorchOn == nil {
		return
	}

	n.mu.Lock()
	if status.LightsOn != nil {
		n.state.LightsOn = *status.LightsOn
	}
	if status.TorchOn != nil {
		n.state.TorchOn = *status.TorchOn
	}
	n.mu.Unlock()
	n.notify()
}

// scheduleTorchCheck re-reads the status once the momentary torch should
// have gone out. A later activation replaces the pending check.
func (n *Navbar) scheduleTorchCheck() {
	if n.opts.TorchTimer <= 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.torchTimer != nil {
		n.torchTimer.Stop()
	}
	n.torchTimer = time.AfterFunc(n.opts.TorchTimer, func() {
		ctx, cancel := context.WithTimeout(context.Background(), hostapi.DefaultTimeout)
		defer cancel()

		if err := n.Hydrate(ctx); err != nil {
			logging.Warn("Torch timer status refresh failed", zap.Error(err))
		}
	})
}
