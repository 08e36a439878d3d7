package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/ledstatus"
	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/push"
)

// Options selects the host and plugin a Session talks to
type Options struct {
	Name     string // Registry name, informational
	BaseURL  string
	APIKey   string
	PluginID string
	Legacy   bool          // Use pre-wiz_ step command names
	Timeout  time.Duration // HTTP timeout (0 = hostapi default)

	// Preference overrides for the torch behaviour; nil leaves the host setting
	Preferences *config.Preferences
}

// FromHost builds Options for a registry entry
func FromHost(name string, host *config.Host, prefs *config.Preferences) Options {
	return Options{
		Name:        name,
		BaseURL:     host.URL,
		APIKey:      host.APIKey,
		PluginID:    host.PluginID,
		Legacy:      host.LegacyCommands,
		Preferences: prefs,
	}
}

// Session wires the view-model components for one host together:
// one API client, one push channel, and the four components fed by them.
type Session struct {
	Options Options

	API         *hostapi.Client
	Push        *push.Client
	Navbar      *ledstatus.Navbar
	Wizard      *ledstatus.ConfigWizard
	Diagnostics *ledstatus.Diagnostics
	Settings    *ledstatus.SettingsPanel

	// WizardPresent is true when the host still lists the plugin's setup wizard
	WizardPresent bool
}

// Open connects to the host and loads the initial state of every component.
// Settings and wizard details are fetched concurrently.
// The push channel is created but not started; see RunPush.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("host URL is required")
	}

	api := hostapi.NewClient(opts.BaseURL, opts.APIKey)
	if opts.PluginID != "" {
		api.PluginID = opts.PluginID
	}
	if opts.Timeout > 0 {
		api.SetTimeout(opts.Timeout)
	}

	var wizardOpts []ledstatus.WizardOption
	if opts.Legacy {
		wizardOpts = append(wizardOpts, ledstatus.WithLegacyCommands())
	}

	s := &Session{
		Options:     opts,
		API:         api,
		Wizard:      ledstatus.NewConfigWizard(api, wizardOpts...),
		Diagnostics: ledstatus.NewDiagnostics(api, api.PluginID, wizardOpts...),
		Settings:    ledstatus.NewSettingsPanel(api, api),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Settings.Load(gctx)
	})
	g.Go(func() error {
		details, err := api.WizardDetails(gctx)
		if err != nil {
			// The wizard endpoint needs admin rights; carry on without it
			logging.Warn("Could not read wizard details", zap.Error(err))
			return nil
		}
		s.WizardPresent = details != nil
		return s.Wizard.Hydrate(details)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.Navbar = ledstatus.NewNavbar(api, api, api.PluginID, s.navbarOptions())
	if err := s.Navbar.Hydrate(ctx); err != nil {
		return nil, err
	}
	logging.Debug("Session opened",
		zap.String("url", api.BaseURL),
		zap.Bool("lights_on", s.Navbar.State().LightsOn),
		zap.Bool("wizard", s.WizardPresent),
	)

	pc, err := push.NewClient(api.BaseURL, api.APIKey, api)
	if err != nil {
		return nil, fmt.Errorf("push channel: %w", err)
	}
	pc.Subscribe(s.Navbar.HandlePush)
	pc.Subscribe(s.Diagnostics.HandlePush)
	s.Push = pc

	return s, nil
}

// navbarOptions combines the host's torch settings with local preferences
func (s *Session) navbarOptions() ledstatus.NavbarOptions {
	opts := ledstatus.NavbarOptionsFromSettings(s.Settings.Settings().Effects.Torch)

	prefs := s.Options.Preferences
	if prefs == nil {
		return opts
	}
	if prefs.TorchToggle != nil {
		opts.TorchToggle = *prefs.TorchToggle
	}
	if prefs.TorchAutoOnWebcam != nil {
		opts.TorchAutoOnWebcam = *prefs.TorchAutoOnWebcam
	}
	if prefs.TorchTimer > 0 {
		opts.TorchTimer = time.Duration(prefs.TorchTimer) * time.Second
	}
	return opts
}

// RunPush runs the push channel until ctx is cancelled
func (s *Session) RunPush(ctx context.Context) error {
	return s.Push.Run(ctx)
}

// FinishWizard reports what finishing the setup wizard would mean right now
func (s *Session) FinishWizard() ledstatus.FinishResult {
	return s.Diagnostics.FinishGuard(s.WizardPresent)
}

// Close stops pending timers
func (s *Session) Close() {
	if s.Navbar != nil {
		s.Navbar.Close()
	}
}
