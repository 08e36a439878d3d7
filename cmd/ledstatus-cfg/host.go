package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/ledstatus"
	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/session"
	"github.com/muurk/ledstatus/internal/ui"
	"github.com/muurk/ledstatus/internal/urls"
)

// Host selection and output flags shared by all commands
var (
	hostName     string
	hostURL      string
	apiKey       string
	pluginID     string
	legacy       bool
	logLevel     string
	verbose      bool
	outputFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&hostName, "host", "", "Saved host name (default: the registry's default host)")
	rootCmd.PersistentFlags().StringVar(&hostURL, "url", "", "OctoPrint base URL (bypasses the registry)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "OctoPrint application key")
	rootCmd.PersistentFlags().StringVar(&pluginID, "plugin-id", "", "Plugin identifier (default: "+hostapi.DefaultPluginID+")")
	rootCmd.PersistentFlags().BoolVar(&legacy, "legacy", false, "Use the setup command names of plugin releases before 0.8")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show raw host responses")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
}

// resolveOptions picks the host from --url, --host or the registry default.
// --api-key and --plugin-id override what the registry holds.
func resolveOptions() (session.Options, error) {
	var opts session.Options

	if hostURL != "" {
		opts = session.Options{
			Name:    hostNameOrDefault(hostURL),
			BaseURL: strings.TrimRight(hostURL, "/"),
		}
	} else {
		registry, err := config.LoadRegistry()
		if err != nil {
			return opts, err
		}
		name, host, err := registry.ResolveHost(hostName)
		if err != nil {
			return opts, err
		}
		opts = session.FromHost(name, host, registry.Preferences)
	}

	if apiKey != "" {
		opts.APIKey = apiKey
	}
	if pluginID != "" {
		opts.PluginID = pluginID
	}
	if legacy {
		opts.Legacy = true
	}
	return opts, nil
}

// newClient creates a host API client for the selected host
func newClient() (*hostapi.Client, session.Options, error) {
	opts, err := resolveOptions()
	if err != nil {
		return nil, opts, err
	}

	client := hostapi.NewClient(opts.BaseURL, opts.APIKey)
	if opts.PluginID != "" {
		client.PluginID = opts.PluginID
	}
	return client, opts, nil
}

// openSession connects to the selected host and loads every component
func openSession(ctx context.Context) (*session.Session, error) {
	opts, err := resolveOptions()
	if err != nil {
		return nil, err
	}

	s, err := session.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.BaseURL, err)
	}
	return s, nil
}

// newNavbar builds a navbar for one-shot light and torch commands
func newNavbar(ctx context.Context, client *hostapi.Client, opts session.Options) (*ledstatus.Navbar, error) {
	var settings ledstatus.PluginSettings
	if err := client.PluginSettings(ctx, &settings); err != nil {
		return nil, err
	}

	navbarOpts := ledstatus.NavbarOptionsFromSettings(settings.Effects.Torch)
	if prefs := opts.Preferences; prefs != nil && prefs.TorchToggle != nil {
		navbarOpts.TorchToggle = *prefs.TorchToggle
	}

	navbar := ledstatus.NewNavbar(client, client, client.PluginID, navbarOpts)
	if err := navbar.Hydrate(ctx); err != nil {
		return nil, err
	}
	return navbar, nil
}

// hostNameOrDefault derives a registry name from a URL's host part
func hostNameOrDefault(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimSuffix(u.Hostname(), ".local")
}

// printHostError prints a failure box with troubleshooting tips and returns err
func printHostError(printer *ui.Printer, title string, err error) error {
	tips := ui.TroubleshootingTips(hostapi.GetTroubleshootingHint(err))
	if hostapi.IsAuthError(err) {
		tips = append(tips, "Application keys: "+urls.APIKeys)
	}
	tips = append(tips, "Plugin troubleshooting: "+urls.Troubleshooting)
	printer.PrintError(title, err, tips)
	return err
}

// printJSON writes v as indented JSON
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jsonOutput() bool {
	return outputFormat == "json"
}
