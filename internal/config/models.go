package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Registry represents the entire user configuration file.
// This stores the known OctoPrint hosts and application preferences.
type Registry struct {
	Version     int              `yaml:"version"`
	Hosts       map[string]*Host `yaml:"hosts,omitempty"` // Keyed by host name
	Preferences *Preferences     `yaml:"preferences,omitempty"`
}

// Host represents one OctoPrint instance running the LED status plugin.
type Host struct {
	URL            string    `yaml:"url"`                       // Base URL (e.g., http://octopi.local)
	APIKey         string    `yaml:"api_key,omitempty"`         // OctoPrint application key
	PluginID       string    `yaml:"plugin_id,omitempty"`       // Overrides the default plugin identifier
	LegacyCommands bool      `yaml:"legacy_commands,omitempty"` // Host runs a plugin release without wiz_ commands
	LastSeen       time.Time `yaml:"last_seen,omitempty"`       // Last discovery/connection time
}

// Preferences represents application-wide user preferences.
// Torch fields left unset follow the plugin's own settings on the host.
type Preferences struct {
	DefaultHost       string `yaml:"default_host,omitempty"`         // Host used when --host is not given
	AutoDiscover      bool   `yaml:"auto_discover"`                  // Scan for hosts when the TUI starts
	DiscoverTimeout   int    `yaml:"discover_timeout"`               // mDNS discovery timeout in seconds
	TorchToggle       *bool  `yaml:"torch_toggle,omitempty"`         // Override effects.torch.toggle
	TorchAutoOnWebcam *bool  `yaml:"torch_auto_on_webcam,omitempty"` // Override effects.torch.auto_on_webcam
	TorchTimer        int    `yaml:"torch_timer,omitempty"`          // Override effects.torch.timer (seconds)
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Hosts:       make(map[string]*Host),
		Preferences: defaultPreferences(),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: 5,
	}
}

// GetHost retrieves a host by name.
// Returns nil if the host doesn't exist in the registry.
func (r *Registry) GetHost(name string) *Host {
	return r.Hosts[name]
}

// EnsureHost ensures a host entry exists in the registry.
// Returns the host entry (existing or newly created).
func (r *Registry) EnsureHost(name string) *Host {
	if r.Hosts == nil {
		r.Hosts = make(map[string]*Host)
	}

	if host, exists := r.Hosts[name]; exists {
		return host
	}

	host := &Host{}
	r.Hosts[name] = host
	return host
}

// SetHost adds or updates a host. The first host added becomes the default.
func (r *Registry) SetHost(name, url, apiKey string) *Host {
	host := r.EnsureHost(name)
	host.URL = strings.TrimRight(url, "/")
	if apiKey != "" {
		host.APIKey = apiKey
	}

	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
	if r.Preferences.DefaultHost == "" {
		r.Preferences.DefaultHost = name
	}
	return host
}

// RemoveHost deletes a host. Returns false if it did not exist.
func (r *Registry) RemoveHost(name string) bool {
	if _, exists := r.Hosts[name]; !exists {
		return false
	}
	delete(r.Hosts, name)

	if r.Preferences != nil && r.Preferences.DefaultHost == name {
		r.Preferences.DefaultHost = ""
	}
	return true
}

// UpdateHostLastSeen updates the last seen timestamp for a host.
func (r *Registry) UpdateHostLastSeen(name string) {
	host := r.EnsureHost(name)
	host.LastSeen = time.Now()
}

// HostNames returns the registered host names in sorted order.
func (r *Registry) HostNames() []string {
	names := make([]string, 0, len(r.Hosts))
	for name := range r.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveHost picks the host to talk to: the named one, else the default,
// else the only registered host.
func (r *Registry) ResolveHost(name string) (string, *Host, error) {
	if name != "" {
		host := r.GetHost(name)
		if host == nil {
			return "", nil, fmt.Errorf("unknown host %q (see 'ledstatus-cfg hosts list')", name)
		}
		return name, host, nil
	}

	if r.Preferences != nil && r.Preferences.DefaultHost != "" {
		if host := r.GetHost(r.Preferences.DefaultHost); host != nil {
			return r.Preferences.DefaultHost, host, nil
		}
	}

	if len(r.Hosts) == 1 {
		name := r.HostNames()[0]
		return name, r.Hosts[name], nil
	}

	if len(r.Hosts) == 0 {
		return "", nil, fmt.Errorf("no hosts configured (use 'ledstatus-cfg hosts add' or 'ledstatus-cfg scan')")
	}
	return "", nil, fmt.Errorf("several hosts configured, choose one with --host")
}
