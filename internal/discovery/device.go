package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Host represents a discovered OctoPrint instance on the network
type Host struct {
	// Name is the advertised instance name (e.g., "OctoPrint instance on octopi")
	Name string

	// Hostname is the mDNS hostname (e.g., "octopi.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 if no IPv4 was advertised
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "path=/", "version=1.9.3", "api=0.1", "model=Raspberry Pi 4 Model B Rev 1.4"
	Metadata map[string]string

	// DiscoveredAt is when the host was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the host
func (h *Host) String() string {
	return fmt.Sprintf("OctoPrint %s (%s) at %s:%d", h.Version(), h.ShortName(), h.IP, h.Port)
}

// BaseURL returns the HTTP base URL of the OctoPrint instance,
// including the path prefix it advertises.
func (h *Host) BaseURL() string {
	base := "http://" + net.JoinHostPort(h.IP, strconv.Itoa(h.Port))
	path := strings.TrimRight(h.GetMetadata("path"), "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// ShortName returns the hostname without the ".local." suffix,
// suitable as a registry key.
func (h *Host) ShortName() string {
	name := strings.TrimSuffix(h.Hostname, ".")
	name = strings.TrimSuffix(name, ".local")
	if name == "" {
		return h.IP
	}
	return name
}

// Version returns the advertised OctoPrint version, or "unknown"
func (h *Host) Version() string {
	if v := h.GetMetadata("version"); v != "" {
		return v
	}
	return "unknown"
}

// Model returns the advertised hardware model, if any
func (h *Host) Model() string {
	return h.GetMetadata("model")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (h *Host) GetMetadata(key string) string {
	if h.Metadata == nil {
		return ""
	}
	return h.Metadata[key]
}
