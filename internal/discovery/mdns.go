package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/ledstatus/internal/logging"
)

const (
	// ServiceType is the mDNS service type OctoPrint advertises
	ServiceType = "_octoprint._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for host discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default HTTP port for OctoPrint behind its proxy
	DefaultPort = 80
)

// Scanner handles mDNS host discovery
type Scanner struct {
	// Timeout is the maximum time to wait for host discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForHosts discovers all OctoPrint instances on the local network
func (s *Scanner) ScanForHosts() ([]*Host, error) {
	return s.ScanForHostsWithContext(context.Background())
}

// ScanForHostsWithContext discovers hosts with a custom context.
// It returns when the timeout elapses or ctx is cancelled.
func (s *Scanner) ScanForHostsWithContext(ctx context.Context) ([]*Host, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu    sync.Mutex
		hosts []*Host
		seen  = make(map[string]bool)
		done  = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			host := s.parseServiceEntry(entry)
			if host == nil {
				continue
			}

			key := host.BaseURL()
			mu.Lock()
			if !seen[key] {
				seen[key] = true
				hosts = append(hosts, host)
				logging.Debug("Discovered OctoPrint host",
					zap.String("name", host.Name),
					zap.String("url", key),
				)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once it observes the cancelled context
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Host(nil), hosts...), nil
}

// parseServiceEntry converts a zeroconf service entry to a Host.
// Returns nil if the entry carries no usable address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Host {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Host{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForHosts is a convenience function to scan for hosts with a custom timeout
func ScanForHosts(ctx context.Context, timeout time.Duration) ([]*Host, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForHostsWithContext(ctx)
}
