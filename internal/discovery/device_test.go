package discovery

import (
	"testing"
)

func TestHost_String(t *testing.T) {
	host := &Host{
		Hostname: "octopi.local.",
		IP:       "192.168.1.20",
		Port:     80,
		Metadata: map[string]string{"version": "1.9.3"},
	}

	expected := "OctoPrint 1.9.3 (octopi) at 192.168.1.20:80"
	if host.String() != expected {
		t.Errorf("Host.String() = %v, want %v", host.String(), expected)
	}
}

func TestHost_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		host     *Host
		expected string
	}{
		{
			name:     "standard HTTP port",
			host:     &Host{IP: "192.168.1.20", Port: 80},
			expected: "http://192.168.1.20:80",
		},
		{
			name:     "root path",
			host:     &Host{IP: "192.168.1.20", Port: 80, Metadata: map[string]string{"path": "/"}},
			expected: "http://192.168.1.20:80",
		},
		{
			name:     "path prefix",
			host:     &Host{IP: "10.0.0.5", Port: 8080, Metadata: map[string]string{"path": "/octoprint/"}},
			expected: "http://10.0.0.5:8080/octoprint",
		},
		{
			name:     "IPv6",
			host:     &Host{IP: "fe80::1", Port: 80},
			expected: "http://[fe80::1]:80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.host.BaseURL(); got != tt.expected {
				t.Errorf("Host.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHost_ShortName(t *testing.T) {
	tests := []struct {
		hostname string
		ip       string
		want     string
	}{
		{"octopi.local.", "192.168.1.20", "octopi"},
		{"voron.local", "10.0.0.7", "voron"},
		{"", "10.0.0.8", "10.0.0.8"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			host := &Host{Hostname: tt.hostname, IP: tt.ip}
			if got := host.ShortName(); got != tt.want {
				t.Errorf("ShortName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHost_GetMetadata(t *testing.T) {
	host := &Host{
		Metadata: map[string]string{
			"version": "1.9.3",
			"model":   "Raspberry Pi 3 Model B Plus Rev 1.3",
		},
	}

	if got := host.GetMetadata("version"); got != "1.9.3" {
		t.Errorf("GetMetadata(version) = %v, want 1.9.3", got)
	}
	if got := host.Model(); got != "Raspberry Pi 3 Model B Plus Rev 1.3" {
		t.Errorf("Model() = %v", got)
	}
	if got := host.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %v, want empty string", got)
	}

	empty := &Host{}
	if got := empty.GetMetadata("version"); got != "" {
		t.Errorf("GetMetadata on nil metadata = %v, want empty string", got)
	}
	if got := empty.Version(); got != "unknown" {
		t.Errorf("Version() = %v, want unknown", got)
	}
}
