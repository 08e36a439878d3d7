package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "ledstatus") {
		t.Errorf("GetConfigDir() = %v, should contain 'ledstatus'", configDir)
	}

	if runtime.GOOS == "linux" {
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)

		configDir, err = GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if configDir != filepath.Join(xdg, "ledstatus") {
			t.Errorf("GetConfigDir() = %v, want it under XDG_CONFIG_HOME", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if os.Getenv(ConfigPathEnvVar) == "" && filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}

	override := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(ConfigPathEnvVar, override)

	configPath, err = GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if configPath != override {
		t.Errorf("GetConfigPath() = %v, want %v", configPath, override)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Hosts == nil {
		t.Error("NewRegistry().Hosts should not be nil")
	}
	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}
	if !reg.Preferences.AutoDiscover {
		t.Error("NewRegistry().Preferences.AutoDiscover should be true by default")
	}
	if reg.Preferences.DiscoverTimeout != 5 {
		t.Errorf("NewRegistry().Preferences.DiscoverTimeout = %v, want 5", reg.Preferences.DiscoverTimeout)
	}
}

func TestRegistrySetHost(t *testing.T) {
	reg := NewRegistry()

	reg.SetHost("octopi", "http://octopi.local/", "KEY1")
	reg.SetHost("voron", "http://10.0.0.7", "KEY2")

	host := reg.GetHost("octopi")
	if host == nil {
		t.Fatal("host should exist after SetHost")
	}
	if host.URL != "http://octopi.local" {
		t.Errorf("URL = %v, want trailing slash trimmed", host.URL)
	}
	if reg.Preferences.DefaultHost != "octopi" {
		t.Errorf("DefaultHost = %v, want first host added", reg.Preferences.DefaultHost)
	}

	// Empty key keeps the stored one
	reg.SetHost("octopi", "http://octopi.lan", "")
	if reg.GetHost("octopi").APIKey != "KEY1" {
		t.Error("SetHost with empty key replaced the stored key")
	}

	names := reg.HostNames()
	if len(names) != 2 || names[0] != "octopi" || names[1] != "voron" {
		t.Errorf("HostNames() = %v, want [octopi voron]", names)
	}
}

func TestRegistryRemoveHost(t *testing.T) {
	reg := NewRegistry()
	reg.SetHost("octopi", "http://octopi.local", "KEY")

	if !reg.RemoveHost("octopi") {
		t.Error("RemoveHost() = false for existing host")
	}
	if reg.RemoveHost("octopi") {
		t.Error("RemoveHost() = true for missing host")
	}
	if reg.Preferences.DefaultHost != "" {
		t.Errorf("DefaultHost = %v, want cleared", reg.Preferences.DefaultHost)
	}
}

func TestRegistryUpdateHostLastSeen(t *testing.T) {
	reg := NewRegistry()
	before := time.Now()
	reg.UpdateHostLastSeen("octopi")

	host := reg.GetHost("octopi")
	if host == nil {
		t.Fatal("UpdateHostLastSeen should create the host")
	}
	if host.LastSeen.Before(before) {
		t.Errorf("LastSeen = %v, want >= %v", host.LastSeen, before)
	}
}

func TestResolveHost(t *testing.T) {
	tests := []struct {
		name    string
		hosts   []string
		def     string
		request string
		want    string
		wantErr bool
	}{
		{"explicit", []string{"a", "b"}, "a", "b", "b", false},
		{"unknown explicit", []string{"a"}, "", "z", "", true},
		{"default", []string{"a", "b"}, "b", "", "b", false},
		{"single host", []string{"a"}, "", "", "a", false},
		{"ambiguous", []string{"a", "b"}, "", "", "", true},
		{"none", nil, "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for _, h := range tt.hosts {
				reg.SetHost(h, "http://"+h, "")
			}
			reg.Preferences.DefaultHost = tt.def

			got, host, err := reg.ResolveHost(tt.request)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveHost() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveHost() = %v, want %v", got, tt.want)
			}
			if !tt.wantErr && host == nil {
				t.Error("ResolveHost() host = nil")
			}
		})
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	toggle := true
	reg := NewRegistry()
	reg.SetHost("octopi", "http://octopi.local", "ABCDEF")
	reg.GetHost("octopi").LegacyCommands = true
	reg.Preferences.TorchToggle = &toggle
	reg.Preferences.TorchTimer = 30

	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config permissions = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# LED Status client configuration") {
		t.Error("config file lacks header comment")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	host := loaded.GetHost("octopi")
	if host == nil {
		t.Fatal("host should exist in loaded registry")
	}
	if host.APIKey != "ABCDEF" || !host.LegacyCommands {
		t.Errorf("loaded host = %+v", host)
	}
	if loaded.Preferences.TorchToggle == nil || !*loaded.Preferences.TorchToggle {
		t.Error("TorchToggle override lost")
	}
	if loaded.Preferences.TorchAutoOnWebcam != nil {
		t.Error("unset TorchAutoOnWebcam should stay nil")
	}
	if loaded.Preferences.TorchTimer != 30 {
		t.Errorf("TorchTimer = %d, want 30", loaded.Preferences.TorchTimer)
	}
}

func TestLoadRegistryFromMissingFile(t *testing.T) {
	reg, err := LoadRegistryFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Version != 1 || reg.Preferences == nil {
		t.Errorf("LoadRegistryFrom() = %+v, want defaults", reg)
	}
}

func TestLoadRegistryFromInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "version: [1"},
		{"wrong version", "version: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRegistryFrom(path); err == nil {
				t.Error("LoadRegistryFrom() expected error")
			}
		})
	}
}

func TestLoadRegistryFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Hosts == nil || reg.Preferences == nil {
		t.Errorf("LoadRegistryFrom() = %+v, want initialized maps", reg)
	}
}
