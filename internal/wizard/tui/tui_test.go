package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/discovery"
	"github.com/muurk/ledstatus/internal/ledstatus"
	"github.com/muurk/ledstatus/internal/session"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plugins": {"ws281x_led_status": {
			"strip": {"count": 24},
			"effects": {"torch": {"enabled": true, "toggle": true, "timer": 0, "auto_on_webcam": false}},
			"custom": {"atcommand": [], "event": [{"match": "PrintDone", "effect": "Rainbow", "color": "#ffffff", "delay": "20"}], "gcode": []}
		}}}`))
	})
	mux.HandleFunc("/api/setup/wizard", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/plugin/ws281x_led_status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"lights_on": false, "torch_on": false})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s, err := session.Open(context.Background(), session.Options{Name: "octopi", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("session.Open() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestMergeTargets(t *testing.T) {
	saved := []*Target{{Name: "octopi", URL: "http://192.168.1.20:80", APIKey: "k", Saved: true}}
	found := []*discovery.Host{
		{Hostname: "octopi.local.", IP: "192.168.1.20", Port: 80, Metadata: map[string]string{"version": "1.9.3"}},
		{Hostname: "voron.local.", IP: "192.168.1.30", Port: 80},
	}

	targets := mergeTargets(saved, found)
	if len(targets) != 2 {
		t.Fatalf("len(targets) = %d, want 2", len(targets))
	}
	if targets[0].Version != "1.9.3" {
		t.Errorf("saved target version = %q, want 1.9.3", targets[0].Version)
	}
	if targets[1].Name != "voron" || targets[1].Saved {
		t.Errorf("discovered target = %+v, want unsaved voron", targets[1])
	}
}

func TestHostNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://octopi.local", "octopi"},
		{"http://octopi.local:5000/", "octopi"},
		{"https://192.168.1.20/octoprint", "192.168.1.20"},
		{"voron", "voron"},
	}

	for _, tt := range tests {
		if got := hostNameFromURL(tt.url); got != tt.want {
			t.Errorf("hostNameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDiscoveryManualEntry(t *testing.T) {
	m := NewDiscoveryModel(config.NewRegistry())

	updated, _ := m.Update(runes("m"))
	m = updated.(DiscoveryModel)
	if m.Mode != entryURL {
		t.Fatalf("Mode = %v, want URL entry", m.Mode)
	}

	updated, _ = m.Update(runes("octopi.local"))
	m = updated.(DiscoveryModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(DiscoveryModel)
	if m.Mode != entryAPIKey {
		t.Fatalf("Mode = %v, want API key entry", m.Mode)
	}

	updated, _ = m.Update(runes("secret"))
	m = updated.(DiscoveryModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(DiscoveryModel)

	target := m.GetSelectedTarget()
	if target == nil {
		t.Fatal("GetSelectedTarget() = nil, want target")
	}
	if target.URL != "http://octopi.local" || target.APIKey != "secret" || target.Name != "octopi" {
		t.Errorf("target = %+v", target)
	}
}

func TestRuleEditorApply(t *testing.T) {
	e := newRuleEditor(ledstatus.CategoryGcode, ledstatus.DefaultRule(ledstatus.CategoryGcode), true)

	if got := len(e.fields()); got != 5 {
		t.Errorf("gcode editor has %d fields, want 5", got)
	}
	e.cycleMatchType(1)
	if e.matchType != ledstatus.MatchExact {
		t.Errorf("matchType = %v, want %v", e.matchType, ledstatus.MatchExact)
	}

	var rule ledstatus.TriggerRule
	if err := e.apply(&rule); err == nil {
		t.Error("apply() error = nil, want error for empty match")
	}

	e.inputs[fieldMatch].SetValue("M600")
	e.inputs[fieldDelay].SetValue("abc")
	if err := e.apply(&rule); err == nil {
		t.Error("apply() error = nil, want error for bad delay")
	}

	e.inputs[fieldDelay].SetValue("25")
	if err := e.apply(&rule); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if rule.Match != "M600" || rule.Delay != 25 || rule.MatchType != ledstatus.MatchExact {
		t.Errorf("rule = %+v", rule)
	}

	event := newRuleEditor(ledstatus.CategoryEvent, ledstatus.DefaultRule(ledstatus.CategoryEvent), true)
	if got := len(event.fields()); got != 4 {
		t.Errorf("event editor has %d fields, want 4", got)
	}
}

func TestDashboardAddTrigger(t *testing.T) {
	s := newTestSession(t)
	m := NewDashboardModel(s, "octopi")
	defer m.Close()

	updated, _ := m.Update(runes("4"))
	m = updated.(DashboardModel)
	if m.ActiveTab != TabTriggers {
		t.Fatalf("ActiveTab = %v, want %v", m.ActiveTab, TabTriggers)
	}

	updated, _ = m.Update(runes("n"))
	m = updated.(DashboardModel)
	if m.Editor == nil {
		t.Fatal("Editor = nil after n, want open editor")
	}

	updated, _ = m.Update(runes("WS_PARTY"))
	m = updated.(DashboardModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(DashboardModel)

	if m.Editor != nil {
		t.Fatalf("Editor still open, error = %q", m.Editor.err)
	}
	rules := s.Settings.Rules(ledstatus.CategoryAtCommand)
	if len(rules) != 1 || rules[0].Match != "WS_PARTY" {
		t.Errorf("atcommand rules = %+v, want one WS_PARTY rule", rules)
	}
	if !m.Unsaved {
		t.Error("Unsaved = false, want true after adding a rule")
	}
}

func TestDashboardDeleteTrigger(t *testing.T) {
	s := newTestSession(t)
	m := NewDashboardModel(s, "octopi")
	defer m.Close()

	m.ActiveTab = TabTriggers
	updated, _ := m.Update(runes("l")) // atcommand -> event
	m = updated.(DashboardModel)
	if m.currentCategory() != ledstatus.CategoryEvent {
		t.Fatalf("category = %v, want %v", m.currentCategory(), ledstatus.CategoryEvent)
	}

	updated, _ = m.Update(runes("d"))
	m = updated.(DashboardModel)
	if got := len(s.Settings.Rules(ledstatus.CategoryEvent)); got != 0 {
		t.Errorf("event rules = %d, want 0", got)
	}
}

func TestDashboardBackAndQuit(t *testing.T) {
	s := newTestSession(t)
	m := NewDashboardModel(s, "octopi")
	defer m.Close()

	updated, _ := m.Update(runes("b"))
	if !updated.(DashboardModel).IsBackRequested() {
		t.Error("IsBackRequested() = false after b")
	}

	updated, _ = m.Update(runes("q"))
	if !updated.(DashboardModel).IsQuitRequested() {
		t.Error("IsQuitRequested() = false after q")
	}
}
