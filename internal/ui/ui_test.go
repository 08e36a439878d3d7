package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ledstatus/internal/ledstatus"
)

func TestApplyReport(t *testing.T) {
	p := NewTestProgress()

	p.ApplyReport(ledstatus.DiagnosticsReport{
		InProgress:  true,
		CurrentTest: ledstatus.TestSPIEnabled.Label(),
		Successes: []ledstatus.TestSuccess{
			{Test: ledstatus.TestAddUser, Name: ledstatus.TestAddUser.Label(), ReasonText: "Test Passed"},
		},
	})

	if p.Steps[0].Status != StepComplete {
		t.Errorf("step 1 status = %v, want %v", p.Steps[0].Status, StepComplete)
	}
	if p.Steps[1].Status != StepRunning {
		t.Errorf("step 2 status = %v, want %v", p.Steps[1].Status, StepRunning)
	}
	if p.Current != 2 {
		t.Errorf("Current = %d, want 2", p.Current)
	}
	if p.Percent != 0.2 {
		t.Errorf("Percent = %v, want 0.2", p.Percent)
	}

	p.ApplyReport(ledstatus.DiagnosticsReport{
		Failures: []ledstatus.TestFailure{
			{Test: ledstatus.TestSPIEnabled, ReasonText: "Test Failed"},
			{Test: ledstatus.TestSPIBufferIncrease, ReasonText: "Test Failed", Fixed: true},
		},
	})

	if p.Steps[0].Status != StepPending {
		t.Errorf("step 1 status after reset = %v, want %v", p.Steps[0].Status, StepPending)
	}
	if p.Steps[1].Status != StepFailed {
		t.Errorf("step 2 status = %v, want %v", p.Steps[1].Status, StepFailed)
	}
	if p.Steps[2].Status != StepComplete {
		t.Errorf("fixed step status = %v, want %v", p.Steps[2].Status, StepComplete)
	}
}

func TestUpdateStepOutOfRange(t *testing.T) {
	p := NewProgress("", 2)
	p.UpdateStep(0, StepComplete, "")
	p.UpdateStep(3, StepComplete, "")

	if p.Percent != 0 {
		t.Errorf("Percent = %v, want 0", p.Percent)
	}
}

func TestTroubleshootingTips(t *testing.T) {
	tests := []struct {
		name string
		hint string
		want []string
	}{
		{
			name: "bullets",
			hint: "The host did not respond in time.\nTroubleshooting:\n  • Check power\n  • Retry",
			want: []string{"Check power", "Retry"},
		},
		{
			name: "single line",
			hint: "The LED status plugin is not installed.",
			want: []string{"The LED status plugin is not installed."},
		},
		{
			name: "empty",
			hint: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TroubleshootingTips(tt.hint)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("TroubleshootingTips() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			if got := Confirm(strings.NewReader(tt.input), &out, "TEST", []string{"warning"}); got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestReportModelQuitsWhenComplete(t *testing.T) {
	var m tea.Model = NewReportModel()

	// A snapshot before the run starts must not end the program
	m, cmd := m.Update(ReportMsg{})
	if cmd != nil {
		t.Fatal("Update() before start returned a command")
	}

	m, _ = m.Update(ReportMsg{Report: ledstatus.DiagnosticsReport{InProgress: true}})
	m, cmd = m.Update(ReportMsg{Report: ledstatus.DiagnosticsReport{
		Successes: make([]ledstatus.TestSuccess, len(ledstatus.AllTests)),
	}})
	if cmd == nil {
		t.Fatal("Update() after completion returned nil, want tea.Quit")
	}
	if !m.(ReportModel).Done() {
		t.Error("Done() = false, want true")
	}
}

func TestReportModelCompletionWithoutProgress(t *testing.T) {
	var m tea.Model = NewReportModel()

	m, cmd := m.Update(ReportMsg{Report: ledstatus.DiagnosticsReport{
		Failures: []ledstatus.TestFailure{{Test: ledstatus.TestSPIEnabled}},
	}})
	if cmd == nil {
		t.Fatal("Update() with a finished report returned nil, want tea.Quit")
	}
	if !m.(ReportModel).Done() {
		t.Error("Done() = false, want true")
	}
}

func TestReportQueueKeepsOrder(t *testing.T) {
	q := NewReportQueue()
	for i := 0; i < 50; i++ {
		q.Push(ledstatus.DiagnosticsReport{InProgress: true, CurrentTest: string(rune('A' + i%26))})
	}
	q.Push(ledstatus.DiagnosticsReport{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []ledstatus.DiagnosticsReport
	go q.Forward(ctx, func(msg tea.Msg) {
		got = append(got, msg.(ReportMsg).Report)
		if len(got) == 51 {
			cancel()
		}
	})
	<-ctx.Done()

	if len(got) != 51 {
		t.Fatalf("forwarded %d reports, want 51", len(got))
	}
	for i, r := range got[:50] {
		if want := string(rune('A' + i%26)); !r.InProgress || r.CurrentTest != want {
			t.Errorf("report %d = %+v, want in progress %q", i, r, want)
		}
	}
	if got[50].InProgress {
		t.Error("last report InProgress = true, want the completion snapshot last")
	}
}

func TestReportModelError(t *testing.T) {
	var m tea.Model = NewReportModel()
	m, cmd := m.Update(ErrMsg{Err: errors.New("boom")})

	if cmd == nil {
		t.Fatal("Update(ErrMsg) returned nil, want tea.Quit")
	}
	if m.(ReportModel).Err() == nil {
		t.Error("Err() = nil, want error")
	}
}

func TestHeaderParamsSorted(t *testing.T) {
	h := NewHeader("Status", "ledstatus-cfg status", map[string]string{
		"Plugin": "ws281x_led_status",
		"Host":   "http://octopi.local",
	})
	out := h.SetWidth(80).Render()

	if strings.Index(out, "Host:") > strings.Index(out, "Plugin:") {
		t.Errorf("Render() params not sorted:\n%s", out)
	}
}
