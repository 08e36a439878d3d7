package ledstatus

import (
	"context"
	"errors"
	"testing"
)

func runFullTest(d *Diagnostics, passed map[string]bool) {
	for _, test := range AllTests {
		key := test.String()
		d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"`+key+`","status":"in_progress"}`))
		if passed[key] {
			d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"`+key+`","status":{"passed":true,"reason":""}}`))
		} else {
			d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"`+key+`","status":{"passed":false,"reason":"failed"}}`))
		}
	}
	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"complete","status":"complete"}`))
}

func TestRunConfigTestSendsCommand(t *testing.T) {
	cmd := newFakeCommander()
	d := NewDiagnostics(cmd, testPluginID)

	if err := d.RunConfigTest(context.Background()); err != nil {
		t.Fatalf("RunConfigTest() error = %v", err)
	}

	got := cmd.last()
	if got.Name != "test_os_config" {
		t.Errorf("command = %s, want test_os_config", got.Name)
	}
	if len(got.Payload) != 0 {
		t.Errorf("payload = %v, want empty", got.Payload)
	}
	if !d.Report().InProgress {
		t.Error("InProgress = false after RunConfigTest")
	}
}

func TestRunConfigTestResetsResults(t *testing.T) {
	tests := []struct {
		name     string
		complete bool
	}{
		{"after completed run", true},
		{"during unfinished run", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiagnostics(newFakeCommander(), testPluginID)
			_ = d.RunConfigTest(context.Background())

			d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"adduser","status":{"passed":true,"reason":""}}`))
			d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"spi_enabled","status":{"passed":false,"reason":"failed"}}`))
			d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"spi_buffer_increase","status":"in_progress"}`))
			if tt.complete {
				d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"complete","status":"complete"}`))
			}

			var seen []DiagnosticsReport
			unsubscribe := d.Subscribe(func() { seen = append(seen, d.Report()) })
			defer unsubscribe()

			if err := d.RunConfigTest(context.Background()); err != nil {
				t.Fatalf("RunConfigTest() error = %v", err)
			}

			if len(seen) == 0 {
				t.Fatal("no state change observed")
			}
			first := seen[0]
			if len(first.Successes) != 0 || len(first.Failures) != 0 || first.CurrentTest != "" {
				t.Errorf("results not cleared before command: %+v", first)
			}
			if !first.InProgress {
				t.Error("InProgress = false, want true")
			}
		})
	}
}

func TestRunConfigTestCommandError(t *testing.T) {
	cmd := newFakeCommander()
	cmd.err = errors.New("boom")
	d := NewDiagnostics(cmd, testPluginID)

	if err := d.RunConfigTest(context.Background()); err == nil {
		t.Fatal("RunConfigTest() expected error")
	}
	if d.Report().InProgress {
		t.Error("InProgress = true after failed start")
	}
}

func TestHandlePushProgress(t *testing.T) {
	d := NewDiagnostics(newFakeCommander(), testPluginID)
	_ = d.RunConfigTest(context.Background())

	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"spi_enabled","status":"in_progress"}`))
	if got := d.Report().CurrentTest; got != TestSPIEnabled.Label() {
		t.Errorf("CurrentTest = %q, want %q", got, TestSPIEnabled.Label())
	}

	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"spi_enabled","status":{"passed":true,"reason":""}}`))
	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"set_core_freq_min","status":{"passed":false,"reason":"pi4_250"}}`))

	report := d.Report()
	if len(report.Successes) != 1 {
		t.Fatalf("len(Successes) = %d, want 1", len(report.Successes))
	}
	if report.Successes[0].ReasonText != "Test Passed" {
		t.Errorf("ReasonText = %q, want Test Passed", report.Successes[0].ReasonText)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("len(Failures) = %d, want 1", len(report.Failures))
	}
	failure := report.Failures[0]
	if failure.Reason != ReasonPi4CoreFreq {
		t.Errorf("Reason = %v, want pi4_250", failure.Reason)
	}
	if failure.FixCommand != "wiz_set_core_freq_min" {
		t.Errorf("FixCommand = %s, want wiz_set_core_freq_min", failure.FixCommand)
	}
	if failure.Fixed {
		t.Error("Fixed = true on new failure")
	}

	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"complete","status":"complete"}`))
	if d.Report().InProgress {
		t.Error("InProgress = true after complete")
	}
}

func TestHandlePushIgnoresOtherPlugins(t *testing.T) {
	d := NewDiagnostics(newFakeCommander(), testPluginID)
	_ = d.RunConfigTest(context.Background())
	before := d.Report()

	notified := false
	d.Subscribe(func() { notified = true })

	d.HandlePush(pushMsg("other_plugin", PushTypeConfigTest, `{"test":"adduser","status":{"passed":true,"reason":""}}`))
	d.HandlePush(pushMsg("other_plugin", PushTypeConfigTest, `{"test":"complete","status":"complete"}`))

	after := d.Report()
	if len(after.Successes) != len(before.Successes) || after.InProgress != before.InProgress {
		t.Errorf("state changed by foreign message: %+v", after)
	}
	if notified {
		t.Error("listener notified for foreign message")
	}
}

func TestHandlePushMalformed(t *testing.T) {
	d := NewDiagnostics(newFakeCommander(), testPluginID)

	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `not json`))
	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"unknown","status":{"passed":true}}`))
	d.HandlePush(pushMsg(testPluginID, PushTypeConfigTest, `{"test":"adduser","status":42}`))

	report := d.Report()
	if len(report.Successes) != 0 || len(report.Failures) != 0 {
		t.Errorf("malformed messages recorded results: %+v", report)
	}
}

func TestRunFix(t *testing.T) {
	cmd := newFakeCommander()
	d := NewDiagnostics(cmd, testPluginID)
	_ = d.RunConfigTest(context.Background())
	runFullTest(d, map[string]bool{"adduser": true, "spi_buffer_increase": true, "set_core_freq": true, "set_core_freq_min": true})

	report := d.Report()
	if len(report.Failures) != 1 || report.Failures[0].Test != TestSPIEnabled {
		t.Fatalf("Failures = %+v, want spi_enabled only", report.Failures)
	}

	cmd.responses["wiz_enable_spi"] = `{"errors": "password"}`
	if err := d.RunFix(context.Background(), 0, ""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("RunFix() error = %v, want ErrPasswordRequired", err)
	}
	report = d.Report()
	if !report.PasswordRequired || report.Failures[0].Fixed {
		t.Errorf("after password error: PasswordRequired=%v Fixed=%v", report.PasswordRequired, report.Failures[0].Fixed)
	}

	cmd.responses["wiz_enable_spi"] = `{"spi_enabled": true}`
	if err := d.RunFix(context.Background(), 0, "secret"); err != nil {
		t.Fatalf("RunFix() error = %v", err)
	}
	if got := cmd.last(); got.Name != "wiz_enable_spi" || got.Payload["password"] != "secret" {
		t.Errorf("sent %+v, want wiz_enable_spi with password", got)
	}

	report = d.Report()
	if !report.Failures[0].Fixed {
		t.Error("Fixed = false after successful fix")
	}
	if report.PasswordRequired {
		t.Error("PasswordRequired still set")
	}
}

func TestRunFixNotConfirmed(t *testing.T) {
	cmd := newFakeCommander()
	d := NewDiagnostics(cmd, testPluginID)
	runFullTest(d, map[string]bool{})

	cmd.responses["wiz_adduser"] = `{"adduser_done": false}`
	if err := d.RunFix(context.Background(), 0, "pw"); err != nil {
		t.Fatalf("RunFix() error = %v", err)
	}
	if d.Report().Failures[0].Fixed {
		t.Error("Fixed = true although host reported the flag false")
	}
}

func TestRunFixOutOfRange(t *testing.T) {
	d := NewDiagnostics(newFakeCommander(), testPluginID)
	if err := d.RunFix(context.Background(), 0, ""); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RunFix() error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestRunFixLegacyCommands(t *testing.T) {
	d := NewDiagnostics(newFakeCommander(), testPluginID, WithLegacyCommands())
	runFullTest(d, map[string]bool{})

	report := d.Report()
	want := []string{"adduser", "enable_spi", "spi_buffer_increase", "set_core_freq", "set_core_freq_min"}
	for i, f := range report.Failures {
		if f.FixCommand != want[i] {
			t.Errorf("Failures[%d].FixCommand = %s, want %s", i, f.FixCommand, want[i])
		}
	}
}

func TestFinishGuard(t *testing.T) {
	all := map[string]bool{"adduser": true, "spi_enabled": true, "spi_buffer_increase": true, "set_core_freq": true, "set_core_freq_min": true}
	fourOfFive := map[string]bool{"adduser": true, "spi_enabled": true, "spi_buffer_increase": true, "set_core_freq": true}

	tests := []struct {
		name          string
		passed        map[string]bool
		wizardPresent bool
		want          FinishResult
	}{
		{"all passed", all, true, FinishRestartRequired},
		{"four of five", fourOfFive, true, FinishIncomplete},
		{"none passed", map[string]bool{}, true, FinishIncomplete},
		{"standalone", fourOfFive, false, FinishSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiagnostics(newFakeCommander(), testPluginID)
			runFullTest(d, tt.passed)

			if got := d.FinishGuard(tt.wizardPresent); got != tt.want {
				t.Errorf("FinishGuard(%v) = %v, want %v", tt.wizardPresent, got, tt.want)
			}
		})
	}
}
