package ledstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/push"
)

// PushTypeConfigTest is the push message type carrying OS test progress
const PushTypeConfigTest = "os_config_test"

const (
	testStatusInProgress = "in_progress"
	testStatusComplete   = "complete"
)

// TestSuccess is a passed OS configuration test
type TestSuccess struct {
	Test       TestID
	Name       string
	ReasonText string
}

// TestFailure is a failed OS configuration test and its remediation
type TestFailure struct {
	Test       TestID
	Name       string
	Reason     Reason
	ReasonText string
	FixCommand string
	Fixed      bool
}

// DiagnosticsReport is a snapshot of the current test run
type DiagnosticsReport struct {
	InProgress       bool
	CurrentTest      string
	Successes        []TestSuccess
	Failures         []TestFailure
	PasswordRequired bool
}

// Diagnostics runs the host's OS configuration self-test and collects
// the results pushed back while it runs.
type Diagnostics struct {
	notifier

	cmd      Commander
	pluginID string
	legacy   bool

	mu               sync.Mutex
	inProgress       bool
	currentTest      string
	successes        []TestSuccess
	failures         []TestFailure
	passwordRequired bool

	testInFlight atomic.Bool
	fixInFlight  atomic.Bool
}

// NewDiagnostics creates a diagnostics runner for the given plugin id
func NewDiagnostics(cmd Commander, pluginID string, opts ...WizardOption) *Diagnostics {
	// Fix commands share the wizard's command naming
	w := &ConfigWizard{}
	for _, opt := range opts {
		opt(w)
	}
	return &Diagnostics{
		cmd:      cmd,
		pluginID: pluginID,
		legacy:   w.legacy,
	}
}

// Report returns a snapshot of the current run
func (d *Diagnostics) Report() DiagnosticsReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	return DiagnosticsReport{
		InProgress:       d.inProgress,
		CurrentTest:      d.currentTest,
		Successes:        append([]TestSuccess(nil), d.successes...),
		Failures:         append([]TestFailure(nil), d.failures...),
		PasswordRequired: d.passwordRequired,
	}
}

// RunConfigTest clears the previous results and asks the host to start a test run.
// Results arrive through HandlePush.
func (d *Diagnostics) RunConfigTest(ctx context.Context) error {
	if !d.testInFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer d.testInFlight.Store(false)

	d.mu.Lock()
	d.successes = nil
	d.failures = nil
	d.currentTest = ""
	d.passwordRequired = false
	d.inProgress = true
	d.mu.Unlock()
	d.notify()

	if _, err := d.cmd.Command(ctx, hostapi.CmdTestOSConfig, nil); err != nil {
		d.mu.Lock()
		d.inProgress = false
		d.mu.Unlock()
		d.notify()
		return fmt.Errorf("start OS config test: %w", err)
	}
	return nil
}

// HandlePush applies an os_config_test message.
// Messages from other plugins and of other types are ignored.
func (d *Diagnostics) HandlePush(msg push.Message) {
	if msg.Plugin != d.pluginID || msg.Type != PushTypeConfigTest {
		return
	}

	var payload struct {
		Test   string          `json:"test"`
		Status json.RawMessage `json:"status"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logging.Warn("Ignoring malformed os_config_test message", zap.Error(err))
		return
	}

	var status string
	if err := json.Unmarshal(payload.Status, &status); err == nil {
		d.applyStatus(payload.Test, status)
		return
	}

	var outcome struct {
		Passed bool   `json:"passed"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(payload.Status, &outcome); err != nil {
		logging.Warn("Ignoring malformed os_config_test status",
			zap.String("test", payload.Test),
			zap.Error(err),
		)
		return
	}
	d.applyOutcome(payload.Test, outcome.Passed, outcome.Reason)
}

func (d *Diagnostics) applyStatus(testKey, status string) {
	d.mu.Lock()
	switch status {
	case testStatusInProgress:
		if test, ok := ParseTestID(testKey); ok {
			d.currentTest = test.Label()
		} else {
			d.currentTest = testKey
		}
	case testStatusComplete:
		d.inProgress = false
		d.currentTest = ""
	default:
		d.mu.Unlock()
		logging.Debug("Unknown os_config_test status", zap.String("status", status))
		return
	}
	d.mu.Unlock()
	d.notify()
}

func (d *Diagnostics) applyOutcome(testKey string, passed bool, reasonCode string) {
	test, ok := ParseTestID(testKey)
	if !ok {
		logging.Warn("Ignoring result for unknown test", zap.String("test", testKey))
		return
	}

	reason, known := ParseReason(reasonCode)
	if !known {
		logging.Debug("Unknown test reason", zap.String("reason", reasonCode))
	}

	d.mu.Lock()
	if passed {
		d.successes = append(d.successes, TestSuccess{
			Test:       test,
			Name:       test.Label(),
			ReasonText: reason.Text(),
		})
	} else {
		d.failures = append(d.failures, TestFailure{
			Test:       test,
			Name:       test.Label(),
			Reason:     reason,
			ReasonText: reason.Text(),
			FixCommand: test.FixStep().Command(d.legacy),
		})
	}
	d.mu.Unlock()
	d.notify()
}

// RunFix sends the remediation command of the failure at index.
// The failure is marked fixed when the host reports the matching flag as done.
func (d *Diagnostics) RunFix(ctx context.Context, index int, password string) error {
	d.mu.Lock()
	if index < 0 || index >= len(d.failures) {
		d.mu.Unlock()
		return fmt.Errorf("%w: failure %d", ErrIndexOutOfRange, index)
	}
	failure := d.failures[index]
	d.mu.Unlock()

	if !d.fixInFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer d.fixInFlight.Store(false)

	data, err := d.cmd.Command(ctx, failure.FixCommand, map[string]any{"password": password})
	if err != nil {
		return fmt.Errorf("fix %s: %w", failure.Test, err)
	}

	resp, err := parseStepResponse(data)
	if err != nil {
		return fmt.Errorf("fix %s: %w", failure.Test, err)
	}

	step, _ := stepForCommand(failure.FixCommand)

	d.mu.Lock()
	d.passwordRequired = resp.passwordRequired
	if !resp.passwordRequired && resp.flags[step] {
		// The list may have been reset by a new run meanwhile
		for i := range d.failures {
			if d.failures[i].Test == failure.Test {
				d.failures[i].Fixed = true
			}
		}
	}
	d.mu.Unlock()
	d.notify()

	if resp.passwordRequired {
		return ErrPasswordRequired
	}
	return nil
}

// FinishGuard decides what finishing the setup wizard reports based on the
// last test run. It is skipped when the diagnostics run outside the wizard.
func (d *Diagnostics) FinishGuard(wizardPresent bool) FinishResult {
	if !wizardPresent {
		return FinishSkipped
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.failures) > 0 && len(d.successes) < len(AllTests) {
		return FinishIncomplete
	}
	return FinishRestartRequired
}
