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
)

// WizardState is a snapshot of the setup wizard
type WizardState struct {
	// Done reports which steps the host has confirmed as complete
	Done map[Step]bool

	// PasswordRequired is set when the last step needed the sudo password
	PasswordRequired bool

	// InFlight is set while a step command is outstanding
	InFlight bool
}

// Complete reports whether every step is done
func (s WizardState) Complete() bool {
	for _, step := range AllSteps {
		if !s.Done[step] {
			return false
		}
	}
	return true
}

// WizardOption configures a ConfigWizard
type WizardOption func(*ConfigWizard)

// WithLegacyCommands makes the wizard send the pre-"wiz_" command names
// understood by older plugin releases.
func WithLegacyCommands() WizardOption {
	return func(w *ConfigWizard) {
		w.legacy = true
	}
}

// ConfigWizard drives the first-run OS setup steps
type ConfigWizard struct {
	notifier

	cmd    Commander
	legacy bool

	mu               sync.Mutex
	done             map[Step]bool
	passwordRequired bool

	inFlight atomic.Bool
}

// NewConfigWizard creates a wizard that sends its steps through cmd
func NewConfigWizard(cmd Commander, opts ...WizardOption) *ConfigWizard {
	w := &ConfigWizard{
		cmd:  cmd,
		done: make(map[Step]bool, len(AllSteps)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns a snapshot of the wizard
func (w *ConfigWizard) State() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()

	done := make(map[Step]bool, len(AllSteps))
	for _, s := range AllSteps {
		done[s] = w.done[s]
	}
	return WizardState{
		Done:             done,
		PasswordRequired: w.passwordRequired,
		InFlight:         w.inFlight.Load(),
	}
}

// Hydrate seeds the done flags from the wizard details the host reports
// on page load. Flags missing from details are left untouched.
func (w *ConfigWizard) Hydrate(details []byte) error {
	if len(details) == 0 {
		return nil
	}

	resp, err := parseStepResponse(details)
	if err != nil {
		return err
	}

	w.mu.Lock()
	for step, done := range resp.flags {
		w.done[step] = done
	}
	w.mu.Unlock()

	w.notify()
	return nil
}

// RunStep sends the command for step with the sudo password.
// Flags present in the response are applied; ErrPasswordRequired is
// returned when the host asked for a password, and no flag is applied then.
func (w *ConfigWizard) RunStep(ctx context.Context, step Step, password string) error {
	command := step.Command(w.legacy)
	if command == "" {
		return fmt.Errorf("%w: %v", ErrUnknownStep, step)
	}

	if !w.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	w.notify()
	defer func() {
		w.inFlight.Store(false)
		w.notify()
	}()

	data, err := w.cmd.Command(ctx, command, map[string]any{"password": password})
	if err != nil {
		return fmt.Errorf("wizard step %s: %w", step, err)
	}

	resp, err := parseStepResponse(data)
	if err != nil {
		return fmt.Errorf("wizard step %s: %w", step, err)
	}

	w.mu.Lock()
	if !resp.passwordRequired {
		for s, done := range resp.flags {
			w.done[s] = done
		}
	}
	w.passwordRequired = resp.passwordRequired
	w.mu.Unlock()

	if resp.passwordRequired {
		return ErrPasswordRequired
	}
	if resp.message != "" {
		logging.Warn("Wizard step reported an error",
			zap.String("step", step.String()),
			zap.String("error", resp.message),
		)
	}
	return nil
}

// Finish decides what the wizard's finish action reports
func (w *ConfigWizard) Finish() FinishResult {
	if w.State().Complete() {
		return FinishRestartRequired
	}
	return FinishIncomplete
}

// stepResponse is a decoded wizard or fix command response
type stepResponse struct {
	flags            map[Step]bool
	passwordRequired bool
	message          string
}

func parseStepResponse(data []byte) (stepResponse, error) {
	resp := stepResponse{flags: make(map[Step]bool)}
	if len(data) == 0 {
		return resp, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return resp, hostapi.NewParseError("failed to parse wizard response", err)
	}

	for _, step := range AllSteps {
		raw, ok := fields[step.DoneFlag()]
		if !ok {
			continue
		}
		if done, ok := decodeFlag(raw); ok {
			resp.flags[step] = done
		}
	}

	if raw, ok := fields["errors"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil {
			if msg == "password" {
				resp.passwordRequired = true
			} else {
				resp.message = msg
			}
		}
	}
	return resp, nil
}

// decodeFlag accepts either a plain boolean or the {"passed": bool}
// check result the host reports from its wizard details.
func decodeFlag(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}

	var check struct {
		Passed *bool `json:"passed"`
	}
	if err := json.Unmarshal(raw, &check); err == nil && check.Passed != nil {
		return *check.Passed, true
	}
	return false, false
}
