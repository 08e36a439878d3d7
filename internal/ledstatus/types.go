package ledstatus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/muurk/ledstatus/internal/hostapi"
)

var (
	// ErrPasswordRequired is returned when the host answered errors:"password".
	// It is the only error kind the host reports for wizard and fix commands.
	ErrPasswordRequired = errors.New("password required")

	// ErrInFlight is returned when a request of the same category is still outstanding
	ErrInFlight = errors.New("request already in progress")

	// ErrUnknownStep is returned when a step, test or category name is not recognised
	ErrUnknownStep = errors.New("unknown step")

	// ErrIndexOutOfRange is returned for list operations on a missing entry
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNoSelection is returned when committing without an open draft
	ErrNoSelection = errors.New("no trigger rule open for editing")
)

// LightState is the strip's on/off state plus the torch state
type LightState struct {
	LightsOn bool `json:"lights_on"`
	TorchOn  bool `json:"torch_on"`
}

func lightStateFrom(s *hostapi.PluginStatus) LightState {
	return LightState{LightsOn: s.LightsOn, TorchOn: s.TorchOn}
}

// FinishResult is the outcome of a wizard finish guard
type FinishResult int

const (
	// FinishRestartRequired means every prerequisite is met; the host must reboot
	FinishRestartRequired FinishResult = iota
	// FinishIncomplete means some prerequisites are still missing
	FinishIncomplete
	// FinishSkipped means there is no wizard to finish
	FinishSkipped
)

func (f FinishResult) String() string {
	switch f {
	case FinishRestartRequired:
		return "restart_required"
	case FinishIncomplete:
		return "incomplete"
	case FinishSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("FinishResult(%d)", int(f))
	}
}

// Message returns the notice shown to the user for this result
func (f FinishResult) Message() string {
	switch f {
	case FinishRestartRequired:
		return "Setup complete. Restart the Raspberry Pi for the OS changes to take effect."
	case FinishIncomplete:
		return "Some setup steps are not complete yet. The LED strip may not work until they are."
	default:
		return ""
	}
}

// Step is one of the five OS remediation steps of the setup wizard
type Step int

const (
	StepAddUser Step = iota
	StepEnableSPI
	StepIncreaseBuffer
	StepSetCoreFreq
	StepSetCoreFreqMin
)

// AllSteps lists the wizard steps in the order the wizard presents them
var AllSteps = []Step{
	StepAddUser,
	StepEnableSPI,
	StepIncreaseBuffer,
	StepSetCoreFreq,
	StepSetCoreFreqMin,
}

// String returns the step's short name
func (s Step) String() string {
	switch s {
	case StepAddUser:
		return "adduser"
	case StepEnableSPI:
		return "enable_spi"
	case StepIncreaseBuffer:
		return "spi_buffer_increase"
	case StepSetCoreFreq:
		return "set_core_freq"
	case StepSetCoreFreqMin:
		return "set_core_freq_min"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// DoneFlag is the response field that reports the step as done
func (s Step) DoneFlag() string {
	switch s {
	case StepAddUser:
		return "adduser_done"
	case StepEnableSPI:
		return "spi_enabled"
	case StepIncreaseBuffer:
		return "spi_buffer_increase"
	case StepSetCoreFreq:
		return "core_freq_set"
	case StepSetCoreFreqMin:
		return "core_freq_min_set"
	default:
		return ""
	}
}

// Command returns the simple-API command that performs the step
func (s Step) Command(legacy bool) string {
	switch s {
	case StepAddUser:
		if legacy {
			return hostapi.CmdLegacyAddUser
		}
		return hostapi.CmdWizAddUser
	case StepEnableSPI:
		if legacy {
			return hostapi.CmdLegacyEnableSPI
		}
		return hostapi.CmdWizEnableSPI
	case StepIncreaseBuffer:
		if legacy {
			return hostapi.CmdLegacyIncreaseBuffer
		}
		return hostapi.CmdWizIncreaseBuffer
	case StepSetCoreFreq:
		if legacy {
			return hostapi.CmdLegacySetCoreFreq
		}
		return hostapi.CmdWizSetCoreFreq
	case StepSetCoreFreqMin:
		if legacy {
			return hostapi.CmdLegacySetCoreFreqMin
		}
		return hostapi.CmdWizSetCoreFreqMin
	default:
		return ""
	}
}

// Label is the human description of the step
func (s Step) Label() string {
	switch s {
	case StepAddUser:
		return "Add user to the gpio group"
	case StepEnableSPI:
		return "Enable SPI"
	case StepIncreaseBuffer:
		return "Increase the SPI buffer size"
	case StepSetCoreFreq:
		return "Set the GPU core frequency"
	case StepSetCoreFreqMin:
		return "Set the minimum GPU core frequency (Pi 4)"
	default:
		return s.String()
	}
}

// ParseStep accepts a step's short name, done flag or either command name
func ParseStep(name string) (Step, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range AllSteps {
		if name == s.String() || name == s.DoneFlag() || name == s.Command(false) || name == s.Command(true) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStep, name)
}

// stepForCommand maps a wizard command (either naming scheme) back to its step
func stepForCommand(command string) (Step, bool) {
	for _, s := range AllSteps {
		if command == s.Command(false) || command == s.Command(true) {
			return s, true
		}
	}
	return 0, false
}

// TestID identifies one OS configuration test run by the host
type TestID int

const (
	TestAddUser TestID = iota
	TestSPIEnabled
	TestSPIBufferIncrease
	TestSetCoreFreq
	TestSetCoreFreqMin
)

// AllTests lists the tests in the order the host runs them
var AllTests = []TestID{
	TestAddUser,
	TestSPIEnabled,
	TestSPIBufferIncrease,
	TestSetCoreFreq,
	TestSetCoreFreqMin,
}

// String returns the id the host uses in os_config_test messages
func (t TestID) String() string {
	switch t {
	case TestAddUser:
		return "adduser"
	case TestSPIEnabled:
		return "spi_enabled"
	case TestSPIBufferIncrease:
		return "spi_buffer_increase"
	case TestSetCoreFreq:
		return "set_core_freq"
	case TestSetCoreFreqMin:
		return "set_core_freq_min"
	default:
		return fmt.Sprintf("TestID(%d)", int(t))
	}
}

// Label is shown while the test runs and next to its result
func (t TestID) Label() string {
	switch t {
	case TestAddUser:
		return "User in gpio group"
	case TestSPIEnabled:
		return "SPI enabled"
	case TestSPIBufferIncrease:
		return "SPI buffer size increased"
	case TestSetCoreFreq:
		return "Core frequency set"
	case TestSetCoreFreqMin:
		return "Minimum core frequency set"
	default:
		return t.String()
	}
}

// FixStep is the wizard step that remediates a failed test
func (t TestID) FixStep() Step {
	switch t {
	case TestAddUser:
		return StepAddUser
	case TestSPIEnabled:
		return StepEnableSPI
	case TestSPIBufferIncrease:
		return StepIncreaseBuffer
	case TestSetCoreFreq:
		return StepSetCoreFreq
	default:
		return StepSetCoreFreqMin
	}
}

// ParseTestID maps a host test id onto TestID
func ParseTestID(id string) (TestID, bool) {
	for _, t := range AllTests {
		if id == t.String() {
			return t, true
		}
	}
	return 0, false
}

// Reason explains a test outcome
type Reason int

const (
	ReasonNone Reason = iota
	ReasonFailed
	ReasonError
	ReasonMissing
	ReasonPi4CoreFreq
	ReasonNotRequired
)

// String returns the reason code the host sends
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonFailed:
		return "failed"
	case ReasonError:
		return "error"
	case ReasonMissing:
		return "missing"
	case ReasonPi4CoreFreq:
		return "pi4_250"
	case ReasonNotRequired:
		return "not_required"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Text is the human explanation of the reason
func (r Reason) Text() string {
	switch r {
	case ReasonNone:
		return "Test Passed"
	case ReasonFailed:
		return "Test Failed"
	case ReasonError:
		return "Something went wrong running this test, check octoprint.log"
	case ReasonMissing:
		return "A required file was missing, is this a Raspberry Pi?"
	case ReasonPi4CoreFreq:
		return "core_freq=250 is set, which is not compatible with a Pi 4"
	case ReasonNotRequired:
		return "Not required on this Pi model"
	default:
		return "Unknown reason"
	}
}

// ParseReason maps a host reason code onto Reason.
// Unknown codes report ok=false and map to ReasonError.
func ParseReason(code string) (Reason, bool) {
	switch code {
	case "":
		return ReasonNone, true
	case "failed":
		return ReasonFailed, true
	case "error":
		return ReasonError, true
	case "missing":
		return ReasonMissing, true
	case "pi4_250":
		return ReasonPi4CoreFreq, true
	case "not_required":
		return ReasonNotRequired, true
	default:
		return ReasonError, false
	}
}

// Category is a trigger rule list in the plugin's custom settings
type Category string

const (
	CategoryAtCommand Category = "atcommand"
	CategoryEvent     Category = "event"
	CategoryGcode     Category = "gcode"
)

// AllCategories lists the trigger categories in display order
var AllCategories = []Category{CategoryAtCommand, CategoryEvent, CategoryGcode}

// Label is the settings tab title for the category
func (c Category) Label() string {
	switch c {
	case CategoryAtCommand:
		return "Custom @ commands"
	case CategoryEvent:
		return "Events"
	case CategoryGcode:
		return "G-code"
	default:
		return string(c)
	}
}

// ParseCategory validates a category name
func ParseCategory(name string) (Category, error) {
	for _, c := range AllCategories {
		if Category(strings.ToLower(name)) == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", ErrUnknownStep, name)
}

// MatchType selects how a G-code trigger matches the command line
type MatchType string

const (
	MatchGcode MatchType = "gcode"
	MatchExact MatchType = "exact"
	MatchRegex MatchType = "regex"
)

// Number decodes JSON numbers and numeric strings alike.
// Settings written by older plugin versions store delays and timers as strings.
type Number int

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*n = Number(i)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(int(f))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*n = 0
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Number(i)
	return nil
}

// TriggerRule maps a host event, @ command or G-code to an effect
type TriggerRule struct {
	Match     string    `json:"match"`
	MatchType MatchType `json:"match_type,omitempty"`
	Effect    string    `json:"effect"`
	Color     string    `json:"color"`
	Delay     Number    `json:"delay"`
}

// CustomTriggers is the plugin's "custom" settings block
type CustomTriggers struct {
	AtCommand []TriggerRule `json:"atcommand"`
	Event     []TriggerRule `json:"event"`
	Gcode     []TriggerRule `json:"gcode"`
}

// TorchSettings is the subset of effects.torch the client reacts to
type TorchSettings struct {
	Enabled      bool   `json:"enabled"`
	Toggle       bool   `json:"toggle"`
	Timer        Number `json:"timer"`
	AutoOnWebcam bool   `json:"auto_on_webcam"`
}

// PluginSettings is the subset of the plugin's settings this client reads
type PluginSettings struct {
	Strip struct {
		Count Number `json:"count"`
	} `json:"strip"`
	Effects struct {
		Torch TorchSettings `json:"torch"`
	} `json:"effects"`
	Custom CustomTriggers `json:"custom"`
}
