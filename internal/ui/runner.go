package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledstatus/internal/hostapi"
)

// RunnerConfig holds configuration for a multi-step host operation
type RunnerConfig struct {
	Title      string            // Command title (e.g., "Configuration Wizard")
	Command    string            // Full command (e.g., "ledstatus-cfg setup")
	Params     map[string]string // Parameters to display in header
	TotalSteps int               // Total number of steps (for progress)
	StepNames  []string          // Names for each step
	Verbose    bool              // Whether to show raw host responses
	Output     io.Writer         // Output writer (default: os.Stdout)
}

// Runner orchestrates the UI for a multi-step host operation.
// It manages the header → progress → result flow and provides
// callbacks for reporting progress.
type Runner struct {
	config    RunnerConfig
	header    *Header
	progress  *Progress
	output    io.Writer
	rawOutput string
	startTime time.Time
	width     int
}

// NewRunner creates a new runner for a multi-step operation
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	header := NewHeader(config.Title, config.Command, config.Params)
	header.SetWidth(width)

	var prog *Progress
	if config.TotalSteps > 0 {
		prog = NewProgress("", config.TotalSteps)
		prog.SetWidth(width)
		if len(config.StepNames) > 0 {
			prog.SetStepNames(config.StepNames)
		}
	}

	return &Runner{
		config:   config,
		header:   header,
		progress: prog,
		output:   config.Output,
		width:    width,
	}
}

// Operation is the function signature for the work a Runner drives.
// It returns details to show in the success box.
type Operation func(ctx context.Context, onStep StepCallback) (map[string]string, error)

// Run executes the operation with UI updates.
// It displays the header, tracks progress, and shows the result.
func (r *Runner) Run(ctx context.Context, operation Operation) error {
	r.startTime = time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(ctx, r.stepCallback())
	duration := time.Since(r.startTime)

	if err != nil {
		r.printFailure(err)
	} else {
		r.printSuccess(details, duration)
	}
	return err
}

// SetRawOutput stores a raw host response for verbose display
func (r *Runner) SetRawOutput(output string) {
	r.rawOutput = output
}

func (r *Runner) stepCallback() StepCallback {
	return func(stepNumber int, name string, status StepStatus, message string) {
		if r.progress == nil || stepNumber < 1 || stepNumber > len(r.progress.Steps) {
			return
		}

		if name != "" {
			r.progress.Steps[stepNumber-1].Name = name
		}
		r.progress.UpdateStep(stepNumber, status, message)

		line := r.progress.renderStepLine(r.progress.Steps[stepNumber-1])
		if status == StepRunning {
			// Overwritten when the step finishes
			_, _ = fmt.Fprint(r.output, line+"\r")
			return
		}
		_, _ = fmt.Fprintln(r.output, line)
	}
}

func (r *Runner) printSuccess(details map[string]string, duration time.Duration) {
	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	_, _ = fmt.Fprintln(r.output)
	result := NewSuccessResult(r.config.Title+" complete", details)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
	r.printRawOutput()
}

func (r *Runner) printFailure(err error) {
	_, _ = fmt.Fprintln(r.output)
	result := NewFailureResult(r.config.Title+" failed", err, TroubleshootingTips(hostapi.GetTroubleshootingHint(err)))
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
	r.printRawOutput()
}

func (r *Runner) printRawOutput() {
	if !r.config.Verbose || r.rawOutput == "" {
		return
	}
	_, _ = fmt.Fprintln(r.output)
	raw := NewRawOutput(r.rawOutput)
	raw.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, raw.Render())
}

// PrintPleaseWait prints a styled "please wait" message for long-running operations.
// The message parameter should describe what's happening, e.g., "Waiting for test results".
// The duration hint helps set user expectations, e.g., "up to 30 seconds".
func PrintPleaseWait(w io.Writer, message string, durationHint string) {
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)

	hintStyle := lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	line := style.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + hintStyle.Render("("+durationHint+")")
	}
	line += style.Render("...")

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, line)
	_, _ = fmt.Fprintln(w)
}
