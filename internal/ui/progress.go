package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledstatus/internal/ledstatus"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Skipped
)

// Step represents a single step in a multi-step operation
type Step struct {
	Number  int        // Step number (1-based)
	Name    string     // Step description
	Status  StepStatus // Current status
	Message string     // Optional status message (e.g., "Test Passed", "password required")
}

// Progress represents a progress display with bar and step list
type Progress struct {
	Label     string  // e.g., "Testing OS configuration..."
	Steps     []Step  // List of steps
	Current   int     // Current step (1-based)
	Total     int     // Total steps
	Percent   float64 // Progress percentage (0.0 - 1.0)
	Width     int     // Terminal width
	ShowBar   bool    // Whether to show progress bar
	ShowSteps bool    // Whether to show step list
	bar       progress.Model
}

// NewProgress creates a new progress display
func NewProgress(label string, totalSteps int) *Progress {
	steps := make([]Step, totalSteps)
	for i := range steps {
		steps[i] = Step{
			Number: i + 1,
			Status: StepPending,
		}
	}

	return &Progress{
		Label:     label,
		Steps:     steps,
		Total:     totalSteps,
		Width:     GetTerminalWidth(),
		ShowBar:   true,
		ShowSteps: true,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// NewTestProgress creates a progress display with one step per OS configuration test
func NewTestProgress() *Progress {
	p := NewProgress("Testing OS configuration...", len(ledstatus.AllTests))
	names := make([]string, len(ledstatus.AllTests))
	for i, test := range ledstatus.AllTests {
		names[i] = test.Label()
	}
	return p.SetStepNames(names)
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20 // Leave room for percentage and step count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// SetStepNames sets the names for all steps
func (p *Progress) SetStepNames(names []string) *Progress {
	for i, name := range names {
		if i < len(p.Steps) {
			p.Steps[i].Name = name
		}
	}
	return p
}

// UpdateStep updates a specific step's status and optional message
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	idx := stepNumber - 1
	p.Steps[idx].Status = status
	p.Steps[idx].Message = message

	if status == StepRunning {
		p.Current = stepNumber
		return
	}

	finished := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepFailed || s.Status == StepSkipped {
			finished++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(finished) / float64(p.Total)
	}
}

// CompleteStep marks a step as complete
func (p *Progress) CompleteStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepComplete, message)
}

// FailStep marks a step as failed
func (p *Progress) FailStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepFailed, message)
}

// StartStep marks a step as running
func (p *Progress) StartStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepRunning, message)
}

// ApplyReport maps a diagnostics snapshot onto the test steps.
// The progress must have been created with NewTestProgress.
func (p *Progress) ApplyReport(report ledstatus.DiagnosticsReport) {
	p.Current = 0
	for i, test := range ledstatus.AllTests {
		p.UpdateStep(i+1, StepPending, "")
		if report.InProgress && report.CurrentTest == test.Label() {
			p.UpdateStep(i+1, StepRunning, "")
		}
	}
	for _, s := range report.Successes {
		p.UpdateStep(testStep(s.Test), StepComplete, s.ReasonText)
	}
	for _, f := range report.Failures {
		if f.Fixed {
			p.UpdateStep(testStep(f.Test), StepComplete, "fixed, restart required")
			continue
		}
		p.UpdateStep(testStep(f.Test), StepFailed, f.ReasonText)
	}
}

func testStep(test ledstatus.TestID) int {
	for i, t := range ledstatus.AllTests {
		if t == test {
			return i + 1
		}
	}
	return 0
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	if p.ShowBar {
		b.WriteString(p.renderProgressBar())
		b.WriteString("\n\n")
	}

	if p.ShowSteps {
		b.WriteString(p.renderStepList())
	}

	return b.String()
}

// renderProgressBar renders the progress bar line
func (p *Progress) renderProgressBar() string {
	barView := p.bar.ViewAs(p.Percent)
	percentStr := fmt.Sprintf("%3.0f%%", p.Percent*100)
	stepStr := fmt.Sprintf("[%d/%d]", p.Current, p.Total)

	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %s", barView, percentStr, stepStr))
}

// renderStepList renders the list of steps
func (p *Progress) renderStepList() string {
	lines := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		lines = append(lines, p.renderStepLine(step))
	}
	return strings.Join(lines, "\n")
}

// renderStepLine renders a single step line
func (p *Progress) renderStepLine(step Step) string {
	prefix := fmt.Sprintf("  [%d/%d]", step.Number, p.Total)

	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default: // StepPending
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(style.Render(step.Name))

	// Keep markers in a consistent column
	padding := 45 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// StepCallback is the function signature for step progress updates.
// Commands call this to report progress.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)
