package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ledstatus/internal/ledstatus"
)

// ReportMsg carries a diagnostics snapshot into a running ReportModel
type ReportMsg struct {
	Report ledstatus.DiagnosticsReport
}

// ErrMsg aborts a running ReportModel
type ErrMsg struct {
	Err error
}

// ReportModel is a Bubble Tea model that renders OS configuration test
// progress as snapshots arrive, and exits once the run completes.
type ReportModel struct {
	progress  *Progress
	report    ledstatus.DiagnosticsReport
	started   bool
	done      bool
	cancelled bool
	err       error
}

// NewReportModel creates a model for a single test run
func NewReportModel() ReportModel {
	width, _ := GetTerminalSize()
	p := NewTestProgress()
	p.SetWidth(width)
	return ReportModel{progress: p}
}

// Init implements tea.Model
func (m ReportModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReportMsg:
		m.report = msg.Report
		m.progress.ApplyReport(msg.Report)
		hasResults := len(msg.Report.Successes)+len(msg.Report.Failures) > 0
		if msg.Report.InProgress {
			m.started = true
		} else if m.started || hasResults {
			m.done = true
			return m, tea.Quit
		}

	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.progress.SetWidth(msg.Width)
	}
	return m, nil
}

// View implements tea.Model
func (m ReportModel) View() string {
	return m.progress.Render() + "\n"
}

// Report returns the last snapshot received
func (m ReportModel) Report() ledstatus.DiagnosticsReport {
	return m.report
}

// Done reports whether the test run completed
func (m ReportModel) Done() bool {
	return m.done
}

// Cancelled reports whether the user quit before completion
func (m ReportModel) Cancelled() bool {
	return m.cancelled
}

// Err returns the error that aborted the run, if any
func (m ReportModel) Err() error {
	return m.err
}

// ReportQueue hands diagnostics snapshots to a program in the order they
// were taken. Push never blocks, so it can be called from a listener.
type ReportQueue struct {
	mu      sync.Mutex
	pending []ledstatus.DiagnosticsReport
	signal  chan struct{}
}

// NewReportQueue creates an empty queue
func NewReportQueue() *ReportQueue {
	return &ReportQueue{signal: make(chan struct{}, 1)}
}

// Push queues a snapshot
func (q *ReportQueue) Push(report ledstatus.DiagnosticsReport) {
	q.mu.Lock()
	q.pending = append(q.pending, report)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Forward sends queued snapshots as ReportMsg until ctx is done
func (q *ReportQueue) Forward(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.signal:
		}

		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, report := range batch {
			send(ReportMsg{Report: report})
		}
	}
}

// Printer provides methods for printing UI components to a writer.
// This is the primary way CLI commands should output styled content.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintLines writes multiple lines
func (p *Printer) PrintLines(lines ...string) {
	for _, line := range lines {
		_, _ = fmt.Fprintln(p.out, line)
	}
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintRawOutput prints a raw host response box (for verbose mode)
func (p *Printer) PrintRawOutput(output string) {
	p.Println(NewRawOutput(output).SetWidth(p.width).Render())
}

// PrintLightState prints the lights and torch indicators
func (p *Printer) PrintLightState(state ledstatus.LightState) {
	p.PrintLines(
		"  "+RenderLight("Lights", state.LightsOn),
		"  "+RenderLight("Torch", state.TorchOn),
	)
}

// PrintReport prints the final result of an OS configuration test run
func (p *Printer) PrintReport(report ledstatus.DiagnosticsReport) {
	prog := NewTestProgress()
	prog.SetWidth(p.width)
	prog.ShowBar = false
	prog.Label = ""
	prog.ApplyReport(report)
	p.Println(prog.Render())
	p.Newline()

	pending := 0
	for _, f := range report.Failures {
		if !f.Fixed {
			pending++
		}
	}

	if pending == 0 {
		p.PrintSuccess("All tests passed", map[string]string{
			"Passed": fmt.Sprintf("%d/%d", len(report.Successes), len(ledstatus.AllTests)),
		})
		return
	}

	var tips []string
	for _, f := range report.Failures {
		if f.Fixed {
			continue
		}
		tips = append(tips, fmt.Sprintf("%s: %s (fix with 'ledstatus-cfg setup %s')",
			f.Name, f.ReasonText, f.Test.FixStep()))
	}
	p.PrintError(
		fmt.Sprintf("%d of %d tests failed", pending, len(ledstatus.AllTests)),
		nil,
		tips,
	)
}

// RenderList renders a simple bullet list
func RenderList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "  • "+item)
	}
	return strings.Join(lines, "\n")
}
