package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RawOutput represents a box for displaying a raw host response.
// Used in verbose mode to show exactly what the plugin returned.
type RawOutput struct {
	Title    string   // e.g., "Host Response"
	Lines    []string // Output lines
	Width    int      // Terminal width
	MaxLines int      // Maximum lines to display (0 = unlimited)
}

// NewRawOutput creates a new raw output box
func NewRawOutput(content string) *RawOutput {
	return &RawOutput{
		Title: "Host Response",
		Lines: strings.Split(strings.TrimRight(content, "\n"), "\n"),
		Width: GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (o *RawOutput) SetWidth(width int) *RawOutput {
	o.Width = width
	return o
}

// SetTitle sets a custom title for the box
func (o *RawOutput) SetTitle(title string) *RawOutput {
	o.Title = title
	return o
}

// SetMaxLines limits the number of lines displayed
func (o *RawOutput) SetMaxLines(max int) *RawOutput {
	o.MaxLines = max
	return o
}

// Render returns the styled output box
func (o *RawOutput) Render() string {
	lines := o.Lines
	truncated := 0
	if o.MaxLines > 0 && len(lines) > o.MaxLines {
		truncated = len(lines) - o.MaxLines
		lines = lines[:o.MaxLines]
	}

	body := RawOutputContentStyle.Render(strings.Join(lines, "\n"))
	parts := []string{RawOutputTitleStyle.Render(o.Title), body}
	if truncated > 0 {
		parts = append(parts, StepNoteStyle.Render(fmt.Sprintf("... %d more lines", truncated)))
	}

	width := o.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-4).
		Padding(0, 1).
		Render(strings.Join(parts, "\n"))
}

// String implements fmt.Stringer
func (o *RawOutput) String() string {
	return o.Render()
}
