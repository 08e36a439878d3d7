package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType        // Success, failure, or warning
	Title           string            // e.g., "Lights turned on"
	Details         map[string]string // Key-value details to display
	Error           error             // Error (for failure results)
	Troubleshooting []string          // Troubleshooting tips (for failure results)
	Width           int               // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	switch r.Type {
	case ResultFailure:
		return ErrorBoxStyle(width).Render(r.renderFailure(width))
	case ResultWarning:
		title := lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", r.Title))
		return WarningBoxStyle(width).Render(r.renderDetails(title))
	default:
		title := SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
		return SuccessBoxStyle(width).Render(r.renderDetails(title))
	}
}

// renderDetails renders a title followed by the sorted detail lines
func (r *Result) renderDetails(title string) string {
	lines := []string{"", title, ""}

	for _, key := range sortedKeys(r.Details) {
		keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", key))
		valueStyled := ResultValueStyle.Render(r.Details[key])
		lines = append(lines, keyStyled+" "+valueStyled)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// renderFailure renders the body of a failure result box
func (r *Result) renderFailure(width int) string {
	titleLine := ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title))
	lines := []string{"", titleLine, ""}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	if len(r.Troubleshooting) > 0 {
		troubleLines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range r.Troubleshooting {
			troubleLines = append(troubleLines, TroubleshootingItemStyle.Render("  • "+tip))
		}
		box := TroubleshootingBoxStyle(width).Render(strings.Join(troubleLines, "\n"))
		lines = append(lines, box, "")
	}

	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// TroubleshootingTips splits a multi-line hint into bullet items,
// dropping the headline and "Troubleshooting:" label.
func TroubleshootingTips(hint string) []string {
	var tips []string
	for _, line := range strings.Split(hint, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "•") {
			tips = append(tips, strings.TrimSpace(strings.TrimPrefix(line, "•")))
		}
	}
	if len(tips) == 0 && strings.TrimSpace(hint) != "" {
		tips = append(tips, strings.TrimSpace(hint))
	}
	return tips
}

// --- Convenience functions for quick rendering ---

// RenderSuccess renders a success box with the given title and details
func RenderSuccess(title string, details map[string]string) string {
	return NewSuccessResult(title, details).Render()
}
