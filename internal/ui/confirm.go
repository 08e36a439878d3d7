package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrNotTerminal is returned when a password prompt has no terminal to read from
var ErrNotTerminal = errors.New("stdin is not a terminal")

// Confirm displays a warning box and asks a yes/no question on in.
// Only "y" or "yes" (any case) counts as agreement.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", title)),
		"",
	}
	for _, warning := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+warning))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, WarningBoxStyle(width).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	_, _ = fmt.Fprint(out, promptStyle.Render("Continue? [y/N]: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}

	cancelStyle := lipgloss.NewStyle().Foreground(MutedColor)
	_, _ = fmt.Fprintln(out, cancelStyle.Render("  Operation cancelled."))
	return false
}

// ConfigChangeConfirmation warns before commands that edit the host's OS configuration
func ConfigChangeConfirmation(in io.Reader, out io.Writer) bool {
	return Confirm(in, out, "OS CONFIGURATION CHANGE", []string{
		"This will modify system files on the printer host (e.g. /boot/config.txt)",
		"The host must be rebooted for the changes to take effect",
		"Do not run this while a print is in progress",
	})
}

// PromptPassword reads the host's sudo password from the terminal without echo
func PromptPassword(out io.Writer, host string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}

	style := lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	_, _ = fmt.Fprint(out, style.Render(fmt.Sprintf("sudo password for %s: ", host)))

	password, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
