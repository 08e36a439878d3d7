// Ledstatus-cfg controls and configures the WS281x LED Status plugin of an
// OctoPrint host.
//
// It finds OctoPrint instances on the local network, switches the LED strip
// and torch, runs the plugin's Raspberry Pi setup steps and OS configuration
// test, and edits the custom trigger rules. All communication goes through
// OctoPrint's HTTP API and push socket; nothing runs on the host itself.
//
// Usage:
//
//	ledstatus-cfg [command] [flags]
//
// Running without arguments launches the interactive interface.
// See 'ledstatus-cfg --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/version"
	"github.com/muurk/ledstatus/internal/wizard/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledstatus-cfg",
	Short: "WS281x LED Status control and configuration utility",
	Long: `A standalone utility for the WS281x LED Status plugin of OctoPrint.

Provides host discovery, light and torch control, the Raspberry Pi setup
steps, the OS configuration test and custom trigger editing.

If no command is specified, the interactive interface will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	RunE: runInteractive,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", version.ProductName, version.Full())
	},
}

// runInteractive launches the TUI. A host picked with --host or --url
// skips discovery.
func runInteractive(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	var target *tui.Target
	switch {
	case hostURL != "":
		target = &tui.Target{
			Name:     hostNameOrDefault(hostURL),
			URL:      hostURL,
			APIKey:   apiKey,
			PluginID: pluginID,
		}
	case hostName != "":
		host := registry.GetHost(hostName)
		if host == nil {
			return fmt.Errorf("unknown host %q (see 'ledstatus-cfg hosts list')", hostName)
		}
		target = tui.TargetFromHost(hostName, host)
	}

	app := tui.NewAppModel(registry, target)
	final, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if m, ok := final.(tui.AppModel); ok {
		m.Close()
	}
	if err != nil && cmd.Context().Err() == nil {
		return fmt.Errorf("interactive interface error: %w", err)
	}
	return nil
}
