package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/ui"
)

// Command flags
var (
	hostsAddDefault  bool
	hostsAddNoVerify bool

	configDump bool
)

func init() {
	rootCmd.AddCommand(hostsCmd)
	hostsCmd.AddCommand(hostsAddCmd)
	hostsCmd.AddCommand(hostsListCmd)
	hostsCmd.AddCommand(hostsRemoveCmd)

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

// hostsCmd is the parent for the host registry commands
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage saved OctoPrint hosts",
	Long: `Manage the OctoPrint hosts saved in the configuration file.

The first host added becomes the default used when --host is not given.`,
}

var hostsAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Save a host",
	Long: `Save a host under <name>. The plugin is contacted with the given API key
before saving unless --no-verify is set.

Create an application key in OctoPrint under Settings > Application Keys.`,
	Example: `  ledstatus-cfg hosts add octopi http://octopi.local --api-key ABC123 --default
  ledstatus-cfg hosts add voron http://192.168.1.30:5000 --api-key XYZ --plugin-id ws281x_led_status`,
	Args: cobra.ExactArgs(2),
	RunE: runHostsAdd,
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved hosts",
	RunE:  runHostsList,
}

var hostsRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a saved host",
	Args:    cobra.ExactArgs(1),
	RunE:    runHostsRemove,
}

func init() {
	hostsAddCmd.Flags().BoolVar(&hostsAddDefault, "default", false, "Make this the default host")
	hostsAddCmd.Flags().BoolVar(&hostsAddNoVerify, "no-verify", false, "Save without contacting the host")
}

func runHostsAdd(cmd *cobra.Command, args []string) error {
	name, rawURL := args[0], strings.TrimRight(args[1], "/")
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	details := map[string]string{"Name": name, "URL": rawURL}
	if !hostsAddNoVerify {
		client := hostapi.NewClient(rawURL, apiKey)
		if pluginID != "" {
			client.PluginID = pluginID
		}
		status, err := client.Status(cmd.Context())
		if err != nil {
			return printHostError(printer, "Could not verify "+rawURL, err)
		}
		details["Lights"] = onOff(status.LightsOn)
	}

	host := registry.SetHost(name, rawURL, apiKey)
	if pluginID != "" {
		host.PluginID = pluginID
	}
	if legacy {
		host.LegacyCommands = true
	}
	if !hostsAddNoVerify {
		host.LastSeen = time.Now()
	}
	if hostsAddDefault {
		registry.Preferences.DefaultHost = name
	}
	if err := registry.Save(); err != nil {
		return err
	}

	if registry.Preferences.DefaultHost == name {
		details["Default"] = "yes"
	}
	printer.PrintSuccess("Host saved", details)
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func runHostsList(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	names := registry.HostNames()
	if jsonOutput() {
		return printJSON(redacted(registry).Hosts)
	}
	if len(names) == 0 {
		printer.Println("No saved hosts. Use 'ledstatus-cfg scan' or 'ledstatus-cfg hosts add'.")
		return nil
	}

	for _, name := range names {
		host := registry.GetHost(name)
		marker := " "
		if registry.Preferences.DefaultHost == name {
			marker = "*"
		}
		seen := "never"
		if !host.LastSeen.IsZero() {
			seen = host.LastSeen.Local().Format("2006-01-02 15:04")
		}
		key := "no API key"
		if host.APIKey != "" {
			key = "API key set"
		}
		printer.Println(fmt.Sprintf("%s %-16s %-32s %-12s last seen %s", marker, name, host.URL, key, seen))
	}
	return nil
}

func runHostsRemove(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	if !registry.RemoveHost(args[0]) {
		return fmt.Errorf("unknown host %q (see 'ledstatus-cfg hosts list')", args[0])
	}
	if err := registry.Save(); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Host removed", map[string]string{"Name": args[0]})
	return nil
}

// configCmd is the parent for configuration file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with API keys redacted",
	Example: `  ledstatus-cfg config show
  ledstatus-cfg config show --dump`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().BoolVar(&configDump, "dump", false, "Dump the parsed registry structure")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	safe := redacted(registry)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "# %s\n", path)

	if configDump {
		_, _ = fmt.Fprintln(out, litter.Sdump(safe))
		return nil
	}
	if jsonOutput() {
		return printJSON(safe)
	}

	data, err := yaml.Marshal(safe)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, _ = out.Write(data)
	return nil
}

// redacted returns a copy of the registry with API keys masked
func redacted(r *config.Registry) *config.Registry {
	safe := &config.Registry{
		Version:     r.Version,
		Hosts:       make(map[string]*config.Host, len(r.Hosts)),
		Preferences: r.Preferences,
	}
	for name, host := range r.Hosts {
		h := *host
		if h.APIKey != "" {
			h.APIKey = maskKey(h.APIKey)
		}
		safe.Hosts[name] = &h
	}
	return safe
}

// maskKey keeps the last four characters of a key
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
