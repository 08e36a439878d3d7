package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/ledstatus/internal/config"
	"github.com/muurk/ledstatus/internal/discovery"
	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/ledstatus"
	"github.com/muurk/ledstatus/internal/ui"
)

// Command flags
var (
	scanTimeout int
	scanSave    bool

	testColor  string
	testEffect string
	testDelay  int
	testRGB    string

	powerMA     float64
	powerPixels int
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lightsCmd)
	rootCmd.AddCommand(torchCmd)
	rootCmd.AddCommand(testLEDCmd)
	rootCmd.AddCommand(powerCmd)
}

// scanCmd discovers OctoPrint hosts on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for OctoPrint hosts on the network",
	Long: `Scan for OctoPrint hosts using mDNS/DNS-SD discovery.

OctoPrint announces itself as _octoprint._tcp. Discovery does not check
whether the LED status plugin is installed; 'ledstatus-cfg status' does.`,
	Example: `  # Scan for 5 seconds (default)
  ledstatus-cfg scan

  # Longer scan, remembering every host found
  ledstatus-cfg scan --timeout 15 --save`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Add discovered hosts to the registry")
}

func runScan(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())
	if !jsonOutput() {
		ui.PrintPleaseWait(cmd.OutOrStdout(), "Scanning for OctoPrint hosts", fmt.Sprintf("%d seconds", scanTimeout))
	}

	hosts, err := discovery.ScanForHosts(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if jsonOutput() {
		return printJSON(hosts)
	}

	if len(hosts) == 0 {
		printer.PrintWarning("No OctoPrint hosts found", nil)
		printer.Println(ui.RenderList([]string{
			"Ensure the printer host is powered on and OctoPrint is running",
			"mDNS (UDP 5353) must be allowed between this machine and the host",
			"Try increasing --timeout for slower networks",
			"Add the host directly with 'ledstatus-cfg hosts add <name> <url>'",
		}))
		return nil
	}

	printer.Println(fmt.Sprintf("Found %d host(s):", len(hosts)))
	printer.Newline()
	for i, host := range hosts {
		printer.Println(fmt.Sprintf("%d. %s", i+1, host.ShortName()))
		printer.Println(fmt.Sprintf("   URL:       %s", host.BaseURL()))
		printer.Println(fmt.Sprintf("   OctoPrint: %s", host.Version()))
		if model := host.Model(); model != "" {
			printer.Println(fmt.Sprintf("   Model:     %s", model))
		}
		printer.Newline()
	}

	if !scanSave {
		printer.Println("Use 'ledstatus-cfg hosts add <name> <url> --api-key <key>' to save a host")
		return nil
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	for _, host := range hosts {
		name := host.ShortName()
		if existing := registry.GetHost(name); existing != nil {
			registry.UpdateHostLastSeen(name)
			continue
		}
		registry.SetHost(name, host.BaseURL(), "")
		registry.UpdateHostLastSeen(name)
	}
	if err := registry.Save(); err != nil {
		return err
	}
	printer.Println("Saved. Add API keys with 'ledstatus-cfg hosts add <name> <url> --api-key <key>'")
	return nil
}

// statusCmd shows the light state and plugin settings summary
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lights, torch and plugin status",
	Long: `Show the current state of the LED strip and torch, together with the
plugin settings that affect them. Status and settings are fetched concurrently.`,
	Example: `  ledstatus-cfg status
  ledstatus-cfg status --host octopi --format json`,
	RunE: runStatus,
}

// statusReport is the JSON form of 'status'
type statusReport struct {
	Host     string                  `json:"host"`
	URL      string                  `json:"url"`
	Lights   ledstatus.LightState    `json:"state"`
	Strip    int                     `json:"strip_count"`
	Torch    ledstatus.TorchSettings `json:"torch"`
	Triggers map[string]int          `json:"triggers"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, opts, err := newClient()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	var (
		status   *hostapi.PluginStatus
		raw      json.RawMessage
		settings ledstatus.PluginSettings
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		status, err = client.Status(ctx)
		return err
	})
	g.Go(func() error {
		if err := client.PluginSettings(ctx, &raw); err != nil {
			return err
		}
		return json.Unmarshal(raw, &settings)
	})
	if err := g.Wait(); err != nil {
		return printHostError(printer, "Could not read status from "+opts.BaseURL, err)
	}

	report := statusReport{
		Host:   opts.Name,
		URL:    opts.BaseURL,
		Lights: ledstatus.LightState{LightsOn: status.LightsOn, TorchOn: status.TorchOn},
		Strip:  int(settings.Strip.Count),
		Torch:  settings.Effects.Torch,
		Triggers: map[string]int{
			string(ledstatus.CategoryAtCommand): len(settings.Custom.AtCommand),
			string(ledstatus.CategoryEvent):     len(settings.Custom.Event),
			string(ledstatus.CategoryGcode):     len(settings.Custom.Gcode),
		},
	}
	if jsonOutput() {
		return printJSON(report)
	}

	printer.PrintHeader("LED Status", "ledstatus-cfg status", map[string]string{
		"Host": opts.Name,
		"URL":  opts.BaseURL,
	})
	printer.PrintLightState(report.Lights)
	printer.Newline()

	torchMode := "disabled"
	if report.Torch.Enabled {
		torchMode = "toggle"
		if !report.Torch.Toggle {
			torchMode = fmt.Sprintf("momentary (%ds)", int(report.Torch.Timer))
		}
		if report.Torch.AutoOnWebcam {
			torchMode += ", on with webcam"
		}
	}
	printer.PrintSuccess("Plugin reachable", map[string]string{
		"Strip LEDs": strconv.Itoa(report.Strip),
		"Torch":      torchMode,
		"Triggers": fmt.Sprintf("%d @ commands, %d events, %d G-code",
			report.Triggers[string(ledstatus.CategoryAtCommand)],
			report.Triggers[string(ledstatus.CategoryEvent)],
			report.Triggers[string(ledstatus.CategoryGcode)]),
	})
	if verbose {
		printer.PrintRawOutput(string(raw))
	}
	return nil
}

// lightsCmd switches the LED strip
var lightsCmd = &cobra.Command{
	Use:       "lights <on|off|toggle>",
	Short:     "Switch the LED strip on or off",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "toggle"},
	Example: `  ledstatus-cfg lights off
  ledstatus-cfg lights toggle --host voron`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, "Lights", args[0], func(ctx context.Context, n *ledstatus.Navbar, action string) error {
			switch action {
			case "on":
				return n.SetLights(ctx, true)
			case "off":
				return n.SetLights(ctx, false)
			default:
				return n.ToggleLights(ctx)
			}
		})
	},
}

// torchCmd switches the torch
var torchCmd = &cobra.Command{
	Use:   "torch <on|off|toggle>",
	Short: "Switch the torch on or off",
	Long: `Switch the torch effect. 'toggle' presses the torch button: depending on
the plugin settings it either flips the torch or turns it on for the
configured timer.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, "Torch", args[0], func(ctx context.Context, n *ledstatus.Navbar, action string) error {
			switch action {
			case "on":
				return n.SetTorch(ctx, true)
			case "off":
				return n.SetTorch(ctx, false)
			default:
				return n.ToggleTorch(ctx)
			}
		})
	},
}

func runSwitch(cmd *cobra.Command, what, action string, fn func(context.Context, *ledstatus.Navbar, string) error) error {
	client, opts, err := newClient()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	navbar, err := newNavbar(cmd.Context(), client, opts)
	if err != nil {
		return printHostError(printer, "Could not connect to "+opts.BaseURL, err)
	}
	defer navbar.Close()

	if err := fn(cmd.Context(), navbar, action); err != nil {
		return printHostError(printer, fmt.Sprintf("%s %s failed", what, action), err)
	}

	state := navbar.State().LightState
	if jsonOutput() {
		return printJSON(state)
	}
	printer.PrintLightState(state)
	return nil
}

// testLEDCmd runs an effect once on the strip
var testLEDCmd = &cobra.Command{
	Use:   "test-led",
	Short: "Run an effect or colour on the strip once",
	Long: `Send the plugin's test_led command.

With --effect the effect runs once with the given colour and delay. With only
--color the strip shows a solid colour. --rgb sends the colour as channel
values, the form older plugin releases expect.`,
	Example: `  ledstatus-cfg test-led --color "#ff0000"
  ledstatus-cfg test-led --effect "Rainbow Cycle" --color "#00ff00" --delay 10
  ledstatus-cfg test-led --rgb 255,128,0`,
	RunE: runTestLED,
}

func init() {
	testLEDCmd.Flags().StringVar(&testColor, "color", "#ffffff", "Colour as #rrggbb")
	testLEDCmd.Flags().StringVar(&testEffect, "effect", "", "Effect name (e.g. \"Solid Color\", \"Rainbow\")")
	testLEDCmd.Flags().IntVar(&testDelay, "delay", 10, "Effect delay in milliseconds")
	testLEDCmd.Flags().StringVar(&testRGB, "rgb", "", "Colour as red,green,blue (0-255 each)")
}

func runTestLED(cmd *cobra.Command, args []string) error {
	client, opts, err := newClient()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	panel := ledstatus.NewSettingsPanel(client, client)
	ctx := cmd.Context()

	var sent string
	switch {
	case testRGB != "":
		r, g, b, err := parseRGB(testRGB)
		if err != nil {
			return err
		}
		err = panel.TestRGB(ctx, r, g, b)
		if err != nil {
			return printHostError(printer, "test_led failed on "+opts.BaseURL, err)
		}
		sent = fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)

	case testEffect != "":
		if err := panel.TestLED(ctx, testEffect, testColor, testDelay); err != nil {
			return printHostError(printer, "test_led failed on "+opts.BaseURL, err)
		}
		sent = fmt.Sprintf("%s %s, %dms", testEffect, testColor, testDelay)

	default:
		if err := panel.TestColor(ctx, testColor); err != nil {
			return printHostError(printer, "test_led failed on "+opts.BaseURL, err)
		}
		sent = testColor
	}

	printer.PrintSuccess("Test sent", map[string]string{"Host": opts.Name, "Test": sent})
	return nil
}

// parseRGB parses "r,g,b"
func parseRGB(s string) (int, int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid --rgb %q: want red,green,blue", s)
	}
	var rgb [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid --rgb %q: %w", s, err)
		}
		rgb[i] = v
	}
	return rgb[0], rgb[1], rgb[2], nil
}

// powerCmd estimates the supply needed for a strip
var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Estimate the power supply a strip needs",
	Long: `Estimate current and supply wattage for a strip at full white.

Without --pixels the LED count is read from the selected host's settings.`,
	Example: `  ledstatus-cfg power --pixels 60
  ledstatus-cfg power --ma 50 --host octopi`,
	RunE: runPower,
}

func init() {
	powerCmd.Flags().Float64Var(&powerMA, "ma", 60, "Current per LED at full white, in mA")
	powerCmd.Flags().IntVar(&powerPixels, "pixels", 0, "Number of LEDs (default: strip count from the host)")
}

func runPower(cmd *cobra.Command, args []string) error {
	pixels := powerPixels
	if pixels <= 0 {
		client, _, err := newClient()
		if err != nil {
			return fmt.Errorf("--pixels not given and no host to read it from: %w", err)
		}
		var settings ledstatus.PluginSettings
		if err := client.PluginSettings(cmd.Context(), &settings); err != nil {
			return fmt.Errorf("read strip count: %w", err)
		}
		pixels = int(settings.Strip.Count)
	}

	estimate := ledstatus.Power(powerMA, pixels)
	if jsonOutput() {
		return printJSON(estimate)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintSuccess("Power estimate", map[string]string{
		"LEDs":       strconv.Itoa(pixels),
		"Per LED":    fmt.Sprintf("%.0f mA", powerMA),
		"Current":    fmt.Sprintf("%.2f A", estimate.Current),
		"5V supply":  fmt.Sprintf("%.1f W", estimate.Power5V),
		"12V supply": fmt.Sprintf("%.1f W", estimate.Power12V),
	})
	return nil
}
