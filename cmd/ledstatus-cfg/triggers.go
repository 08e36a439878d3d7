package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/ledstatus"
	"github.com/muurk/ledstatus/internal/ui"
)

// Command flags
var (
	triggerEffect    string
	triggerColor     string
	triggerDelay     int
	triggerMatchType string
)

func init() {
	rootCmd.AddCommand(triggersCmd)
	triggersCmd.AddCommand(triggersListCmd)
	triggersCmd.AddCommand(triggersAddCmd)
	triggersCmd.AddCommand(triggersDeleteCmd)
}

// triggersCmd is the parent for the custom trigger rule commands
var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "List and edit custom trigger rules",
	Long: `Custom trigger rules run an effect when the host sees a matching
@ command, OctoPrint event or G-code line.

Categories: atcommand, event, gcode`,
}

var triggersListCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "List trigger rules",
	Example: `  ledstatus-cfg triggers list
  ledstatus-cfg triggers list gcode --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTriggersList,
}

var triggersAddCmd = &cobra.Command{
	Use:   "add <category> <match>",
	Short: "Add a trigger rule",
	Long: `Add a trigger rule and save the plugin settings.

For G-code rules --match-type selects how <match> is compared with the
command line: gcode (command only), exact (whole line) or regex.`,
	Example: `  # Flash red on filament change
  ledstatus-cfg triggers add gcode M600 --effect Blink --color "#ff0000" --delay 500

  # Rainbow when a print finishes
  ledstatus-cfg triggers add event PrintDone --effect Rainbow`,
	Args: cobra.ExactArgs(2),
	RunE: runTriggersAdd,
}

var triggersDeleteCmd = &cobra.Command{
	Use:   "delete <category> <index>",
	Short: "Delete a trigger rule",
	Long: `Delete the rule at <index> (as shown by 'triggers list', starting at 1)
and save the plugin settings.`,
	Example: `  ledstatus-cfg triggers delete gcode 2`,
	Args:    cobra.ExactArgs(2),
	RunE:    runTriggersDelete,
}

func init() {
	triggersAddCmd.Flags().StringVar(&triggerEffect, "effect", "", "Effect name (default: the category's template)")
	triggersAddCmd.Flags().StringVar(&triggerColor, "color", "", "Colour as #rrggbb (default: the category's template)")
	triggersAddCmd.Flags().IntVar(&triggerDelay, "delay", -1, "Effect delay in milliseconds (default: the category's template)")
	triggersAddCmd.Flags().StringVar(&triggerMatchType, "match-type", "", "G-code match type (gcode, exact, regex)")
}

// loadPanel fetches the plugin settings into a settings panel
func loadPanel(cmd *cobra.Command) (*ledstatus.SettingsPanel, *ui.Printer, error) {
	client, opts, err := newClient()
	if err != nil {
		return nil, nil, err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	panel := ledstatus.NewSettingsPanel(client, client)
	if err := panel.Load(cmd.Context()); err != nil {
		return nil, nil, printHostError(printer, "Could not read settings from "+opts.BaseURL, err)
	}
	return panel, printer, nil
}

func runTriggersList(cmd *cobra.Command, args []string) error {
	categories := ledstatus.AllCategories
	if len(args) == 1 {
		c, err := ledstatus.ParseCategory(args[0])
		if err != nil {
			return err
		}
		categories = []ledstatus.Category{c}
	}

	panel, printer, err := loadPanel(cmd)
	if err != nil {
		return err
	}

	if jsonOutput() {
		out := make(map[ledstatus.Category][]ledstatus.TriggerRule, len(categories))
		for _, c := range categories {
			out[c] = panel.Rules(c)
		}
		return printJSON(out)
	}

	for _, c := range categories {
		rules := panel.Rules(c)
		printer.Println(fmt.Sprintf("%s (%s)", c.Label(), c))
		if len(rules) == 0 {
			printer.Println("  (none)")
		}
		for i, r := range rules {
			printer.Println(fmt.Sprintf("  %d. %s", i+1, describeRule(c, r)))
		}
		printer.Newline()
	}
	return nil
}

// describeRule renders a rule as a single line
func describeRule(category ledstatus.Category, r ledstatus.TriggerRule) string {
	match := r.Match
	if category == ledstatus.CategoryGcode && r.MatchType != "" {
		match = fmt.Sprintf("%s [%s]", r.Match, r.MatchType)
	}
	return fmt.Sprintf("%-24s %s %s %dms", match, r.Effect, r.Color, int(r.Delay))
}

func runTriggersAdd(cmd *cobra.Command, args []string) error {
	category, err := ledstatus.ParseCategory(args[0])
	if err != nil {
		return err
	}

	var matchType ledstatus.MatchType
	if triggerMatchType != "" {
		if category != ledstatus.CategoryGcode {
			return fmt.Errorf("--match-type only applies to gcode rules")
		}
		switch mt := ledstatus.MatchType(triggerMatchType); mt {
		case ledstatus.MatchGcode, ledstatus.MatchExact, ledstatus.MatchRegex:
			matchType = mt
		default:
			return fmt.Errorf("invalid --match-type %q (want gcode, exact or regex)", triggerMatchType)
		}
	}

	panel, printer, err := loadPanel(cmd)
	if err != nil {
		return err
	}

	if _, err := panel.New(category); err != nil {
		return err
	}
	err = panel.Edit(func(r *ledstatus.TriggerRule) {
		r.Match = args[1]
		if matchType != "" {
			r.MatchType = matchType
		}
		if triggerEffect != "" {
			r.Effect = triggerEffect
		}
		if triggerColor != "" {
			r.Color = triggerColor
		}
		if triggerDelay >= 0 {
			r.Delay = ledstatus.Number(triggerDelay)
		}
	})
	if err != nil {
		return err
	}
	rule, _, _ := panel.Draft()
	if err := panel.Commit(); err != nil {
		return err
	}

	if err := panel.Save(cmd.Context()); err != nil {
		return printHostError(printer, "Could not save settings", err)
	}

	printer.PrintSuccess("Trigger added", map[string]string{
		"Category": category.Label(),
		"Rule":     describeRule(category, rule),
		"Index":    strconv.Itoa(len(panel.Rules(category))),
	})
	return nil
}

func runTriggersDelete(cmd *cobra.Command, args []string) error {
	category, err := ledstatus.ParseCategory(args[0])
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(args[1])
	if err != nil || index < 1 {
		return fmt.Errorf("invalid index %q: want a rule number from 'triggers list'", args[1])
	}

	panel, printer, err := loadPanel(cmd)
	if err != nil {
		return err
	}

	rules := panel.Rules(category)
	if err := panel.Delete(category, index-1); err != nil {
		return fmt.Errorf("%s has %d rule(s): %w", category, len(rules), err)
	}
	if err := panel.Save(cmd.Context()); err != nil {
		return printHostError(printer, "Could not save settings", err)
	}

	printer.PrintSuccess("Trigger deleted", map[string]string{
		"Category": category.Label(),
		"Rule":     describeRule(category, rules[index-1]),
	})
	return nil
}

// hostapi.Client backs the settings panel directly
var (
	_ ledstatus.Commander     = (*hostapi.Client)(nil)
	_ ledstatus.SettingsStore = (*hostapi.Client)(nil)
)
