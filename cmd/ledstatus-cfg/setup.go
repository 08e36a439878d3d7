package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/ledstatus/internal/ledstatus"
	"github.com/muurk/ledstatus/internal/logging"
	"github.com/muurk/ledstatus/internal/session"
	"github.com/muurk/ledstatus/internal/ui"
	"github.com/muurk/ledstatus/internal/urls"
)

const (
	// pushConnectTimeout bounds the wait for the push channel before a test run
	pushConnectTimeout = 10 * time.Second

	// configTestTimeout bounds a full OS configuration test run
	configTestTimeout = 2 * time.Minute
)

// Command flags
var (
	setupYes bool
	setupAll bool

	diagnoseFix bool
	diagnoseYes bool
)

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(diagnoseCmd)
}

// setupCmd runs the Raspberry Pi setup steps of the plugin wizard
var setupCmd = &cobra.Command{
	Use:   "setup [step]",
	Short: "Run the Raspberry Pi setup steps",
	Long: `Run the OS setup steps of the plugin's first-run wizard on the host.

The steps add the OctoPrint user to the gpio group, enable SPI, increase
the SPI buffer and pin the GPU core frequency. Each step needs the host's
sudo password, which is prompted for once and never stored.

Without arguments every step the host does not report as done is run.
Steps: adduser, enable_spi, spi_buffer_increase, set_core_freq, set_core_freq_min`,
	Example: `  # Run the remaining steps
  ledstatus-cfg setup

  # Run one step, even if the host reports it done
  ledstatus-cfg setup enable_spi --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupYes, "yes", "y", false, "Skip the confirmation prompt")
	setupCmd.Flags().BoolVar(&setupAll, "all", false, "Run every step, including those already done")
}

func runSetup(cmd *cobra.Command, args []string) error {
	steps := ledstatus.AllSteps
	if len(args) == 1 {
		step, err := ledstatus.ParseStep(args[0])
		if err != nil {
			return err
		}
		steps = []ledstatus.Step{step}
	}

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)

	sess, err := openSession(cmd.Context())
	if err != nil {
		return printHostError(printer, "Could not connect", err)
	}
	defer sess.Close()

	state := sess.Wizard.State()
	var pending []ledstatus.Step
	for _, step := range steps {
		if len(args) == 1 || setupAll || !state.Done[step] {
			pending = append(pending, step)
		}
	}
	if len(pending) == 0 {
		printer.PrintSuccess("Setup already complete", map[string]string{
			"Host": sess.Options.Name,
			"Next": "Run 'ledstatus-cfg diagnose' to verify the configuration",
		})
		return nil
	}

	if !setupYes && !ui.ConfigChangeConfirmation(cmd.InOrStdin(), out) {
		return nil
	}

	password, err := ui.PromptPassword(out, sess.Options.Name)
	if err != nil {
		return err
	}

	names := make([]string, len(pending))
	for i, step := range pending {
		names[i] = step.Label()
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:      "Raspberry Pi Setup",
		Command:    "ledstatus-cfg setup",
		Params:     map[string]string{"Host": sess.Options.Name, "URL": sess.Options.BaseURL},
		TotalSteps: len(pending),
		StepNames:  names,
		Verbose:    verbose,
		Output:     out,
	})

	return runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
		details, err := runSteps(ctx, sess.Wizard, pending, password, onStep)
		if verbose {
			if raw, rerr := sess.API.WizardDetails(ctx); rerr == nil {
				runner.SetRawOutput(string(raw))
			}
		}
		return details, err
	})
}

// runSteps runs the given wizard steps in order, stopping at the first failure
func runSteps(ctx context.Context, wizard *ledstatus.ConfigWizard, steps []ledstatus.Step, password string, onStep ui.StepCallback) (map[string]string, error) {
	for i, step := range steps {
		n := i + 1
		onStep(n, step.Label(), ui.StepRunning, "")

		if err := wizard.RunStep(ctx, step, password); err != nil {
			onStep(n, step.Label(), ui.StepFailed, err.Error())
			if errors.Is(err, ledstatus.ErrPasswordRequired) {
				return nil, fmt.Errorf("%s: the host rejected the sudo password", step)
			}
			return nil, fmt.Errorf("%s: %w", step, err)
		}

		if !wizard.State().Done[step] {
			onStep(n, step.Label(), ui.StepFailed, "not reported as done")
			return nil, fmt.Errorf("%s: host did not report the step as done", step)
		}
		onStep(n, step.Label(), ui.StepComplete, "")
	}

	details := map[string]string{
		"Steps":  strconv.Itoa(len(steps)),
		"Result": wizard.Finish().Message(),
	}
	if wizard.State().Complete() {
		details["Next"] = "Reboot the host, then run 'ledstatus-cfg diagnose'"
	}
	return details, nil
}

// diagnoseCmd runs the plugin's OS configuration test
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the OS configuration test",
	Long: `Ask the host to test its OS configuration for the LED strip and show the
results as they arrive over the push channel.

With --fix the remediation for every failed test is run afterwards, using
the host's sudo password.`,
	Example: `  ledstatus-cfg diagnose
  ledstatus-cfg diagnose --fix --host voron`,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseFix, "fix", false, "Run the fix for each failed test")
	diagnoseCmd.Flags().BoolVarP(&diagnoseYes, "yes", "y", false, "Skip the confirmation prompt before fixing")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)

	sess, err := openSession(cmd.Context())
	if err != nil {
		return printHostError(printer, "Could not connect", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		if err := sess.RunPush(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("Push channel stopped", zap.Error(err))
		}
	}()

	if err := waitForPush(ctx, sess); err != nil {
		return printHostError(printer, "Push channel unavailable", err)
	}

	report, err := runConfigTest(ctx, sess)
	if err != nil {
		return printHostError(printer, "OS configuration test failed", err)
	}

	printer.PrintHeader("OS Configuration Test", "ledstatus-cfg diagnose", map[string]string{
		"Host": sess.Options.Name,
	})
	printer.PrintReport(report)

	if len(report.Failures) > 0 && diagnoseFix {
		if err := runFixes(cmd, sess, report); err != nil {
			return err
		}
	} else if len(report.Failures) > 0 {
		printer.Println("Run 'ledstatus-cfg diagnose --fix' to apply the suggested fixes")
		printer.Println("Troubleshooting: " + urls.Troubleshooting)
	}

	printer.Newline()
	printer.Println(sess.FinishWizard().Message())
	return nil
}

// waitForPush polls until the push channel is connected
func waitForPush(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, pushConnectTimeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		status := sess.Push.Status()
		if status.Connected {
			return nil
		}
		select {
		case <-ctx.Done():
			if status.LastError != "" {
				return errors.New(status.LastError)
			}
			return fmt.Errorf("push channel did not connect within %v", pushConnectTimeout)
		case <-ticker.C:
		}
	}
}

// runConfigTest starts a test run and renders its progress until the host
// reports the run complete.
func runConfigTest(ctx context.Context, sess *session.Session) (ledstatus.DiagnosticsReport, error) {
	ctx, cancel := context.WithTimeout(ctx, configTestTimeout)
	defer cancel()

	p := tea.NewProgram(ui.NewReportModel(), tea.WithContext(ctx), tea.WithOutput(os.Stdout))

	queue := ui.NewReportQueue()
	unsubscribe := sess.Diagnostics.Subscribe(func() {
		queue.Push(sess.Diagnostics.Report())
	})
	defer unsubscribe()
	go queue.Forward(ctx, p.Send)

	go func() {
		if err := sess.Diagnostics.RunConfigTest(ctx); err != nil {
			p.Send(ui.ErrMsg{Err: err})
		}
	}()

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return sess.Diagnostics.Report(), fmt.Errorf("test did not finish within %v", configTestTimeout)
		}
		return ledstatus.DiagnosticsReport{}, err
	}

	m := final.(ui.ReportModel)
	if m.Err() != nil {
		return m.Report(), m.Err()
	}
	if m.Cancelled() {
		return m.Report(), errors.New("cancelled")
	}
	return sess.Diagnostics.Report(), nil
}

// runFixes asks for the sudo password and runs the fix of every failed test
func runFixes(cmd *cobra.Command, sess *session.Session, report ledstatus.DiagnosticsReport) error {
	out := cmd.OutOrStdout()
	if !diagnoseYes && !ui.ConfigChangeConfirmation(cmd.InOrStdin(), out) {
		return nil
	}

	password, err := ui.PromptPassword(out, sess.Options.Name)
	if err != nil {
		return err
	}

	names := make([]string, len(report.Failures))
	for i, f := range report.Failures {
		names[i] = f.Name
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:      "Apply Fixes",
		Command:    "ledstatus-cfg diagnose --fix",
		Params:     map[string]string{"Host": sess.Options.Name},
		TotalSteps: len(names),
		StepNames:  names,
		Output:     out,
	})

	return runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
		fixed := 0
		for i, name := range names {
			n := i + 1
			onStep(n, name, ui.StepRunning, "")
			if err := sess.Diagnostics.RunFix(ctx, i, password); err != nil {
				onStep(n, name, ui.StepFailed, err.Error())
				return nil, fmt.Errorf("fix %q: %w", name, err)
			}
			if failures := sess.Diagnostics.Report().Failures; i < len(failures) && failures[i].Fixed {
				fixed++
				onStep(n, name, ui.StepComplete, "")
			} else {
				onStep(n, name, ui.StepSkipped, "host did not confirm")
			}
		}
		return map[string]string{
			"Fixed": fmt.Sprintf("%d of %d", fixed, len(names)),
			"Next":  "Reboot the host and run 'ledstatus-cfg diagnose' again",
		}, nil
	})
}
