// Package ui provides terminal UI components for the ledstatus-cfg CLI.
//
// This package uses Bubble Tea and Lipgloss to render polished terminal output
// for one-shot commands. Unlike the interactive dashboard, these components
// render a result and exit.
//
//   - Header: command banner showing the operation and host
//   - Progress: progress bar with step list, also used for OS config tests
//   - Result: success/failure/warning boxes
//   - RawOutput: raw host response box for verbose mode
//   - Runner: header → progress → result flow for setup steps
//   - ReportModel: live Bubble Tea view of a diagnostics run
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:      "Configuration Wizard",
//	    Command:    "ledstatus-cfg setup",
//	    Params:     map[string]string{"Host": "http://octopi.local"},
//	    TotalSteps: len(steps),
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) (map[string]string, error) {
//	    onStep(1, "Enable SPI", ui.StepRunning, "")
//	    // ... run the step ...
//	    onStep(1, "Enable SPI", ui.StepComplete, "")
//	    return nil, nil
//	})
//
// Logging is controlled via LEDSTATUS_LOG_LEVEL. When unset, zap logging is
// silent so the styled output stays clean.
package ui
