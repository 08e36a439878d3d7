// Package logging provides structured logging for the ledstatus tools.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used throughout the client: outgoing plugin commands,
// push channel lifecycle and received push messages.
//
// # Silent By Default
//
// CLI and TUI output must not be interleaved with log lines, so the logger
// is a no-op unless a level is configured, either with --log-level or the
// LEDSTATUS_LOG_LEVEL environment variable. Logs go to stderr.
//
// # Structured Logging
//
//	logging.Info("Lights switched",
//	    zap.String("host", "octopi.local"),
//	    zap.Bool("on", true),
//	)
//
// # Specialized Logging
//
//	logging.LogCommand(requestID, "ws281x_led_status", "lights_on")
//	logging.LogPushMessage("ws281x_led_status", "torch", payload)
//	logging.LogConnection(url, "connected")
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has run.
package logging
