// Package config provides user configuration management for the LED status tools.
//
// This package manages a YAML configuration file that stores the OctoPrint
// hosts the tools talk to (URL, application key, plugin id) and application
// preferences. The configuration follows OS-specific conventions for storage
// location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/ledstatus/config.yaml or $HOME/.config/ledstatus/config.yaml
//   - macOS: $HOME/.config/ledstatus/config.yaml
//   - Windows: %LOCALAPPDATA%\ledstatus\config.yaml
//
// LEDSTATUS_CONFIG overrides the location entirely.
//
// # Security
//
// The file is written with 0600 permissions because it holds OctoPrint
// application keys. The sudo password needed by the setup steps is never
// stored; it is always prompted when needed.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetHost("octopi", "http://octopi.local", apiKey)
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// LoadRegistry returns a process-wide instance. Save serializes file
// writes, but callers must coordinate in-memory modifications themselves.
package config
