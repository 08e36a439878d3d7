// Package tui implements the interactive terminal interface of ledstatus-cfg.
//
// It is a Bubble Tea program with a small coordinator (AppModel) switching
// between three screens:
//   - Discovery: saved hosts plus OctoPrint instances found over mDNS, with
//     manual URL and API key entry
//   - Connecting: opens a session.Session and remembers the host in the registry
//   - Dashboard: the connected view, split into Control, Setup, Diagnostics
//     and Triggers tabs
//
// All screens use RenderApplicationContainer for the common frame of header,
// content and context-sensitive help footer.
//
// # Live Updates
//
// The dashboard subscribes to the navbar, wizard, diagnostics and settings
// components of the session. Their listeners only signal a buffered channel;
// a tea.Cmd waiting on that channel turns the signal into a redraw. Push
// messages from the host therefore show up without polling, while commands
// issued from the dashboard run as tea.Cmds and report back with
// actionDoneMsg.
//
// # Usage Example
//
//	registry, _ := config.LoadRegistry()
//	app := tui.NewAppModel(registry, nil)
//	program := tea.NewProgram(app, tea.WithAltScreen())
//
//	if _, err := program.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Passing a Target to NewAppModel skips discovery and connects straight away.
package tui
