// Package ledstatus holds the client-side state of the WS281x LED Status
// plugin: the setup wizard, the OS configuration diagnostics, the toolbar
// light/torch status and the custom trigger editor.
//
// Each component owns its state behind a mutex and exposes a snapshot
// accessor. Renderers subscribe with Subscribe and re-read the snapshot
// when notified; components never render anything themselves.
//
// Components talk to the host through the small Commander, StatusSource
// and SettingsStore interfaces, which *hostapi.Client implements. Push
// messages are fed in through each component's HandlePush, usually from a
// push.Client subscription:
//
//	client := hostapi.NewClient("http://octopi.local", apiKey)
//	navbar := ledstatus.NewNavbar(client, client, client.PluginID, opts)
//	pushClient.Subscribe(navbar.HandlePush)
package ledstatus
