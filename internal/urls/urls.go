package urls

// Documentation URLs for guides and troubleshooting.
// The plugin documentation lives at https://cp2004.gitbook.io/ws281x-led-status/

// Documentation is the plugin documentation home page
const Documentation = "https://cp2004.gitbook.io/ws281x-led-status/"

// Installation covers installing the plugin and its OS prerequisites
const Installation = "https://cp2004.gitbook.io/ws281x-led-status/guides/setup-guide-1"

// Troubleshooting lists fixes for the OS configuration tests
const Troubleshooting = "https://cp2004.gitbook.io/ws281x-led-status/guides/troubleshooting"

// AtCommands documents the @WS commands that can be sent from G-code
const AtCommands = "https://cp2004.gitbook.io/ws281x-led-status/documentation/host-commands"

// APIKeys explains how to create an OctoPrint application key
const APIKeys = "https://docs.octoprint.org/en/master/bundledplugins/appkeys.html"

// Issues is the plugin issue tracker
const Issues = "https://github.com/cp2004/OctoPrint-WS281x_LED_Status/issues"
