package hostapi

// Simple API command names understood by the LED status plugin
const (
	CmdLightsOn        = "lights_on"
	CmdLightsOff       = "lights_off"
	CmdTorchOn         = "torch_on"
	CmdTorchOff        = "torch_off"
	CmdToggleTorch     = "toggle_torch"
	CmdTestOSConfig    = "test_os_config"
	CmdTestLED         = "test_led"

	CmdWizAddUser        = "wiz_adduser"
	CmdWizEnableSPI      = "wiz_enable_spi"
	CmdWizIncreaseBuffer = "wiz_increase_buffer"
	CmdWizSetCoreFreq    = "wiz_set_core_freq"
	CmdWizSetCoreFreqMin = "wiz_set_core_freq_min"

	// Names used by plugin releases before the wiz_ prefix was introduced
	CmdLegacyAddUser        = "adduser"
	CmdLegacyEnableSPI      = "enable_spi"
	CmdLegacyIncreaseBuffer = "spi_buffer_increase"
	CmdLegacySetCoreFreq    = "set_core_freq"
	CmdLegacySetCoreFreqMin = "set_core_freq_min"
)

// PluginStatus is the body of GET /api/plugin/<id> and of most command responses
type PluginStatus struct {
	LightsOn bool `json:"lights_on"`
	TorchOn  bool `json:"torch_on"`
}

// Session is the subset of the /api/login response needed for push authentication
type Session struct {
	Name    string `json:"name"`
	Session string `json:"session"`
}

// AuthToken returns the "<name>:<session>" token sent on the push channel
func (s *Session) AuthToken() string {
	return s.Name + ":" + s.Session
}
