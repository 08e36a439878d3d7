package push

import (
	"encoding/json"
	"fmt"
)

// Message is one plugin message received on the push channel
type Message struct {
	// Plugin is the identifier of the plugin that sent the message
	Plugin string

	// Type is the message type (e.g., "lights", "torch", "os_config_test")
	Type string

	// Payload is the raw message payload
	Payload json.RawMessage
}

// Handler receives plugin messages in arrival order
type Handler func(Message)

// frame is the envelope of a push channel message. The host multiplexes
// several channels (connected, current, history, event, plugin) over one
// socket; only "plugin" and "reauthRequired" are of interest here.
type frame struct {
	Plugin *struct {
		Plugin string `json:"plugin"`
		Data   struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		} `json:"data"`
	} `json:"plugin"`

	ReauthRequired json.RawMessage `json:"reauthRequired"`
}

func decodeFrame(data []byte) (frame, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("failed to decode push frame: %w", err)
	}
	return f, nil
}

// DecodeFrame extracts the plugin message carried by a push frame.
// ok is false for frames of other channels.
func DecodeFrame(data []byte) (msg Message, ok bool, err error) {
	f, err := decodeFrame(data)
	if err != nil {
		return Message{}, false, err
	}
	return f.message()
}

func (f frame) message() (Message, bool, error) {
	if f.Plugin == nil || f.Plugin.Plugin == "" {
		return Message{}, false, nil
	}

	return Message{
		Plugin:  f.Plugin.Plugin,
		Type:    f.Plugin.Data.Type,
		Payload: f.Plugin.Data.Payload,
	}, true, nil
}
