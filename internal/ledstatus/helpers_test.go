package ledstatus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/muurk/ledstatus/internal/hostapi"
	"github.com/muurk/ledstatus/internal/push"
)

const testPluginID = "ws281x_led_status"

type sentCommand struct {
	Name    string
	Payload map[string]any
}

// fakeCommander records commands and answers them from a canned table
type fakeCommander struct {
	mu        sync.Mutex
	sent      []sentCommand
	responses map[string]string
	err       error

	// block, when set, is waited on before answering
	block chan struct{}
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{responses: make(map[string]string)}
}

func (f *fakeCommander) Command(ctx context.Context, command string, payload map[string]any) ([]byte, error) {
	f.mu.Lock()
	f.sent = append(f.sent, sentCommand{Name: command, Payload: payload})
	resp := f.responses[command]
	err := f.err
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if resp == "" {
		return nil, nil
	}
	return []byte(resp), nil
}

func (f *fakeCommander) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, len(f.sent))
	for i, c := range f.sent {
		names[i] = c.Name
	}
	return names
}

func (f *fakeCommander) last() sentCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// fakeStatus serves a fixed status
type fakeStatus struct {
	mu     sync.Mutex
	status hostapi.PluginStatus
	calls  int
	err    error
}

func (f *fakeStatus) Status(ctx context.Context) (*hostapi.PluginStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := f.status
	return &s, nil
}

func (f *fakeStatus) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStore keeps plugin settings as JSON
type fakeStore struct {
	settings string
	saved    []byte
	err      error
}

func (f *fakeStore) PluginSettings(ctx context.Context, v any) error {
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.settings), v)
}

func (f *fakeStore) SavePluginSettings(ctx context.Context, v any) error {
	if f.err != nil {
		return f.err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.saved = data
	return nil
}

func pushMsg(plugin, msgType, payload string) push.Message {
	return push.Message{Plugin: plugin, Type: msgType, Payload: json.RawMessage(payload)}
}
