package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/ledstatus/internal/hostapi"
)

type fakeSessions struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSessions) Login(ctx context.Context) (*hostapi.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &hostapi.Session{Name: "pi", Session: "abc123"}, nil
}

func (f *fakeSessions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// newPushServer serves the socket endpoint. It records the auth message
// and then writes frames in order.
func newPushServer(t *testing.T, frames []string, auth chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc(SocketPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(hostapi.APIKeyHeader) != "test-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg map[string]string
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case auth <- msg["auth"]:
		default:
		}

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		// Hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://octopi.local", "ws://octopi.local/sockjs/websocket", false},
		{"https://octopi.local/", "wss://octopi.local/sockjs/websocket", false},
		{"http://10.0.0.5:5000/octoprint", "ws://10.0.0.5:5000/octoprint/sockjs/websocket", false},
		{"ftp://octopi.local", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := SocketURL(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SocketURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SocketURL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantOK  bool
		want    Message
		wantErr bool
	}{
		{
			name:   "plugin message",
			data:   `{"plugin":{"plugin":"ws281x_led_status","data":{"type":"lights","payload":{"on":true}}}}`,
			wantOK: true,
			want:   Message{Plugin: "ws281x_led_status", Type: "lights", Payload: json.RawMessage(`{"on":true}`)},
		},
		{
			name: "current channel",
			data: `{"current":{"state":{"text":"Operational"}}}`,
		},
		{
			name: "connected channel",
			data: `{"connected":{"version":"1.9.0"}}`,
		},
		{
			name:    "garbage",
			data:    `o`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := DecodeFrame([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("DecodeFrame() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Plugin != tt.want.Plugin || got.Type != tt.want.Type || string(got.Payload) != string(tt.want.Payload) {
				t.Errorf("DecodeFrame() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClientDispatchesInOrder(t *testing.T) {
	frames := []string{
		`{"connected":{"version":"1.9.0"}}`,
		`{"plugin":{"plugin":"ws281x_led_status","data":{"type":"lights","payload":{"on":true}}}}`,
		`{"current":{"state":{"text":"Operational"}}}`,
		`{"plugin":{"plugin":"other","data":{"type":"hello","payload":null}}}`,
		`{"plugin":{"plugin":"ws281x_led_status","data":{"type":"torch","payload":{"on":true}}}}`,
		`{"plugin":{"plugin":"ws281x_led_status","data":{"type":"lights","payload":{"on":false}}}}`,
	}
	auth := make(chan string, 1)
	server := newPushServer(t, frames, auth)

	sessions := &fakeSessions{}
	client, err := NewClient(server.URL, "test-key", sessions)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	received := make(chan Message, 10)
	client.Subscribe(func(m Message) { received <- m })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	select {
	case token := <-auth:
		if token != "pi:abc123" {
			t.Errorf("auth token = %q, want pi:abc123", token)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no auth message received")
	}

	want := []string{"ws281x_led_status/lights", "other/hello", "ws281x_led_status/torch", "ws281x_led_status/lights"}
	for i, w := range want {
		select {
		case m := <-received:
			if got := m.Plugin + "/" + m.Type; got != w {
				t.Errorf("message %d = %s, want %s", i, got, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}

	if !client.Status().Connected {
		t.Error("Status().Connected = false while reading")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if client.Status().Connected {
		t.Error("Status().Connected = true after Run returned")
	}
}

func TestClientReconnectsAfterReauth(t *testing.T) {
	frames := []string{`{"reauthRequired":{"reason":"stale"}}`}
	auth := make(chan string, 4)
	server := newPushServer(t, frames, auth)

	sessions := &fakeSessions{}
	client, _ := NewClient(server.URL, "test-key", sessions)
	client.ReconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for sessions.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sessions.callCount() < 2 {
		t.Errorf("login calls = %d, want a fresh login after reauthRequired", sessions.callCount())
	}
}

func TestClientLoginFailureRetries(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("forbidden")}
	client, _ := NewClient("http://127.0.0.1:1", "test-key", sessions)
	client.ReconnectDelay = 5 * time.Millisecond
	client.MaxReconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := client.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if sessions.callCount() < 2 {
		t.Errorf("login calls = %d, want retries", sessions.callCount())
	}

	status := client.Status()
	if status.Connected || !strings.Contains(status.LastError, "forbidden") {
		t.Errorf("Status() = %+v, want disconnected with login error", status)
	}
}

func TestClientBacksOffAfterDroppedConnection(t *testing.T) {
	frames := []string{`{"reauthRequired":{"reason":"stale"}}`}
	auth := make(chan string, 1)
	server := newPushServer(t, frames, auth)

	sessions := &fakeSessions{}
	client, _ := NewClient(server.URL, "test-key", sessions)
	client.ReconnectDelay = 100 * time.Millisecond
	client.MaxReconnectDelay = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()

	if err := client.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}

	// One login up front, then at most one per reconnect delay
	if got := sessions.callCount(); got < 2 || got > 5 {
		t.Errorf("login calls = %d, want between 2 and 5 with a 100ms delay", got)
	}
}
