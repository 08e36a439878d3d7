package ledstatus

import (
	"context"
	"sort"
	"sync"

	"github.com/muurk/ledstatus/internal/hostapi"
)

// Commander sends simple-API commands to the plugin.
// *hostapi.Client satisfies it.
type Commander interface {
	Command(ctx context.Context, command string, payload map[string]any) ([]byte, error)
}

// StatusSource reads the plugin's light status
type StatusSource interface {
	Status(ctx context.Context) (*hostapi.PluginStatus, error)
}

// SettingsStore reads and writes the plugin's settings section
type SettingsStore interface {
	PluginSettings(ctx context.Context, v any) error
	SavePluginSettings(ctx context.Context, v any) error
}

// Listener is called after a component's state changed.
// Listeners run outside the component's lock and may read its snapshot.
type Listener func()

// notifier fans state changes out to subscribed listeners
type notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// Subscribe registers l and returns a function that removes it
func (n *notifier) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = l

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, n.listeners[id])
	}
	n.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}
