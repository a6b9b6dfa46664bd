// Package room tracks the visitor's ambient location inside the tour.
//
// The host page pushes room updates at arbitrary times. The tracker holds
// the latest value; the session controller attaches a snapshot of it to
// the next appended message. Historical messages are never touched.
package room

import (
	"sync"

	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
)

// Tracker holds the visitor's current room as an observable value.
// Safe for concurrent use: the host page signal and the session
// controller run on different goroutines.
type Tracker struct {
	mu      sync.RWMutex
	current *types.RoomContext
}

// NewTracker creates an empty tracker (no known room yet).
func NewTracker() *Tracker {
	return &Tracker{}
}

// Set records a new ambient room. The stored value is a private copy so
// later mutation by the caller cannot leak into attached snapshots.
func (t *Tracker) Set(rc types.RoomContext) {
	snapshot := rc.Clone()
	t.mu.Lock()
	t.current = snapshot
	t.mu.Unlock()
}

// Clear forgets the current room.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
}

// Current returns a copy of the current room, or nil when no room signal
// has arrived yet. Each call returns an independent copy.
func (t *Tracker) Current() *types.RoomContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current.Clone()
}
