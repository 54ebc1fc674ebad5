package state

import (
	"sync"
	"sync/atomic"

	"seawatch-worker-go/internal/models"
)

const defaultBuffer = 4

// Holder keeps the latest annotation state and fans it out to subscribers.
// Published states are treated as immutable; readers must not modify them.
type Holder struct {
	mu      sync.RWMutex
	latest  models.AnnotationState
	subs    map[uint64]chan models.AnnotationState
	nextID  uint64
	buffer  int
	dropped atomic.Uint64
	version atomic.Uint64
}

// NewHolder returns a holder whose subscriber channels buffer up to buffer
// states. Subscribers that fall behind miss updates rather than block Publish.
func NewHolder(buffer int) *Holder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Holder{
		latest: models.PendingState(),
		subs:   make(map[uint64]chan models.AnnotationState),
		buffer: buffer,
	}
}

// Publish replaces the latest state and notifies subscribers without blocking.
func (h *Holder) Publish(st models.AnnotationState) {
	if st.Detections == nil {
		st.Detections = []models.Detection{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = st
	h.version.Add(1)
	for _, ch := range h.subs {
		select {
		case ch <- st:
		default:
			h.dropped.Add(1)
		}
	}
}

// Latest returns the most recently published state.
func (h *Holder) Latest() models.AnnotationState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Version increases with every Publish and Reset.
func (h *Holder) Version() uint64 {
	return h.version.Load()
}

// Reset returns to the pending state, e.g. after the loop stopped.
func (h *Holder) Reset() {
	h.mu.Lock()
	h.latest = models.PendingState()
	h.version.Add(1)
	h.mu.Unlock()
}

// Subscribe registers a listener. The returned cancel func closes the channel
// and is safe to call more than once.
func (h *Holder) Subscribe() (<-chan models.AnnotationState, func()) {
	ch := make(chan models.AnnotationState, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Holder) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts updates skipped because a subscriber was full.
func (h *Holder) Dropped() uint64 {
	return h.dropped.Load()
}
