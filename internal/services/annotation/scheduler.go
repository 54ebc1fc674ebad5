package annotation

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// DefaultRefreshRate matches a typical display repaint cadence.
const DefaultRefreshRate = 60

// Handle identifies one scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler runs a callback at the next repaint opportunity.
type Scheduler interface {
	ScheduleNext(fn func()) Handle
	// Cancel drops a pending callback. Unknown or already-run handles are ignored.
	Cancel(h Handle)
}

// RepaintScheduler emulates a display's repaint callback on top of a ticker.
// Callbacks pending when a tick fires run on that tick, in registration
// order, on a single dispatcher goroutine. Callbacks registered while a tick
// is being dispatched wait for the following tick.
type RepaintScheduler struct {
	clock    clock.Clock
	interval time.Duration

	mu      sync.Mutex
	last    Handle
	pending map[Handle]func()
	order   []Handle
	closed  bool

	ticker *clock.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewRepaintScheduler starts a dispatcher ticking refreshRate times per second.
// A nil clock means wall time; a non-positive rate falls back to DefaultRefreshRate.
func NewRepaintScheduler(clk clock.Clock, refreshRate int) *RepaintScheduler {
	if clk == nil {
		clk = clock.New()
	}
	if refreshRate <= 0 {
		refreshRate = DefaultRefreshRate
	}

	s := &RepaintScheduler{
		clock:    clk,
		interval: time.Second / time.Duration(refreshRate),
		pending:  make(map[Handle]func()),
		done:     make(chan struct{}),
	}
	s.ticker = clk.Ticker(s.interval)

	go s.dispatch()
	return s
}

// Interval is the time between repaint ticks.
func (s *RepaintScheduler) Interval() time.Duration {
	return s.interval
}

func (s *RepaintScheduler) ScheduleNext(fn func()) Handle {
	if fn == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	s.last++
	s.pending[s.last] = fn
	s.order = append(s.order, s.last)
	return s.last
}

func (s *RepaintScheduler) Cancel(h Handle) {
	s.mu.Lock()
	delete(s.pending, h)
	s.mu.Unlock()
}

// Pending reports how many callbacks wait for the next tick.
func (s *RepaintScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops the dispatcher and drops every pending callback.
// A callback already running is allowed to finish; Close does not wait for it,
// so it is safe to call from inside a callback.
func (s *RepaintScheduler) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.pending = make(map[Handle]func())
		s.order = nil
		s.mu.Unlock()

		s.ticker.Stop()
		close(s.done)
	})
}

func (s *RepaintScheduler) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.tick()
		}
	}
}

func (s *RepaintScheduler) tick() {
	s.mu.Lock()
	batch := s.order
	s.order = nil
	s.mu.Unlock()

	for _, h := range batch {
		s.mu.Lock()
		fn, ok := s.pending[h]
		delete(s.pending, h)
		s.mu.Unlock()
		if !ok {
			// cancelled
			continue
		}
		s.run(fn)
	}
}

func (s *RepaintScheduler) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("repaint_callback_panic")
		}
	}()
	fn()
}
