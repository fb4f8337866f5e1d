package event

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrClosed is returned by Next once the handler is closed and drained.
var ErrClosed = errors.New("event queue closed")

// Handler is an unbounded multi-producer, single-consumer queue. Producers
// never block; the consumer blocks in Next. At most one tick is pending at
// any time so a slow consumer does not accumulate ticks.
type Handler struct {
	mu          sync.Mutex
	queue       []Event
	tickPending bool
	closed      bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewHandler creates a handler. A positive tickRate starts a goroutine
// that enqueues a tick every period until Close.
func NewHandler(tickRate time.Duration) *Handler {
	h := &Handler{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	if tickRate > 0 {
		h.wg.Add(1)
		go h.tickLoop(tickRate)
	}

	return h
}

func (h *Handler) tickLoop(rate time.Duration) {
	defer h.wg.Done()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.pushTick()
		}
	}
}

// Send enqueues an application event.
func (h *Handler) Send(a AppEvent) {
	h.push(App(a))
}

// SendKey enqueues a key press.
func (h *Handler) SendKey(k tea.KeyMsg) {
	h.push(Input(k))
}

func (h *Handler) push(ev Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.queue = append(h.queue, ev)
	h.mu.Unlock()
	h.wake()
}

func (h *Handler) pushTick() {
	h.mu.Lock()
	if h.closed || h.tickPending {
		h.mu.Unlock()
		return
	}
	h.tickPending = true
	h.queue = append(h.queue, Tick())
	h.mu.Unlock()
	h.wake()
}

func (h *Handler) wake() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, ctx is done, or the handler is
// closed. Events queued before Close are still delivered.
func (h *Handler) Next(ctx context.Context) (Event, error) {
	for {
		if ev, ok := h.pop(); ok {
			return ev, nil
		}

		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if closed {
			return Event{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-h.done:
		case <-h.notify:
		}
	}
}

func (h *Handler) pop() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.queue) == 0 {
		return Event{}, false
	}
	ev := h.queue[0]
	h.queue[0] = Event{}
	h.queue = h.queue[1:]
	if ev.Kind == KindTick {
		h.tickPending = false
	}
	return ev, true
}

// Len returns the number of queued events.
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Close stops the tick goroutine and rejects further events.
func (h *Handler) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		close(h.done)
	})
	h.wg.Wait()
}
