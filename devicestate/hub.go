package devicestate

import (
	"log/slog"
	"sync"
	"time"
)

// Hub is the sole writer of State; all other components are readers.
// Subscribers receive a strictly monotonic sequence of replacements and
// always see the current state immediately upon subscribing.
type Hub struct {
	mu          sync.Mutex
	current     State
	subscribers map[int]chan State
	nextID      int
	logger      *slog.Logger
}

// NewHub creates a Hub whose initial state is NotFound.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		current:     State{Kind: NotFound},
		subscribers: map[int]chan State{},
		logger:      logger.With("component", "devicestate"),
	}
}

// Current returns the current state.
func (h *Hub) Current() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Subscribe registers a new reader and returns a channel that always
// holds the most recent state. The channel is buffered with capacity 1;
// a slow subscriber's single pending slot is overwritten by newer
// states rather than blocking the writer, so consumers always see the
// current state even if they miss intermediate ones.
func (h *Hub) Subscribe() (ch <-chan State, unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	c := make(chan State, 1)
	c <- h.current
	h.subscribers[id] = c

	return c, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			close(sub)
			delete(h.subscribers, id)
		}
	}
}

func (h *Hub) publish(s State) {
	h.mu.Lock()
	h.current = s
	subs := make([]chan State, 0, len(h.subscribers))
	for _, c := range h.subscribers {
		subs = append(subs, c)
	}
	h.mu.Unlock()

	for _, c := range subs {
		select {
		case c <- s:
		default:
			// Slow subscriber: drop its pending state and overwrite
			// with the latest, never block the writer.
			select {
			case <-c:
			default:
			}
			select {
			case c <- s:
			default:
			}
		}
	}
}

// TransitionTo replaces the current state unconditionally and
// broadcasts it. Most transitions go through the dedicated helpers
// below instead, which enforce the state machine's own invariants.
func (h *Hub) TransitionTo(s State) {
	h.publish(s)
}

// DebounceRequestPermission schedules fn to run after a 1000ms
// permission-request debounce, returning a cancel function.
func DebounceRequestPermission(fn func()) (cancel func()) {
	timer := time.AfterFunc(1000*time.Millisecond, fn)
	return func() { timer.Stop() }
}
