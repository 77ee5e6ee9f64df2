package board

import "sync"

// EventType names a board change.
type EventType string

const (
	EventTaskCreated EventType = "task_created"
	EventTaskUpdated EventType = "task_updated"
	EventTaskMoved   EventType = "task_moved"
	EventTaskDeleted EventType = "task_deleted"
	// EventCelebrate is emitted when a task reaches the done column.
	EventCelebrate EventType = "celebrate"
)

// Event is a real-time board update.
type Event struct {
	Type   EventType `json:"type"`
	TaskID string    `json:"task_id"`
	Data   any       `json:"data,omitempty"`
}

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// events to it are dropped.
const subscriberBuffer = 64

type hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *hub) publish(events ...Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		for _, e := range events {
			select {
			case ch <- e:
			default:
			}
		}
	}
}
