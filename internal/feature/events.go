package feature

import "sync"

// EventType distinguishes model notifications.
type EventType int

const (
	// ValueChanged is emitted whenever an option value changes.
	ValueChanged EventType = iota + 1
	// Validated is emitted once per validation run.
	Validated
)

// String implements fmt.Stringer.
func (t EventType) String() string {
	switch t {
	case ValueChanged:
		return "value_changed"
	case Validated:
		return "validated"
	default:
		return "unknown"
	}
}

// Event is a notification emitted by a Model.
type Event struct {
	Type    EventType
	ModelID string

	// Set for ValueChanged.
	Option   string
	Previous float64
	Current  float64

	// Set for Validated.
	PreviousValid bool
	Valid         bool
}

// Listener receives model events. Listeners run synchronously on the
// goroutine that caused the event and must not block.
type Listener func(Event)

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) emit(ev Event) {
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	// Deliver in subscription order.
	for i := 0; i < l.next; i++ {
		if fn, ok := l.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
