// Package annotations provides a clean, low-overhead annotation system for
// tracking rule evaluation metrics and debugging information.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Query lifecycle
	QueryInvoked  = "query/invoked"
	QueryComplete = "query/completed"

	// Fixed-point evaluation
	FixpointBegin = "fixpoint/begin"
	FixpointRound = "fixpoint/round"

	// Relational operators
	OperatorSelect  = "operator/select"
	OperatorJoin    = "operator/join"
	OperatorProject = "operator/project"
	OperatorUnion   = "operator/union"
	OperatorCopy    = "operator/copy"

	// IE evaluation
	IEComputed = "ie/computed"

	// Term graph mutations
	RuleAdded   = "rule/added"
	RuleRemoved = "rule/removed"

	// Errors
	ErrorEvaluation = "error/evaluation"
)

// Event represents a single annotation event during evaluation.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Additional event-specific data with grouped metrics
	Session string                 // Optional: session that produced the event
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events during evaluation.
type Collector struct {
	enabled bool
	handler Handler
	session string
	events  []Event
	mu      sync.Mutex
}

// NewCollector creates a new annotation collector.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 128),
	}
}

// WithSession stamps every subsequent event with a session identifier.
func (c *Collector) WithSession(id string) *Collector {
	c.session = id
	return c
}

// Enabled reports whether events are being recorded.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// Handler returns the underlying event handler.
func (c *Collector) Handler() Handler {
	return c.handler
}

// Add records a new event.
// Thread-safe for concurrent access.
func (c *Collector) Add(event Event) {
	if !c.enabled {
		return
	}
	if event.Session == "" {
		event.Session = c.session
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	c.handler(event)
}

// AddTiming records an event with timing information.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.enabled {
		return
	}

	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns all collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Reset clears the collector for reuse.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
