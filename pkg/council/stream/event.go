package stream

import (
	"sync"
	"time"
)

type EventType string

const (
	EventConnected         EventType = "connected"
	EventCouncilStart      EventType = "council_start"
	EventDecisionStart     EventType = "decision_start"
	EventCharacterResponse EventType = "character_response"
	EventCharacterAnalysis EventType = "character_analysis"
	EventFinalDecision     EventType = "final_decision"
	EventCouncilComplete   EventType = "council_complete"
	EventDecisionComplete  EventType = "decision_complete"
	EventError             EventType = "error"
	EventClose             EventType = "close"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEvent(eventType EventType, data interface{}) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}

// Sink receives the events of one streamed turn, in order.
type Sink interface {
	Emit(event Event) error
}

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []EventType {
	events := r.Events()
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}
