package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventRunStarted      EventType = "RUN_STARTED"
	EventRunCompleted    EventType = "RUN_COMPLETED"
	EventSymbolAnalyzed  EventType = "SYMBOL_ANALYZED"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventSentimentVeto   EventType = "SENTIMENT_VETO"
	EventReportSent      EventType = "REPORT_SENT"
	EventReportSaved     EventType = "REPORT_SAVED"
	EventSourceDegraded  EventType = "SOURCE_DEGRADED"
	EventSourceRecovered EventType = "SOURCE_RECOVERED"
	EventSchedulerFired  EventType = "SCHEDULER_FIRED"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all relevant subscribers asynchronously.
// Subscribers must not assume delivery order.
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	subs := make([]Subscriber, 0, len(eb.subscribers[event.Type])+len(eb.allSubs))
	subs = append(subs, eb.subscribers[event.Type]...)
	subs = append(subs, eb.allSubs...)
	eb.mu.RUnlock()

	for _, sub := range subs {
		go sub(event)
	}
}

// PublishRunStarted announces the start of an analysis run.
func (eb *EventBus) PublishRunStarted(runID string, symbols []string) {
	eb.Publish(Event{
		Type: EventRunStarted,
		Data: map[string]interface{}{
			"run_id":  runID,
			"symbols": symbols,
			"count":   len(symbols),
		},
	})
}

// PublishRunCompleted announces the end of an analysis run.
func (eb *EventBus) PublishRunCompleted(runID string, analyzed, failed int, elapsed time.Duration) {
	eb.Publish(Event{
		Type: EventRunCompleted,
		Data: map[string]interface{}{
			"run_id":     runID,
			"analyzed":   analyzed,
			"failed":     failed,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

// PublishSymbolAnalyzed reports one finished symbol within a run.
func (eb *EventBus) PublishSymbolAnalyzed(runID, symbol, name string, score int, signal string) {
	eb.Publish(Event{
		Type: EventSymbolAnalyzed,
		Data: map[string]interface{}{
			"run_id": runID,
			"symbol": symbol,
			"name":   name,
			"score":  score,
			"signal": signal,
		},
	})
}

// PublishSignalGenerated announces an actionable buy signal.
func (eb *EventBus) PublishSignalGenerated(symbol, name, signal string, score int) {
	eb.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"symbol": symbol,
			"name":   name,
			"signal": signal,
			"score":  score,
		},
	})
}

// PublishSentimentVeto announces that news sentiment blocked a signal.
func (eb *EventBus) PublishSentimentVeto(symbol, name, result string) {
	eb.Publish(Event{
		Type: EventSentimentVeto,
		Data: map[string]interface{}{
			"symbol": symbol,
			"name":   name,
			"result": result,
		},
	})
}

// PublishReportSent reports the outcome of a notification fan-out.
func (eb *EventBus) PublishReportSent(channels, failed int) {
	eb.Publish(Event{
		Type: EventReportSent,
		Data: map[string]interface{}{
			"channels": channels,
			"failed":   failed,
		},
	})
}

// PublishReportSaved reports a report written to disk.
func (eb *EventBus) PublishReportSaved(path string) {
	eb.Publish(Event{
		Type: EventReportSaved,
		Data: map[string]interface{}{
			"path": path,
		},
	})
}

// PublishSourceDegraded reports a data source circuit opening.
func (eb *EventBus) PublishSourceDegraded(source, state string) {
	eb.Publish(Event{
		Type: EventSourceDegraded,
		Data: map[string]interface{}{
			"source": source,
			"state":  state,
		},
	})
}

// PublishSourceRecovered reports a data source circuit closing again.
func (eb *EventBus) PublishSourceRecovered(source string) {
	eb.Publish(Event{
		Type: EventSourceRecovered,
		Data: map[string]interface{}{
			"source": source,
		},
	})
}

// PublishSchedulerFired reports a scheduled run trigger.
func (eb *EventBus) PublishSchedulerFired(at time.Time) {
	eb.Publish(Event{
		Type: EventSchedulerFired,
		Data: map[string]interface{}{
			"fired_at": at.Format(time.RFC3339),
		},
	})
}

// PublishError sends an error event
func (eb *EventBus) PublishError(component, message string) {
	eb.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"component": component,
			"message":   message,
		},
	})
}
