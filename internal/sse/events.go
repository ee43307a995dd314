// Package sse implements Server-Sent Events for enhancement run
// progress broadcasting.
package sse

import "time"

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRunStarted signals that an enhancement run began.
	EventRunStarted EventType = "run.started"
	// EventRunPage signals that one catalog page was fetched and grouped.
	EventRunPage EventType = "run.page"
	// EventRunCompleted signals that a run finished, possibly with
	// partial results.
	EventRunCompleted EventType = "run.completed"
	// EventRunFailed signals that a run aborted before producing results.
	EventRunFailed EventType = "run.failed"
	// EventRunMetric carries one telemetry sample from a run.
	EventRunMetric EventType = "run.metric"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct
// deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// RunStartedEventData is the data payload for run start events.
type RunStartedEventData struct {
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message"`
}

// RunPageEventData is the data payload for per-page progress events.
type RunPageEventData struct {
	Page     int `json:"page"`
	Fetched  int `json:"fetched"`
	Rendered int `json:"rendered"`
}

// RunCompletedEventData is the data payload for run completion events.
type RunCompletedEventData struct {
	CompletedAt time.Time `json:"completed_at"`
	Message     string    `json:"message"`
}

// RunFailedEventData is the data payload for run failure events.
type RunFailedEventData struct {
	FailedAt time.Time `json:"failed_at"`
	Message  string    `json:"message"`
}

// RunMetricEventData is the data payload for telemetry events.
type RunMetricEventData struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRunStartedEvent creates a run start event.
func NewRunStartedEvent(msg string) Event {
	now := time.Now()
	return Event{
		Type:      EventRunStarted,
		Timestamp: now,
		Data:      RunStartedEventData{StartedAt: now, Message: msg},
	}
}

// NewRunPageEvent creates a per-page progress event.
func NewRunPageEvent(page, fetched, rendered int) Event {
	return Event{
		Type:      EventRunPage,
		Timestamp: time.Now(),
		Data:      RunPageEventData{Page: page, Fetched: fetched, Rendered: rendered},
	}
}

// NewRunCompletedEvent creates a run completion event.
func NewRunCompletedEvent(msg string) Event {
	now := time.Now()
	return Event{
		Type:      EventRunCompleted,
		Timestamp: now,
		Data:      RunCompletedEventData{CompletedAt: now, Message: msg},
	}
}

// NewRunFailedEvent creates a run failure event.
func NewRunFailedEvent(msg string) Event {
	now := time.Now()
	return Event{
		Type:      EventRunFailed,
		Timestamp: now,
		Data:      RunFailedEventData{FailedAt: now, Message: msg},
	}
}

// NewRunMetricEvent creates a telemetry event.
func NewRunMetricEvent(name string, value float64) Event {
	return Event{
		Type:      EventRunMetric,
		Timestamp: time.Now(),
		Data:      RunMetricEventData{Name: name, Value: value},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
