package websocket

import "time"

// EventType names a realtime event pushed to a user's connections.
type EventType string

const (
	EventStepUpdated     EventType = "step_updated"
	EventReminderCreated EventType = "reminder_created"
	EventProjectUpdated  EventType = "project_updated"
	EventProjectStale    EventType = "project_stale"
	EventPong            EventType = "pong"
)

// Event is the JSON frame written to clients.
type Event struct {
	Type       EventType   `json:"type"`
	ProjectID  string      `json:"project_id,omitempty"`
	StepNumber *int        `json:"step_number,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, projectID string, data interface{}) Event {
	return Event{Type: t, ProjectID: projectID, Data: data, Timestamp: time.Now().UTC()}
}

// ForStep sets the step number on the event.
func (e Event) ForStep(n int) Event {
	e.StepNumber = &n
	return e
}

// inbound is what clients may send. Only keepalive pings are understood.
type inbound struct {
	Type string `json:"type"`
}
