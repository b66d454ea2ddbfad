package history

import "time"

// EventType represents the type of history event.
type EventType string

const (
	EventTypeDispatched EventType = "dispatched"
	EventTypeFailed     EventType = "failed"
)

// Entry represents a history entry.
type Entry struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"runId"`
	EventType   EventType `json:"eventType"`
	Title       string    `json:"title"`
	Name        string    `json:"name"`
	SeriesID    string    `json:"seriesId"`
	Quality     string    `json:"quality"`
	Destination string    `json:"destination,omitempty"`
	JobID       string    `json:"jobId,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateInput contains fields for creating a history entry.
type CreateInput struct {
	RunID       string
	EventType   EventType
	Title       string
	Name        string
	SeriesID    string
	Quality     string
	Destination string
	JobID       string
	Error       string
}

// ListOptions contains options for listing history.
type ListOptions struct {
	Limit     int
	Name      string
	EventType EventType
}
