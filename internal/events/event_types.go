package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedIn   EventType = "user_signed_in"
	EventTokenRefreshed EventType = "token_refreshed"
	EventUserSignedOut  EventType = "user_signed_out"
	EventUserRegistered EventType = "user_registered"
)

// Event represents a security event emitted by the session service.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	UserID     string         `json:"user_id"`
	Username   string         `json:"username,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}
