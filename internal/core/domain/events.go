package domain

import "github.com/google/uuid"

// EventType defines the type of real-time event.
type EventType string

const (
	EventIssueCreated  EventType = "ISSUE_CREATED"
	EventStatusUpdated EventType = "STATUS_UPDATED"
	EventIssueAssigned EventType = "ISSUE_ASSIGNED"
	EventStatsDigest   EventType = "STATS_DIGEST"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
	IssueID uuid.UUID   `json:"issueId,omitempty"`
	Ward    string      `json:"ward,omitempty"` // Used for routing to ward "rooms"
}
