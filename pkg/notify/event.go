package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of a notification.
type EventType string

const (
	// EventShared is raised when someone shares a report with the user.
	EventShared EventType = "shared"

	// EventRevoked is raised when a share with the user is revoked.
	EventRevoked EventType = "revoked"
)

// Wire event names on the push channel.
const (
	WireShared    = "report-shared"
	WireRevoked   = "report-revoked"
	WireSubscribe = "subscribe"
)

// Wire returns the push channel name of the event type.
func (t EventType) Wire() string {
	switch t {
	case EventShared:
		return WireShared
	case EventRevoked:
		return WireRevoked
	default:
		return string(t)
	}
}

// typeOfWire maps a push channel event name to an EventType.
func typeOfWire(name string) (EventType, bool) {
	switch name {
	case WireShared:
		return EventShared, true
	case WireRevoked:
		return EventRevoked, true
	default:
		return "", false
	}
}

// Event is one entry of the notification feed. It is informational only and
// never the source of truth for grants.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OwnerID    string    `json:"ownerId"`
	ReportID   string    `json:"reportId,omitempty"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// NewEvent builds a feed entry with a rendered message.
func NewEvent(t EventType, ownerID, reportID string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OwnerID:    ownerID,
		ReportID:   reportID,
		Message:    render(t, ownerID),
		ReceivedAt: at,
	}
}

func render(t EventType, ownerID string) string {
	switch t {
	case EventShared:
		return fmt.Sprintf("Report shared by %s", ownerID)
	case EventRevoked:
		return fmt.Sprintf("Report revoked by %s", ownerID)
	default:
		return fmt.Sprintf("Report update from %s", ownerID)
	}
}

// Message is the envelope of every push channel frame.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Payload is the data of report-shared and report-revoked. ReportID is
// empty for bulk grants.
type Payload struct {
	OwnerID  string `json:"ownerId"`
	ReportID string `json:"reportId,omitempty"`
}

// subscribePayload scopes the connection to one user.
type subscribePayload struct {
	UserID string `json:"userId"`
}

// NewMessage encodes data into a push channel frame.
func NewMessage(event string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return Message{Event: event, Data: raw}, nil
}
