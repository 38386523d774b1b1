package models

import "time"

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventChange is published whenever an event row is written.
type EventChange struct {
	Action     string        `json:"action"`
	Event      EventResponse `json:"event"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func NewEventChange(action string, e *Event) EventChange {
	return EventChange{
		Action:     action,
		Event:      NewEventResponse(e),
		OccurredAt: time.Now().UTC(),
	}
}

// CheckInPayload is what an event check-in QR code carries.
type CheckInPayload struct {
	EventID int64  `json:"event_id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
}

func NewCheckInPayload(e *Event) CheckInPayload {
	return CheckInPayload{EventID: e.ID, Title: e.Title, Date: formatDate(e.Date)}
}
