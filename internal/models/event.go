package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DateLayout is the wire format of event dates.
const DateLayout = "2006-01-02"

// Event is a volunteer event. A nil UserID means the event is unclaimed.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	Address     string    `bun:"address"`
	Zipcode     string    `bun:"zipcode"`
	Date        time.Time `bun:"date,type:date"`
	AgeGroup    string    `bun:"agegroup"`
	UserID      *int64    `bun:"user_id"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

func (e *Event) Claimed() bool {
	return e.UserID != nil
}

// EventResponse is the field mapping returned by the API.
type EventResponse struct {
	ID          int64  `json:"id"`
	UserID      *int64 `json:"userID"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Zipcode     string `json:"zipcode"`
	Date        string `json:"date"`
	AgeGroup    string `json:"agegroup"`
}

func NewEventResponse(e *Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		Title:       e.Title,
		Description: e.Description,
		Address:     e.Address,
		Zipcode:     e.Zipcode,
		Date:        formatDate(e.Date),
		AgeGroup:    e.AgeGroup,
	}
}

func NewEventResponses(events []Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, NewEventResponse(&events[i]))
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
