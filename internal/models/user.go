package models

import (
	"time"

	"github.com/uptrace/bun"
)

const DefaultRole = "User"

// User owns zero or more events. Deleting a user deletes its events.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64     `bun:"id,pk,autoincrement"`
	Name     string    `bun:"name,notnull"`
	UID      string    `bun:"uid,notnull,unique"`
	Password string    `bun:"password,notnull"`
	DOB      time.Time `bun:"dob,type:date"`
	Role     string    `bun:"role"`

	Events []*Event `bun:"rel:has-many,join:id=user_id"`
}

type UserResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	UID      string          `json:"uid"`
	DOB      string          `json:"dob"`
	Age      int             `json:"age"`
	Role     string          `json:"role"`
	Password string          `json:"password"`
	Events   []EventResponse `json:"events"`
}

// NewUserResponse maps a user and its loaded events. today drives the age.
func NewUserResponse(u *User, today time.Time) UserResponse {
	events := make([]EventResponse, 0, len(u.Events))
	for _, e := range u.Events {
		events = append(events, NewEventResponse(e))
	}
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		UID:      u.UID,
		DOB:      FormatDOB(u.DOB),
		Age:      Age(u.DOB, today),
		Role:     u.Role,
		Password: PasswordPreview(u.Password),
		Events:   events,
	}
}

// Age returns the number of whole years between dob and today.
func Age(dob, today time.Time) int {
	if dob.IsZero() {
		return 0
	}
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// PasswordPreview shows only the first characters of a stored hash.
func PasswordPreview(hash string) string {
	if len(hash) > 10 {
		hash = hash[:10]
	}
	return hash + "..."
}

func FormatDOB(dob time.Time) string {
	if dob.IsZero() {
		return ""
	}
	return dob.Format("01-02-2006")
}
