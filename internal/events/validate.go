package events

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"ms-volunteering/internal/models"
	"ms-volunteering/internal/utils"
)

const (
	msgTitle       = "Title is missing, or is less than 2 characters"
	msgDescription = "Description is missing, or is less than 2 characters"
	msgAddress     = "Address is missing, or is less than 2 characters"
	msgAgeGroup    = "Age Group is missing, or is less than 2 characters"
	msgZipcode     = "Zip code is missing, or invalid. Zip code must be 5 digits"
	msgDateMissing = "Event Date is missing"
	msgDatePast    = "Event Date cannot be in the past"
	msgUserID      = "userID must be an integer or null"
)

var (
	zipcodePattern = regexp.MustCompile(`^[0-9]{5}$`)
	validate       = validator.New()
)

// ValidateNewEvent checks a submitted event body in a fixed order and stops at
// the first failure. today is the caller's current date; the event date must
// be strictly after it. Nothing is written here.
func ValidateNewEvent(body map[string]any, today time.Time) (*models.Event, error) {
	title, ok := stringField(body, "title")
	if !ok || !hasMinLength(title) {
		return nil, invalid(msgTitle)
	}
	description, ok := stringField(body, "description")
	if !ok || !hasMinLength(description) {
		return nil, invalid(msgDescription)
	}
	address, ok := stringField(body, "address")
	if !ok || !hasMinLength(address) {
		return nil, invalid(msgAddress)
	}
	ageGroup, ok := stringField(body, "agegroup")
	if !ok || !hasMinLength(ageGroup) {
		return nil, invalid(msgAgeGroup)
	}

	zipcode, ok := stringField(body, "zipcode")
	if !ok || !zipcodePattern.MatchString(zipcode) {
		return nil, invalid(msgZipcode)
	}

	rawDate, present := body["date"]
	if !present || rawDate == nil {
		return nil, invalid(msgDateMissing)
	}
	eventDate, err := parseEventDate(rawDate)
	if err != nil {
		return nil, err
	}
	if !eventDate.After(utils.StartOfDay(today)) {
		return nil, invalid(msgDatePast)
	}

	return &models.Event{
		Title:       title,
		Description: description,
		Address:     address,
		Zipcode:     zipcode,
		Date:        eventDate,
		AgeGroup:    ageGroup,
	}, nil
}

// Patch is a whitelisted partial update of an event. Nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	Address     *string
	Zipcode     *string
	Date        *time.Time

	// SetUserID distinguishes an explicit null (unclaim) from an absent key.
	SetUserID bool
	UserID    *int64
}

// ValidatePatch reads the updatable keys from data. Keys outside the
// whitelist are ignored.
func ValidatePatch(data map[string]json.RawMessage) (Patch, error) {
	var p Patch

	if raw, ok := data["userID"]; ok {
		var owner *int64
		if err := json.Unmarshal(raw, &owner); err != nil {
			return Patch{}, invalid(msgUserID)
		}
		p.SetUserID = true
		p.UserID = owner
	}

	for _, f := range []struct {
		key string
		msg string
		dst **string
	}{
		{"title", msgTitle, &p.Title},
		{"description", msgDescription, &p.Description},
		{"address", msgAddress, &p.Address},
	} {
		raw, ok := data[f.key]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil || !hasMinLength(value) {
			return Patch{}, invalid(f.msg)
		}
		*f.dst = &value
	}

	if raw, ok := data["zipcode"]; ok {
		var zipcode string
		if err := json.Unmarshal(raw, &zipcode); err != nil || !zipcodePattern.MatchString(zipcode) {
			return Patch{}, invalid(msgZipcode)
		}
		p.Zipcode = &zipcode
	}

	if raw, ok := data["date"]; ok {
		var value any
		if err := json.Unmarshal(raw, &value); err != nil || value == nil {
			return Patch{}, invalid(msgDateMissing)
		}
		eventDate, err := parseEventDate(value)
		if err != nil {
			return Patch{}, err
		}
		p.Date = &eventDate
	}

	return p, nil
}

// Apply copies the present fields onto e and returns the changed columns.
func (p Patch) Apply(e *models.Event) []string {
	var columns []string
	if p.SetUserID {
		e.UserID = p.UserID
		columns = append(columns, "user_id")
	}
	if p.Title != nil {
		e.Title = *p.Title
		columns = append(columns, "title")
	}
	if p.Address != nil {
		e.Address = *p.Address
		columns = append(columns, "address")
	}
	if p.Description != nil {
		e.Description = *p.Description
		columns = append(columns, "description")
	}
	if p.Zipcode != nil {
		e.Zipcode = *p.Zipcode
		columns = append(columns, "zipcode")
	}
	if p.Date != nil {
		e.Date = *p.Date
		columns = append(columns, "date")
	}
	return columns
}

func parseEventDate(raw any) (time.Time, error) {
	value, ok := raw.(string)
	if !ok {
		return time.Time{}, invalid(fmt.Sprintf("Event Date format error %v, must be yyyy-mm-dd", raw))
	}
	eventDate, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, invalid(fmt.Sprintf("Event Date format error %s, must be yyyy-mm-dd", value))
	}
	return eventDate, nil
}

func stringField(body map[string]any, key string) (string, bool) {
	value, ok := body[key].(string)
	return value, ok
}

func hasMinLength(value string) bool {
	return validate.Var(value, "min=2") == nil
}
