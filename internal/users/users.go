package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ms-volunteering/internal/models"
	"ms-volunteering/internal/utils"
)

// DefaultPassword is assigned when a new user is created without one.
const DefaultPassword = "123qwerty"

const (
	msgName     = "Name is missing, or is less than 2 characters"
	msgUID      = "User ID is missing, or is less than 2 characters"
	msgPassword = "Password is missing, or is less than 2 characters"
	msgRole     = "Role must be a string"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrDuplicateUID = errors.New("user id already exists")
)

var validate = validator.New()

// ValidationError is a client mistake reported verbatim to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err carries a client-facing validation message.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NewUser is a validated sign-up request. Password is still in plain text.
type NewUser struct {
	Name     string
	UID      string
	Password string
	DOB      time.Time
	Role     string
}

// ValidateNewUser checks name, uid, password, dob and role in that order.
// Absent optional fields take their defaults; an absent dob means today.
func ValidateNewUser(body map[string]any, today time.Time) (*NewUser, error) {
	name, ok := body["name"].(string)
	if !ok || !hasMinLength(name) {
		return nil, invalid(msgName)
	}
	uid, ok := body["uid"].(string)
	if !ok || !hasMinLength(uid) {
		return nil, invalid(msgUID)
	}

	u := &NewUser{
		Name:     name,
		UID:      uid,
		Password: DefaultPassword,
		DOB:      utils.StartOfDay(today),
		Role:     models.DefaultRole,
	}

	if raw, present := body["password"]; present && raw != nil {
		password, ok := raw.(string)
		if !ok || !hasMinLength(password) {
			return nil, invalid(msgPassword)
		}
		u.Password = password
	}

	if raw, present := body["dob"]; present && raw != nil {
		value, ok := raw.(string)
		if !ok {
			return nil, invalid(fmt.Sprintf("Date of birth format error %v, must be yyyy-mm-dd", raw))
		}
		dob, err := utils.ParseDate(value)
		if err != nil {
			return nil, invalid(fmt.Sprintf("Date of birth format error %s, must be yyyy-mm-dd", value))
		}
		u.DOB = dob
	}

	if raw, present := body["role"]; present && raw != nil {
		role, ok := raw.(string)
		if !ok {
			return nil, invalid(msgRole)
		}
		if role != "" {
			u.Role = role
		}
	}

	return u, nil
}

// Patch is a partial update of a user. Only name, uid and password may change.
type Patch struct {
	Name     *string
	UID      *string
	Password *string
}

func ValidatePatch(data map[string]json.RawMessage) (Patch, error) {
	var p Patch
	for _, f := range []struct {
		key string
		msg string
		dst **string
	}{
		{"name", msgName, &p.Name},
		{"uid", msgUID, &p.UID},
		{"password", msgPassword, &p.Password},
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
	return p, nil
}

func hasMinLength(value string) bool {
	return validate.Var(value, "min=2") == nil
}
