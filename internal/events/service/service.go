package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-volunteering/internal/database"
	"ms-volunteering/internal/events"
	"ms-volunteering/internal/events/qr"
	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event, columns ...string) error
	DeleteEvent(ctx context.Context, id int64) error
	QueryUnclaimed(ctx context.Context, f events.Filter) ([]models.Event, error)
	ListByOwner(ctx context.Context, ownerID *int64) ([]models.Event, error)
}

// Publisher announces event changes to other services.
type Publisher interface {
	Publish(ctx context.Context, change models.EventChange) error
}

type EventService struct {
	DB        DBLayer
	Publisher Publisher
	QR        *qr.QRGenerator
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewEventService(db DBLayer, publisher Publisher, qrGen *qr.QRGenerator, log *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		Publisher: publisher,
		QR:        qrGen,
		Logger:    log,
		Now:       time.Now,
	}
}

// CreateEvent validates body and inserts the event. Nothing is written when
// validation fails.
func (s *EventService) CreateEvent(ctx context.Context, body map[string]any) (*models.Event, error) {
	event, err := events.ValidateNewEvent(body, s.Now())
	if err != nil {
		return nil, err
	}

	if err := s.DB.CreateEvent(ctx, event); err != nil {
		if database.IsIntegrityViolation(err) {
			s.Logger.LogDatabase("INSERT", "events", err.Error())
			return nil, fmt.Errorf("%w: %s", events.ErrCreateFailed, event.Title)
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.Logger.LogEvent("CREATED", event.ID, event.Title)
	s.publish(ctx, models.EventCreated, event)
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	list, err := s.DB.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return list, nil
}

// UpdateEvent replaces only the whitelisted fields present in data.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, data map[string]json.RawMessage) (*models.Event, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := events.ValidatePatch(data)
	if err != nil {
		return nil, err
	}

	columns := patch.Apply(event)
	if err := s.DB.UpdateEvent(ctx, event, columns...); err != nil {
		return nil, fmt.Errorf("failed to update event %d: %w", id, err)
	}

	s.Logger.LogEvent("UPDATED", event.ID, fmt.Sprintf("columns=%v", columns))
	if len(columns) > 0 {
		s.publish(ctx, models.EventUpdated, event)
	}
	return event, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete event %d: %w", id, err)
	}

	s.Logger.LogEvent("DELETED", event.ID, event.Title)
	s.publish(ctx, models.EventDeleted, event)
	return event, nil
}

func (s *EventService) QueryEvents(ctx context.Context, f events.Filter) ([]models.Event, error) {
	return s.DB.QueryUnclaimed(ctx, f)
}

func (s *EventService) EventsByOwner(ctx context.Context, ownerID *int64) ([]models.Event, error) {
	list, err := s.DB.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events by owner: %w", err)
	}
	return list, nil
}

// EventQRCode renders the encrypted check-in QR of an event as a PNG.
func (s *EventService) EventQRCode(ctx context.Context, id int64) ([]byte, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.QR == nil {
		return nil, errors.New("qr generator not configured")
	}

	png, err := s.QR.GenerateEncryptedQR(models.NewCheckInPayload(event))
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}
	return png, nil
}

// CheckIn verifies a scanned check-in code for user. The code must decrypt,
// still describe the stored event, and the event must be claimed by user.
func (s *EventService) CheckIn(ctx context.Context, code string, user *models.User) (*models.Event, error) {
	if s.QR == nil {
		return nil, errors.New("qr generator not configured")
	}
	payload, err := s.QR.DecryptQRData(code)
	if err != nil {
		s.Logger.LogSecurity("CHECKIN_REJECTED", err.Error())
		return nil, events.ErrInvalidCheckIn
	}

	event, err := s.getEvent(ctx, payload.EventID)
	if err != nil {
		return nil, err
	}
	if models.NewCheckInPayload(event) != *payload {
		return nil, fmt.Errorf("%w: event %d changed since the code was issued", events.ErrInvalidCheckIn, event.ID)
	}
	if user == nil || !event.Claimed() || *event.UserID != user.ID {
		return nil, fmt.Errorf("%w: event %d", events.ErrNotEventOwner, event.ID)
	}

	s.Logger.LogEvent("CHECKED_IN", event.ID, user.UID)
	return event, nil
}

func (s *EventService) getEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %d", events.ErrEventNotFound, id)
		}
		return nil, fmt.Errorf("failed to load event %d: %w", id, err)
	}
	return event, nil
}

// publish never fails the caller; a lost notification is only logged.
func (s *EventService) publish(ctx context.Context, action string, event *models.Event) {
	if s.Publisher == nil {
		return
	}
	change := models.NewEventChange(action, event)
	if err := s.Publisher.Publish(ctx, change); err != nil {
		s.Logger.LogKafka("PUBLISH_FAILED", action, fmt.Sprintf("event %d: %v", event.ID, err))
	}
}

// MultiPublisher sends each change to every publisher in turn.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, change models.EventChange) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
