package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ms-volunteering/internal/database"
	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	"ms-volunteering/internal/users"
)

type DBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User, columns ...string) error
	DeleteUser(ctx context.Context, id int64) error
}

type UserService struct {
	DB     DBLayer
	Logger *logger.Logger
	Now    func() time.Time
	// Cost is the bcrypt work factor; tests lower it.
	Cost int
}

func NewUserService(db DBLayer, log *logger.Logger) *UserService {
	return &UserService{
		DB:     db,
		Logger: log,
		Now:    time.Now,
		Cost:   bcrypt.DefaultCost,
	}
}

// CreateUser validates body, hashes the password and stores the user.
func (s *UserService) CreateUser(ctx context.Context, body map[string]any) (*models.User, error) {
	input, err := users.ValidateNewUser(body, s.Now())
	if err != nil {
		return nil, err
	}
	return s.Register(ctx, input, nil)
}

// Register stores an already validated user together with events it owns.
func (s *UserService) Register(ctx context.Context, input *users.NewUser, owned []*models.Event) (*models.User, error) {
	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     input.Name,
		UID:      input.UID,
		Password: hash,
		DOB:      input.DOB,
		Role:     input.Role,
		Events:   owned,
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		if database.IsIntegrityViolation(err) {
			return nil, fmt.Errorf("%w: %s", users.ErrDuplicateUID, input.UID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.Logger.Info("USER", fmt.Sprintf("Created user %d (%s) with %d events", user.ID, user.UID, len(owned)))
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, fmt.Sprint(id))
	}
	return user, nil
}

func (s *UserService) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.DB.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, notFound(err, uid)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	list, err := s.DB.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return list, nil
}

// UpdateUser changes name, uid or password. A new password is re-hashed.
func (s *UserService) UpdateUser(ctx context.Context, id int64, data map[string]json.RawMessage) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := users.ValidatePatch(data)
	if err != nil {
		return nil, err
	}

	var columns []string
	if patch.Name != nil {
		user.Name = *patch.Name
		columns = append(columns, "name")
	}
	if patch.UID != nil {
		user.UID = *patch.UID
		columns = append(columns, "uid")
	}
	if patch.Password != nil {
		hash, err := s.hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
		columns = append(columns, "password")
	}

	if err := s.DB.UpdateUser(ctx, user, columns...); err != nil {
		if database.IsIntegrityViolation(err) {
			return nil, fmt.Errorf("%w: %s", users.ErrDuplicateUID, user.UID)
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return user, nil
}

// DeleteUser removes the user and, through the foreign key, its events.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.DeleteUser(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	s.Logger.Info("USER", fmt.Sprintf("Deleted user %d (%s) and %d events", user.ID, user.UID, len(user.Events)))
	return user, nil
}

func (s *UserService) hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func notFound(err error, key string) error {
	if database.IsNotFound(err) {
		return fmt.Errorf("%w: %s", users.ErrUserNotFound, key)
	}
	return fmt.Errorf("failed to load user %s: %w", key, err)
}
