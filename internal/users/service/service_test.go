package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ms-volunteering/internal/database"
	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	"ms-volunteering/internal/users"
	userdb "ms-volunteering/internal/users/db"
	"ms-volunteering/internal/users/service"
)

func setupService(t *testing.T) *service.UserService {
	ctx := context.Background()
	bunDB, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(ctx, bunDB))
	t.Cleanup(func() { bunDB.Close() })

	s := service.NewUserService(&userdb.DB{Bun: bunDB}, logger.NewDiscard())
	s.Cost = bcrypt.MinCost
	s.Now = func() time.Time { return time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateUserHashesPassword(t *testing.T) {
	s := setupService(t)

	u, err := s.CreateUser(context.Background(), map[string]any{"name": "Thomas Edison", "uid": "toby", "password": "123toby"})
	require.NoError(t, err)

	assert.NotEqual(t, "123toby", u.Password)
	assert.True(t, passwordMatches(u, "123toby"))
	assert.False(t, passwordMatches(u, "wrong"))
}

func TestCreateUserDefaults(t *testing.T) {
	s := setupService(t)

	u, err := s.CreateUser(context.Background(), map[string]any{"name": "Alexander Graham Bell", "uid": "lex"})
	require.NoError(t, err)

	assert.True(t, passwordMatches(u, users.DefaultPassword))
	assert.Equal(t, models.DefaultRole, u.Role)
	assert.Equal(t, "10-19-2026", models.FormatDOB(u.DOB))
}

func TestCreateUserDuplicateUID(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, map[string]any{"name": "Grace Hopper", "uid": "hop"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, map[string]any{"name": "Other", "uid": "hop"})
	assert.ErrorIs(t, err, users.ErrDuplicateUID)
}

func TestUpdateUserPassword(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, map[string]any{"name": "Nicholas Tesla", "uid": "niko", "password": "123niko"})
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, u.ID, map[string]json.RawMessage{"password": json.RawMessage(`"newpass"`)})
	require.NoError(t, err)

	stored, err := s.GetUserByUID(ctx, "niko")
	require.NoError(t, err)
	assert.True(t, passwordMatches(stored, "newpass"))
	assert.Equal(t, "Nicholas Tesla", stored.Name)
}

func TestUpdateUserNotFound(t *testing.T) {
	s := setupService(t)

	_, err := s.UpdateUser(context.Background(), 99, map[string]json.RawMessage{})
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	owned := []*models.Event{{
		Title: "Emmaus1", Description: "Help", Address: "954 W. Washington Blvd",
		Zipcode: "60607", Date: time.Date(2999, time.March, 30, 0, 0, 0, 0, time.UTC), AgeGroup: "18",
	}}
	u, err := s.Register(ctx, &users.NewUser{Name: "Admin", UID: "admin", Password: "123admin", Role: "Admin"}, owned)
	require.NoError(t, err)

	deleted, err := s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, deleted.Events, 1)

	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func passwordMatches(user *models.User, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(plain)) == nil
}
