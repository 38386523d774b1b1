package event_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-volunteering/internal/auth"
	"ms-volunteering/internal/database"
	eventdb "ms-volunteering/internal/events/db"
	"ms-volunteering/internal/events/event_api"
	"ms-volunteering/internal/events/qr"
	"ms-volunteering/internal/events/service"
	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	userdb "ms-volunteering/internal/users/db"
)

const testSecret = "handler-secret"

type testServer struct {
	router http.Handler
	bun    *bun.DB
	token  string
	owner  *models.User
}

func setupServer(t *testing.T) *testServer {
	ctx := context.Background()
	bunDB, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(ctx, bunDB))
	t.Cleanup(func() { bunDB.Close() })

	owner := &models.User{Name: "Thomas Edison", UID: "toby", Password: "hash", Role: models.DefaultRole}
	users := &userdb.DB{Bun: bunDB}
	require.NoError(t, users.CreateUser(ctx, owner))

	log := logger.NewDiscard()
	eventService := service.NewEventService(&eventdb.DB{Bun: bunDB}, nil, qr.NewQRGenerator("qr"), log)
	eventService.Now = func() time.Time { return time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	requireAuth := auth.Middleware(auth.NewHMACVerifier(testSecret), users, "jwt", log)
	event_api.NewHandler(eventService, log).RegisterRoutes(r, requireAuth)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"_uid": "toby"})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return &testServer{router: r, bun: bunDB, token: signed, owner: owner}
}

func (s *testServer) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) countEvents(t *testing.T) int {
	n, err := s.bun.NewSelect().Model((*models.Event)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func beachCleanup() map[string]any {
	return map[string]any{
		"title":       "Beach Cleanup",
		"description": "Cleanup",
		"address":     "1 Bay St",
		"zipcode":     "92101",
		"agegroup":    "16",
		"date":        "2999-01-01",
	}
}

func decodeEvent(t *testing.T, w *httptest.ResponseRecorder) models.EventResponse {
	var got models.EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func decodeEvents(t *testing.T, w *httptest.ResponseRecorder) []models.EventResponse {
	var got []models.EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestCreateEvent(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeEvent(t, w)
	assert.Positive(t, got.ID)
	assert.Equal(t, "92101", got.Zipcode)
	assert.Equal(t, "2999-01-01", got.Date)
	assert.Nil(t, got.UserID)
}

func TestCreateEventRequiresToken(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/events/", beachCleanup(), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, s.countEvents(t))
}

func TestCreateEventBadZipcodePersistsNothing(t *testing.T) {
	s := setupServer(t)

	body := beachCleanup()
	body["zipcode"] = "921"
	w := s.do(t, http.MethodPost, "/api/events/", body, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Zip code is missing, or invalid. Zip code must be 5 digits"}`, w.Body.String())
	assert.Zero(t, s.countEvents(t))
}

func TestListEvents(t *testing.T) {
	s := setupServer(t)
	s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true)

	w := s.do(t, http.MethodGet, "/api/events/", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEvents(t, w), 1)
}

func TestUpdateEventPartial(t *testing.T) {
	s := setupServer(t)
	created := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true))

	w := s.do(t, http.MethodPut, "/api/events/", map[string]any{
		"id":   created.ID,
		"data": map[string]any{"date": "2030-05-01"},
	}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Message string               `json:"message"`
		Event   models.EventResponse `json:"event"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, "2030-05-01", resp.Event.Date)

	list := decodeEvents(t, s.do(t, http.MethodGet, "/api/events/", nil, false))
	require.Len(t, list, 1)
	want := created
	want.Date = "2030-05-01"
	assert.Equal(t, want, list[0])
}

func TestUpdateEventClaimAndUnclaim(t *testing.T) {
	s := setupServer(t)
	created := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true))

	w := s.do(t, http.MethodPut, "/api/events/", map[string]any{
		"id":   created.ID,
		"data": map[string]any{"userID": s.owner.ID},
	}, false)
	require.Equal(t, http.StatusOK, w.Code)

	owned := decodeEvents(t, s.do(t, http.MethodGet, "/api/events/get_by_id/1", nil, false))
	require.Len(t, owned, 1)
	assert.Empty(t, decodeEvents(t, s.do(t, http.MethodGet, "/api/events/query?title=Beach", nil, false)))

	w = s.do(t, http.MethodPut, "/api/events/", map[string]any{
		"id":   created.ID,
		"data": map[string]any{"userID": nil},
	}, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeEvents(t, s.do(t, http.MethodGet, "/api/events/get_by_id/null", nil, false)), 1)
}

func TestUpdateEventMissing(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPut, "/api/events/", map[string]any{"id": 404, "data": map[string]any{}}, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEvent(t *testing.T) {
	s := setupServer(t)
	created := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true))

	w := s.do(t, http.MethodDelete, "/api/events/", map[string]any{"id": created.ID}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodDelete, "/api/events/", map[string]any{"id": created.ID}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.countEvents(t))

	w = s.do(t, http.MethodDelete, "/api/events/", map[string]any{"id": created.ID}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryEvents(t *testing.T) {
	s := setupServer(t)
	s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true)
	other := beachCleanup()
	other["title"] = "Emmaus"
	other["zipcode"] = "02130"
	s.do(t, http.MethodPost, "/api/events/", other, true)

	list := decodeEvents(t, s.do(t, http.MethodGet, "/api/events/query?title=Beach", nil, false))
	require.Len(t, list, 1)
	assert.Equal(t, "Beach Cleanup", list[0].Title)

	list = decodeEvents(t, s.do(t, http.MethodGet, "/api/events/query?zipcode=2130", nil, false))
	require.Len(t, list, 1)
	assert.Equal(t, "Emmaus", list[0].Title)

	w := s.do(t, http.MethodGet, "/api/events/query?zipcode=abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsByOwnerBadID(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/api/events/get_by_id/toby", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventQRCode(t *testing.T) {
	s := setupServer(t)
	created := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true))

	w := s.do(t, http.MethodGet, "/api/events/1/qrcode", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Positive(t, created.ID)

	w = s.do(t, http.MethodGet, "/api/events/99/qrcode", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func claim(t *testing.T, s *testServer, eventID int64, owner any) {
	w := s.do(t, http.MethodPut, "/api/events/", map[string]any{
		"id":   eventID,
		"data": map[string]any{"userID": owner},
	}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestEventsByOwner(t *testing.T) {
	s := setupServer(t)
	owned := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true))
	other := beachCleanup()
	other["title"] = "Emmaus"
	open := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", other, true))
	claim(t, s, owned.ID, s.owner.ID)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/events/get_by_id/%d", s.owner.ID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeEvents(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, owned.ID, list[0].ID)
	require.NotNil(t, list[0].UserID)
	assert.Equal(t, s.owner.ID, *list[0].UserID)

	w = s.do(t, http.MethodGet, "/api/events/get_by_id/null", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeEvents(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, open.ID, list[0].ID)
	assert.Nil(t, list[0].UserID)

	w = s.do(t, http.MethodGet, "/api/events/get_by_id/999", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeEvents(t, w))
}

func checkInCode(t *testing.T, event models.EventResponse) string {
	code, err := qr.NewQRGenerator("qr").EncryptPayload(models.CheckInPayload{
		EventID: event.ID,
		Title:   event.Title,
		Date:    event.Date,
	})
	require.NoError(t, err)
	return code
}

func TestCheckIn(t *testing.T) {
	s := setupServer(t)
	created := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true))
	code := checkInCode(t, created)

	w := s.do(t, http.MethodPost, "/api/events/checkin", map[string]any{"code": code}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/events/checkin", map[string]any{"code": code}, true)
	assert.Equal(t, http.StatusForbidden, w.Code)

	claim(t, s, created.ID, s.owner.ID)
	w = s.do(t, http.MethodPost, "/api/events/checkin", map[string]any{"code": code}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Message string               `json:"message"`
		Event   models.EventResponse `json:"event"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.Event.ID)

	w = s.do(t, http.MethodPost, "/api/events/checkin", map[string]any{"code": "garbage"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/events/checkin", map[string]any{}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckInStaleCode(t *testing.T) {
	s := setupServer(t)
	created := decodeEvent(t, s.do(t, http.MethodPost, "/api/events/", beachCleanup(), true))
	code := checkInCode(t, created)
	claim(t, s, created.ID, s.owner.ID)

	w := s.do(t, http.MethodPut, "/api/events/", map[string]any{
		"id":   created.ID,
		"data": map[string]any{"date": "2030-05-01"},
	}, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/events/checkin", map[string]any{"code": code}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
