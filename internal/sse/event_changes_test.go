package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
)

func change(id int64, action string) models.EventChange {
	return models.NewEventChange(action, &models.Event{ID: id, Title: "Emmaus"})
}

func receive(t *testing.T, ch <-chan models.EventChange) models.EventChange {
	select {
	case c := <-ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return models.EventChange{}
	}
}

func TestEmitterRoutesChanges(t *testing.T) {
	e := NewChangeEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := e.Subscribe(ctx)
	one := e.SubscribeToEvent(ctx, 7)
	assert.Equal(t, 2, e.ClientCount())

	require.NoError(t, e.Publish(ctx, change(3, models.EventCreated)))
	require.NoError(t, e.Publish(ctx, change(7, models.EventUpdated)))

	assert.Equal(t, int64(3), receive(t, all).Event.ID)
	assert.Equal(t, int64(7), receive(t, all).Event.ID)
	got := receive(t, one)
	assert.Equal(t, int64(7), got.Event.ID)
	assert.Equal(t, models.EventUpdated, got.Action)
	assert.Empty(t, one)
}

func TestEmitterUnsubscribesOnCancel(t *testing.T) {
	e := NewChangeEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.SubscribeToEvent(ctx, 1)
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Eventually(t, func() bool { return e.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	// Publishing after a client left must not panic.
	assert.NoError(t, e.Publish(context.Background(), change(1, models.EventDeleted)))
}

func TestEmitterDropsWhenBufferFull(t *testing.T) {
	e := NewChangeEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.Subscribe(ctx)
	for i := 0; i < clientBuffer+5; i++ {
		require.NoError(t, e.Publish(ctx, change(int64(i), models.EventCreated)))
	}
	assert.Len(t, ch, clientBuffer)
}

func TestHandlerStreamsChanges(t *testing.T) {
	e := NewChangeEmitter()
	h := NewHandler(e, logger.NewDiscard())
	r := chi.NewRouter()
	r.Get("/changes", h.StreamAll)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/changes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readLine := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimSpace(line)
	}

	assert.Equal(t, "event: connected", readLine())
	readLine() // data
	readLine() // blank

	require.NoError(t, e.Publish(ctx, change(9, models.EventCreated)))
	assert.Equal(t, "event: created", readLine())
	assert.Contains(t, readLine(), `"id":9`)
}

func TestHandlerOutlivesServerWriteTimeout(t *testing.T) {
	e := NewChangeEmitter()
	log := logger.NewDiscard()
	h := NewHandler(e, log)
	r := chi.NewRouter()
	r.Use(log.Middleware())
	r.Get("/changes", h.StreamAll)

	srv := httptest.NewUnstartedServer(r)
	srv.Config.WriteTimeout = 300 * time.Millisecond
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/changes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for i := 0; i < 3; i++ {
		_, err := reader.ReadString('\n')
		require.NoError(t, err)
	}

	time.Sleep(500 * time.Millisecond)
	require.NoError(t, e.Publish(ctx, change(4, models.EventUpdated)))

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: updated", strings.TrimSpace(line))
	assert.Equal(t, 1, e.ClientCount())
}
