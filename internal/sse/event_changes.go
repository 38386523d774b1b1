package sse

import (
	"context"
	"sync"

	"ms-volunteering/internal/models"
)

const clientBuffer = 10

// ChangeEmitter fans event changes out to connected stream clients.
type ChangeEmitter struct {
	mu sync.RWMutex
	// all receives every change
	all map[chan models.EventChange]struct{}
	// byEvent is keyed by event id
	byEvent map[int64]map[chan models.EventChange]struct{}
}

func NewChangeEmitter() *ChangeEmitter {
	return &ChangeEmitter{
		all:     make(map[chan models.EventChange]struct{}),
		byEvent: make(map[int64]map[chan models.EventChange]struct{}),
	}
}

// Subscribe registers a client for every change until ctx is done. The
// returned channel is closed on unsubscribe.
func (e *ChangeEmitter) Subscribe(ctx context.Context) <-chan models.EventChange {
	ch := make(chan models.EventChange, clientBuffer)

	e.mu.Lock()
	e.all[ch] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.all, ch)
		close(ch)
		e.mu.Unlock()
	}()
	return ch
}

// SubscribeToEvent registers a client for changes to one event.
func (e *ChangeEmitter) SubscribeToEvent(ctx context.Context, eventID int64) <-chan models.EventChange {
	ch := make(chan models.EventChange, clientBuffer)

	e.mu.Lock()
	if e.byEvent[eventID] == nil {
		e.byEvent[eventID] = make(map[chan models.EventChange]struct{})
	}
	e.byEvent[eventID][ch] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.byEvent[eventID], ch)
		if len(e.byEvent[eventID]) == 0 {
			delete(e.byEvent, eventID)
		}
		close(ch)
		e.mu.Unlock()
	}()
	return ch
}

// Publish broadcasts a change. Slow clients whose buffer is full miss it.
func (e *ChangeEmitter) Publish(_ context.Context, change models.EventChange) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for ch := range e.all {
		send(ch, change)
	}
	for ch := range e.byEvent[change.Event.ID] {
		send(ch, change)
	}
	return nil
}

// ClientCount returns the number of connected clients, both kinds.
func (e *ChangeEmitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.all)
	for _, clients := range e.byEvent {
		n += len(clients)
	}
	return n
}

func send(ch chan models.EventChange, change models.EventChange) {
	select {
	case ch <- change:
	default:
	}
}
