package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-volunteering/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func sampleChange() models.EventChange {
	event := &models.Event{
		ID:      12,
		Title:   "Step Up",
		Zipcode: "90013",
		Date:    time.Date(2999, time.March, 2, 0, 0, 0, 0, time.UTC),
	}
	return models.NewEventChange(models.EventUpdated, event)
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(sampleChange())
	require.NoError(t, err)

	assert.Equal(t, "12", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "updated", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "updated", decoded["action"])
	event := decoded["event"].(map[string]any)
	assert.Equal(t, "Step Up", event["title"])
	assert.Equal(t, "2999-03-02", event["date"])
}

func TestProducerPublish(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w, Topic: "volunteer.events"}

	require.NoError(t, p.Publish(context.Background(), sampleChange()))
	assert.Len(t, w.msgs, 1)

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), sampleChange()))
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), sampleChange()))
}

func TestNewProducerFlushesPromptly(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "volunteer.events")
	defer p.Close()

	writer, ok := p.Writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "volunteer.events", writer.Topic)
	assert.LessOrEqual(t, writer.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, writer.BatchTimeout)
}
