package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillEventPublisher_PublishSessionEvent(t *testing.T) {
	logger := discardLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "proctor.sessions")
	require.NoError(t, err)

	publisher := NewWatermillEventPublisher(pubSub, "proctor.sessions", logger)
	event := NewSessionEvent(EventSessionStarted, SessionStartedEvent{
		AssignmentID:    7,
		PaperID:         3,
		DurationMinutes: 10,
		QuestionCount:   5,
	}, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))

	require.NoError(t, publisher.PublishSessionEvent(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventSessionStarted), msg.Metadata.Get("event_type"))
		assert.Equal(t, EventSource, msg.Metadata.Get("source"))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		data := decoded["data"].(map[string]interface{})
		assert.Equal(t, float64(7), data["assignment_id"])
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestNewSessionEvent_Envelope(t *testing.T) {
	at := time.Now()
	event := NewSessionEvent(EventIntegrityViolation, IntegrityEvent{AssignmentID: 1, Exits: 1}, at)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventSource, event.Source)
	assert.Equal(t, EventVersion, event.Version)
	assert.Equal(t, at, event.Timestamp)
	assert.NotEqual(t, event.ID, NewSessionEvent(EventIntegrityViolation, nil, at).ID)
}

func TestMockEventPublisher(t *testing.T) {
	m := NewMockEventPublisher(discardLogger())
	ctx := context.Background()

	require.NoError(t, m.PublishSessionEvent(ctx, NewSessionEvent(EventSessionStarted, nil, time.Now())))
	require.NoError(t, m.PublishSessionEvent(ctx, NewSessionEvent(EventSessionSubmitted, nil, time.Now())))

	assert.Len(t, m.GetPublishedEvents(), 2)
	assert.Len(t, m.EventsOfType(EventSessionSubmitted), 1)

	m.ClearEvents()
	assert.Empty(t, m.GetPublishedEvents())
}

func TestNopEventPublisher(t *testing.T) {
	var p EventPublisher = NewNopEventPublisher(discardLogger())

	assert.NoError(t, p.PublishSessionEvent(context.Background(), NewSessionEvent(EventSessionStarted, nil, time.Now())))
	assert.NoError(t, p.Close())
}
