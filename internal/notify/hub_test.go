package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-counselor/internal/model"
)

func TestHubDeliversOnlyToOwner(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := hub.Subscribe(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, hub.Publish(model.SessionEvent{Type: model.SessionEventCreated, UserID: 2, SessionID: 20}))
	require.NoError(t, hub.Publish(model.SessionEvent{Type: model.SessionEventRenamed, UserID: 1, SessionID: 10, Title: "Career Switch Talk"}))

	select {
	case got := <-events:
		assert.Equal(t, model.SessionEventRenamed, got.Type)
		assert.Equal(t, uint(10), got.SessionID)
		assert.Equal(t, "Career Switch Talk", got.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case got := <-events:
		t.Fatalf("unexpected event %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubSubscriptionEndsWithContext(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := hub.Subscribe(ctx, 1)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}
