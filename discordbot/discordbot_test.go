package discordbot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ds "policygen/main_backend/database_service"
)

type recorder struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (r *recorder) Send(channelID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, channelID+": "+content)
	return nil
}

func str(s string) *string { return &s }

func TestMessage(t *testing.T) {
	msg, ok := Message(ds.AppEvent{Table: "users", Action: "INSERT", Status: str("PENDING"), Username: str("alice"), Email: str("alice@example.com")})
	require.True(t, ok)
	assert.Contains(t, msg, "**alice**")
	assert.Contains(t, msg, "alice@example.com")

	msg, ok = Message(ds.AppEvent{Table: "documents", Action: "UPDATE", Status: str("PUBLISHED"), AppName: str("Acme")})
	require.True(t, ok)
	assert.Contains(t, msg, "**Acme**")

	for _, ev := range []ds.AppEvent{
		{Table: "users", Action: "UPDATE", Status: str("APPROVED")},
		{Table: "users", Action: "INSERT", Status: str("ADMIN")},
		{Table: "documents", Action: "UPDATE", Status: str("DRAFT")},
		{Table: "documents", Action: "UPDATE"},
	} {
		_, ok := Message(ev)
		assert.False(t, ok, ev)
	}
}

func TestRunForwardsUntilStreamCloses(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(rec, "chan-1", zerolog.Nop())

	events := make(chan ds.AppEvent, 3)
	events <- ds.AppEvent{Table: "users", Action: "INSERT", Status: str("PENDING"), Username: str("bob")}
	events <- ds.AppEvent{Table: "documents", Action: "UPDATE", Status: str("DRAFT")}
	events <- ds.AppEvent{Table: "documents", Action: "UPDATE", Status: str("PUBLISHED"), AppName: str("Acme")}
	close(events)

	require.NoError(t, n.Run(context.Background(), events, make(chan error)))
	require.Len(t, rec.sent, 2)
	assert.Contains(t, rec.sent[0], "chan-1: ")
	assert.Contains(t, rec.sent[0], "**bob**")
	assert.Contains(t, rec.sent[1], "**Acme**")
}

func TestRunSkipsFailedSends(t *testing.T) {
	rec := &recorder{fail: errors.New("discord unavailable")}
	n := NewNotifier(rec, "chan-1", zerolog.Nop())

	events := make(chan ds.AppEvent, 1)
	events <- ds.AppEvent{Table: "users", Action: "INSERT", Status: str("PENDING"), Username: str("bob")}
	close(events)

	assert.NoError(t, n.Run(context.Background(), events, nil))
}

func TestRunStopsOnStreamError(t *testing.T) {
	n := NewNotifier(&recorder{}, "chan-1", zerolog.Nop())
	errs := make(chan error, 1)
	errs <- errors.New("listen error: connection reset")

	err := n.Run(context.Background(), make(chan ds.AppEvent), errs)
	assert.EqualError(t, err, "listen error: connection reset")
}

func TestRunStopsOnCancel(t *testing.T) {
	n := NewNotifier(&recorder{}, "chan-1", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, n.Run(ctx, make(chan ds.AppEvent), nil))
}
