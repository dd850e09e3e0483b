package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"example.com/extracurricular/internal/events"
)

func TestAuditHandlerInsertsSignup(t *testing.T) {
	db := &stubExecer{}
	handler := NewAuditHandler(db)

	occurred := time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)
	err := handler.Handle(context.Background(), Message{
		Topic:         "roster_events",
		Partition:     1,
		Offset:        7,
		EventType:     events.EventTypeParticipantSignedUp,
		SchemaSubject: "roster_events-value",
		SchemaID:      3,
		Payload:       []byte(`{"event_id":"evt-9","activity_name":"Tennis","email":"bob@mergington.edu","roster_size":2,"max_participants":8,"occurred_at":"2025-09-01T08:00:00Z"}`),
	})
	require.NoError(t, err)

	require.Equal(t, 1, db.calls)
	require.Contains(t, db.sql, "INSERT INTO signup_audit")
	require.Equal(t, "evt-9", db.args[0])
	require.Equal(t, "Tennis", db.args[2])
	require.Equal(t, "bob@mergington.edu", db.args[3])
	require.Equal(t, 2, db.args[4])
	require.Equal(t, int64(7), db.args[9])
	require.True(t, occurred.Equal(db.args[10].(time.Time)))
}

func TestAuditHandlerIgnoresOtherEvents(t *testing.T) {
	db := &stubExecer{}
	require.NoError(t, NewAuditHandler(db).Handle(context.Background(), Message{EventType: "activity.renamed"}))
	require.Zero(t, db.calls)
}

func TestAuditHandlerReportsErrors(t *testing.T) {
	t.Run("schema mismatch", func(t *testing.T) {
		db := &stubExecer{}
		err := NewAuditHandler(db).Handle(context.Background(), Message{
			EventType: events.EventTypeParticipantSignedUp,
			Payload:   []byte(`[]`),
		})
		require.ErrorIs(t, err, events.ErrInvalidPayload)
		require.Zero(t, db.calls)
	})

	t.Run("database", func(t *testing.T) {
		db := &stubExecer{err: errors.New("relation does not exist")}
		err := NewAuditHandler(db).Handle(context.Background(), Message{
			EventType: events.EventTypeParticipantSignedUp,
			Payload:   []byte(`{"event_id":"evt-1","activity_name":"Tennis","email":"bob@mergington.edu","roster_size":2,"max_participants":8,"occurred_at":"2025-09-01T08:00:00Z"}`),
		})
		require.ErrorContains(t, err, "relation does not exist")
	})
}

type stubExecer struct {
	calls int
	sql   string
	args  []any
	err   error
}

func (s *stubExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.calls++
	s.sql = sql
	s.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), s.err
}
