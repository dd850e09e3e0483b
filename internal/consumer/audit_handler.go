package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"example.com/extracurricular/internal/events"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditHandler records every signup event in the signup_audit table.
// Redelivered events are ignored thanks to the unique event_id.
type AuditHandler struct {
	db execer
}

// NewAuditHandler constructs a handler backed by db, typically a *pgxpool.Pool.
func NewAuditHandler(db execer) *AuditHandler {
	return &AuditHandler{db: db}
}

// Handle implements Handler. Event types other than signups are skipped.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.EventTypeParticipantSignedUp {
		return nil
	}

	if err := events.ValidateParticipantSignedUp(msg.Payload); err != nil {
		return err
	}

	var event events.ParticipantSignedUp
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
	}

	_, err := h.db.Exec(ctx,
		`INSERT INTO signup_audit (event_id, event_type, activity_name, email, roster_size, schema_id, schema_subject, topic, partition, record_offset, occurred_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
         ON CONFLICT (event_id) DO NOTHING`,
		event.EventID,
		msg.EventType,
		event.ActivityName,
		event.Email,
		event.RosterSize,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		event.OccurredAt,
	)
	return err
}
