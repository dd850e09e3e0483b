// Package events publishes roster changes to Kafka in Schema Registry wire format.
package events

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/extracurricular/internal/domain"
)

// EventTypeParticipantSignedUp labels signup events in the event_type header.
const EventTypeParticipantSignedUp = "participant.signed_up"

// ParticipantSignedUp is the payload emitted after a successful signup.
type ParticipantSignedUp struct {
	EventID         string    `json:"event_id"`
	ActivityName    string    `json:"activity_name"`
	Email           string    `json:"email"`
	RosterSize      int       `json:"roster_size"`
	MaxParticipants int       `json:"max_participants"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// Publisher implements domain.EventPublisher on top of Kafka.
type Publisher struct {
	producer      messageWriter
	registry      schemaRegistrar
	topic         string
	schemaIDCache sync.Map
}

// NewPublisher constructs a Publisher. A nil registry frames every payload with schema ID 0.
func NewPublisher(producer messageWriter, registry schemaRegistrar, topic string) *Publisher {
	return &Publisher{producer: producer, registry: registry, topic: topic}
}

// SchemaSubject returns the registry subject the publisher registers payloads under.
func (p *Publisher) SchemaSubject() string {
	return p.topic + "-value"
}

// ParticipantSignedUp implements domain.EventPublisher.
func (p *Publisher) ParticipantSignedUp(ctx context.Context, record domain.SignupRecord) error {
	payload, err := json.Marshal(ParticipantSignedUp{
		EventID:         uuid.NewString(),
		ActivityName:    record.ActivityName,
		Email:           record.Email,
		RosterSize:      record.RosterSize,
		MaxParticipants: record.MaxParticipants,
		OccurredAt:      record.SignedUpAt.UTC(),
	})
	if err != nil {
		return err
	}

	schemaID, err := p.schemaID(ctx)
	if err != nil {
		publishFailedCounter.Inc()
		return fmt.Errorf("resolve schema: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(record.ActivityName),
		Value: EncodeWireFormat(schemaID, payload),
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeParticipantSignedUp)},
			{Key: "schema_subject", Value: []byte(p.SchemaSubject())},
		},
	}
	if err := p.producer.WriteMessages(ctx, p.topic, msg); err != nil {
		publishFailedCounter.Inc()
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}
	publishedCounter.Inc()
	return nil
}

func (p *Publisher) schemaID(ctx context.Context) (int, error) {
	if p.registry == nil {
		return 0, nil
	}
	subject := p.SchemaSubject()
	if cached, ok := p.schemaIDCache.Load(subject); ok {
		return cached.(int), nil
	}
	id, err := p.registry.EnsureSchema(ctx, subject, participantSignedUpSchema)
	if err != nil {
		return 0, err
	}
	p.schemaIDCache.Store(subject, id)
	return id, nil
}

// EncodeWireFormat applies Confluent framing: a zero magic byte, the
// big-endian schema ID, then the payload.
func EncodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}

// DecodeWireFormat reverses EncodeWireFormat.
func DecodeWireFormat(frame []byte) (int, []byte, error) {
	if len(frame) < 5 {
		return 0, nil, fmt.Errorf("invalid payload length: %d", len(frame))
	}
	if frame[0] != 0 {
		return 0, nil, errors.New("unknown magic byte")
	}
	schemaID := int(binary.BigEndian.Uint32(frame[1:5]))
	return schemaID, append([]byte(nil), frame[5:]...), nil
}
