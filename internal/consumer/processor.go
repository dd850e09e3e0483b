// Package consumer reads signup events back from Kafka for downstream processing.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/events"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a Kafka record emitted by the events publisher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *zap.Logger
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("fetch error", zap.Error(err))
			continue
		}

		p.process(ctx, msg)
	}
}

// process handles one record. Records that can never succeed (undecodable
// frames or payloads failing their schema) are committed and counted as
// rejected. Any other handler error leaves the record uncommitted; a later
// commit on the same partition still moves the group offset past it.
func (p *Processor) process(ctx context.Context, msg kafka.Message) {
	fields := []zap.Field{
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	}

	event, err := decodeMessage(msg)
	if err != nil {
		p.reject(ctx, msg, reasonDecode, append(fields, zap.Error(err)))
		return
	}

	if err := p.handler.Handle(ctx, event); err != nil {
		if errors.Is(err, events.ErrInvalidPayload) {
			p.reject(ctx, msg, reasonSchema, append(fields, zap.String("event_type", event.EventType), zap.Error(err)))
			return
		}
		p.logger.Error("handler error", append(fields, zap.String("event_type", event.EventType), zap.Error(err))...)
		recordHandlerError(event)
		return
	}

	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.Warn("commit error", append(fields, zap.Error(err))...)
		return
	}
	recordProcessed(event)
}

func (p *Processor) reject(ctx context.Context, msg kafka.Message, reason string, fields []zap.Field) {
	p.logger.Warn("rejected message", append(fields, zap.String("reason", reason))...)
	recordRejected(msg.Topic, reason)
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.Warn("commit error after rejection", zap.Error(err))
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	schemaID, payload, err := events.DecodeWireFormat(msg.Value)
	if err != nil {
		return Message{}, err
	}

	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	schemaSubject, _ := headerValue(msg, "schema_subject")

	if !json.Valid(payload) {
		return Message{}, fmt.Errorf("payload is not valid JSON")
	}

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		EventType:     string(eventType),
		SchemaSubject: string(schemaSubject),
		SchemaID:      schemaID,
		Payload:       payload,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
