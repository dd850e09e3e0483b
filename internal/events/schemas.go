package events

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPayload reports a payload that does not match its JSON schema.
var ErrInvalidPayload = errors.New("payload does not match schema")

const participantSignedUpSchema = `{
  "type": "object",
  "title": "ParticipantSignedUp",
  "properties": {
    "event_id": {"type": "string"},
    "activity_name": {"type": "string"},
    "email": {"type": "string"},
    "roster_size": {"type": "integer"},
    "max_participants": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "activity_name", "email", "roster_size", "max_participants", "occurred_at"],
  "additionalProperties": false
}`

var compiledSignupSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(participantSignedUpSchema))
})

// ValidateParticipantSignedUp checks payload against the schema registered for
// signup events.
func ValidateParticipantSignedUp(payload []byte) error {
	schema, err := compiledSignupSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(problems, "; "))
	}
	return nil
}
