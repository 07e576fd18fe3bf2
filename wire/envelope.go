package wire

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var envelopeJSON = []byte(`{"isConfirmation":false}`)

// Envelope is the message exchanged between peer messengers. The payload is
// carried as a JSON-encoded string so the transport only ever sees string
// scalars, regardless of what the application put in.
type Envelope struct {
	Type           string
	Name           string
	Data           string
	IsConfirmation bool
	ConfirmationID string
	SentAt         strfmt.DateTime
}

// New builds an envelope for the given (already namespaced) event type,
// encoding the payload. A nil payload encodes as JSON null.
func New(eventType, sender string, payload any) (Envelope, error) {
	if eventType == "" {
		return Envelope{}, errors.New("event type is required")
	}
	data, err := EncodePayload(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:   eventType,
		Name:   sender,
		Data:   data,
		SentAt: strfmt.DateTime(time.Now().UTC()),
	}, nil
}

// EncodePayload serializes an arbitrary JSON-representable value to its
// string form for the Data field.
func EncodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(b), nil
}

// Payload parses the Data field back into structured form.
func (e Envelope) Payload() gjson.Result {
	return gjson.Parse(e.Data)
}

// MarshalJSON implements custom JSON marshaling for Envelope
func (e Envelope) MarshalJSON() ([]byte, error) {
	result := envelopeJSON

	var err error
	result, err = sjson.SetBytes(result, "type", e.Type)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "name", e.Name)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "data", e.Data)
	if err != nil {
		return nil, err
	}

	if e.IsConfirmation {
		result, err = sjson.SetBytes(result, "isConfirmation", true)
		if err != nil {
			return nil, err
		}
	}

	if e.ConfirmationID != "" {
		result, err = sjson.SetBytes(result, "confirmationId", e.ConfirmationID)
		if err != nil {
			return nil, err
		}
	}

	if !e.SentAt.IsZero() {
		result, err = sjson.SetBytes(result, "sentAt", e.SentAt.String())
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Envelope
func (e *Envelope) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() == "" {
		return errors.New("missing required field 'type'")
	}
	e.Type = msgType.String()

	if name := gjson.GetBytes(data, "name"); name.Exists() {
		e.Name = name.String()
	}

	if payload := gjson.GetBytes(data, "data"); payload.Exists() {
		raw := payload.String()
		if !gjson.Valid(raw) {
			return fmt.Errorf("payload is not valid json: %s", raw)
		}
		e.Data = raw
	} else {
		e.Data = "null"
	}

	e.IsConfirmation = gjson.GetBytes(data, "isConfirmation").Bool()

	if id := gjson.GetBytes(data, "confirmationId"); id.Exists() {
		e.ConfirmationID = id.String()
	}

	if sentAt := gjson.GetBytes(data, "sentAt"); sentAt.Exists() {
		if err := e.SentAt.UnmarshalText([]byte(sentAt.String())); err != nil {
			return fmt.Errorf("invalid sentAt: %w", err)
		}
	}

	return nil
}

// Decode parses a raw transport message into an envelope. Callers drop the
// message on error, the transport is shared and foreign traffic is expected.
func Decode(raw []byte) (Envelope, error) {
	var e Envelope
	if err := e.UnmarshalJSON(raw); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
