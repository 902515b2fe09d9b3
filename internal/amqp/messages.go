package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

var ErrInvalidMessage = errors.New("invalid conversion message")

// ConversionMessage carries one conversion request. The worker re-reads the
// draft when applying the result, so the message only needs the item key,
// its revision and the amount to convert.
type ConversionMessage struct {
	MessageID string                 `json:"messageId"`
	Request   core.ConversionRequest `json:"request"`
	Timestamp time.Time              `json:"timestamp"`
}

func NewConversionMessage(req core.ConversionRequest) *ConversionMessage {
	return &ConversionMessage{
		MessageID: uuid.NewString(),
		Request:   req,
		Timestamp: time.Now(),
	}
}

func (m *ConversionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ConversionMessageFromJSON decodes and validates a message body.
func ConversionMessageFromJSON(data []byte) (*ConversionMessage, error) {
	var msg ConversionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	r := msg.Request
	switch {
	case r.DraftID == "":
		return nil, fmt.Errorf("%w: missing draft id", ErrInvalidMessage)
	case r.ItemID == "":
		return nil, fmt.Errorf("%w: missing item id", ErrInvalidMessage)
	case r.Revision <= 0:
		return nil, fmt.Errorf("%w: revision %d", ErrInvalidMessage, r.Revision)
	case r.Currency == "":
		return nil, fmt.Errorf("%w: missing currency", ErrInvalidMessage)
	}
	if _, err := core.ParseCategory(string(r.Category)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &msg, nil
}
