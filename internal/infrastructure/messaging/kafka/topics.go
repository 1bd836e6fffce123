// Package kafka carries the engine's event traffic: outbound lead-time
// alerts for the notification dispatcher, and inbound recompute requests
// fired when an administrator publishes a new rule version.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// Topic constants.
const (
	// TopicDeadlineAlert carries AlertSignal envelopes to the
	// notification-dispatch collaborator.
	TopicDeadlineAlert = "deadline.alert"

	// TopicDeadlineRecompute carries batch-recompute requests consumed by
	// the worker.
	TopicDeadlineRecompute = "deadline.recompute"
)

// EventEnvelope is the wire frame shared by all topics.
type EventEnvelope struct {
	ID        common.ID       `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEventEnvelope wraps payload in an envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding event payload")
	}
	return &EventEnvelope{
		ID:        common.NewID(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decoding event payload")
	}
	return nil
}

// Encode marshals the whole envelope.
func (e *EventEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding event envelope")
	}
	return data, nil
}

// DecodeEnvelope parses an envelope off the wire.
func DecodeEnvelope(data []byte) (*EventEnvelope, error) {
	var e EventEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding event envelope")
	}
	return &e, nil
}

// RecomputeRequest asks the worker to re-run stored deadlines against a rule
// version.  Zero selects the active version at processing time.
type RecomputeRequest struct {
	RuleVersion int    `json:"rule_version"`
	RequestedBy string `json:"requested_by,omitempty"`
}
