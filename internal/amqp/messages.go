package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeMessage announces a successful gateway write. Payload carries the
// entity JSON for inserts and updates and is empty for deletes.
type ChangeMessage struct {
	Tenant    string          `json:"tenant"`
	Entity    string          `json:"entity"`
	Op        string          `json:"op"`
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChangeMessage marshals v as the payload. A nil v leaves it empty.
func NewChangeMessage(tenant, entity, op, id string, v any) (*ChangeMessage, error) {
	msg := &ChangeMessage{
		Tenant:    tenant,
		Entity:    entity,
		Op:        op,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m *ChangeMessage) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s %s %s: empty payload", m.Op, m.Entity, m.ID)
	}
	return json.Unmarshal(m.Payload, v)
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Op == "" {
		return nil, fmt.Errorf("change message missing entity or op")
	}
	return &msg, nil
}
