package kafka

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoRow is returned for change events without an after image, such as deletes and tombstones.
	ErrNoRow = errors.New("ledger/kafka: message carries no row")

	// ErrInvalidRow is returned when a row lacks its event name or payload.
	ErrInvalidRow = errors.New("ledger/kafka: invalid event row")
)

// Row is one row of the events table as it travels through Kafka.
//
// Data is either a JSON string holding the base64 encoded column, which is
// how CDC connectors render BYTEA, or an inline JSON object.
type Row struct {
	UUID          string          `json:"uuid"`
	AggregateUUID string          `json:"aggregate_uuid"`
	Position      uint64          `json:"position,omitempty"`
	Name          string          `json:"name"`
	Data          json.RawMessage `json:"data"`
}

// changeEvent covers a Debezium change event with and without the schema wrapper.
type changeEvent struct {
	Payload *struct {
		After json.RawMessage `json:"after"`
		Op    string          `json:"op"`
	} `json:"payload"`
	After json.RawMessage `json:"after"`
	Op    string          `json:"op"`
}

// DecodeRow extracts the row from a message value. Accepted shapes:
// {"payload":{"after":{...}}}, {"after":{...}} and the bare row.
func DecodeRow(value []byte) (Row, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return Row{}, ErrNoRow
	}

	var change changeEvent
	if err := json.Unmarshal(value, &change); err != nil {
		return Row{}, fmt.Errorf("ledger/kafka: failed to decode message: %w", err)
	}

	raw := json.RawMessage(value)
	switch {
	case change.Payload != nil:
		raw = change.Payload.After
	case change.Op != "":
		raw = change.After
	}
	if isNull(raw) {
		return Row{}, ErrNoRow
	}

	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return Row{}, fmt.Errorf("ledger/kafka: failed to decode row: %w", err)
	}
	if row.Name == "" || isNull(row.Data) {
		return Row{}, ErrInvalidRow
	}
	return row, nil
}

// Payload returns the serialized event bytes held in Data.
// A string that is not valid base64 is taken as the payload text itself.
func (r Row) Payload() ([]byte, error) {
	data := bytes.TrimSpace(r.Data)
	if len(data) == 0 {
		return nil, ErrInvalidRow
	}
	if data[0] != '"' {
		return data, nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("ledger/kafka: failed to decode data: %w", err)
	}
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	return []byte(s), nil
}

// NewRow builds the row for a serialized payload. JSON objects are inlined;
// anything else is base64 encoded.
func NewRow(id, aggregateID string, position uint64, name string, payload []byte) (Row, error) {
	row := Row{
		UUID:          id,
		AggregateUUID: aggregateID,
		Position:      position,
		Name:          name,
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		row.Data = append(json.RawMessage(nil), trimmed...)
		return row, nil
	}

	encoded, err := json.Marshal(base64.StdEncoding.EncodeToString(payload))
	if err != nil {
		return Row{}, err
	}
	row.Data = encoded
	return row, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
