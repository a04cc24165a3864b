package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// EventHashInput mirrors an event's fields minus Hash — a separate
// record type, never a mutated copy of the event, so the self-reference
// break (hash excludes its own field) can't be fumbled by forgetting to
// clear a field.
type EventHashInput struct {
	ID             string
	Type           string
	SpaceID        string
	Timestamp      string
	SequenceNumber int64
	PreviousHash   *string
	Version        int
	Payload        map[string]any
}

// EventHash computes the lowercase-hex SHA-256 digest of in's
// canonical-serialized form.
func EventHash(in EventHashInput) (string, error) {
	var previousHash any
	if in.PreviousHash != nil {
		previousHash = *in.PreviousHash
	}

	obj := map[string]any{
		"id":              in.ID,
		"type":            in.Type,
		"space_id":        in.SpaceID,
		"timestamp":       in.Timestamp,
		"sequence_number": in.SequenceNumber,
		"previous_hash":   previousHash,
		"version":         in.Version,
		"payload":         in.Payload,
	}

	data, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("canon: event hash: %w", err)
	}
	return sha256Hex(data), nil
}

// StateHash computes the lowercase-hex SHA-256 digest of a snapshot's
// canonical-serialized state value.
func StateHash(state any) (string, error) {
	data, err := Marshal(state)
	if err != nil {
		return "", fmt.Errorf("canon: state hash: %w", err)
	}
	return sha256Hex(data), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
