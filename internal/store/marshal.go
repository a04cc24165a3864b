package store

import (
	"encoding/json"
	"fmt"
)

// marshalPayload converts an event payload to JSON TEXT for storage.
// Storage uses plain encoding/json (not the canonical serializer):
// round-trip fidelity is all that's required here, not a stable hash
// input, since the hash is computed once at write time and stored
// alongside.
func marshalPayload(payload map[string]any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

func unmarshalPayload(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// marshalState converts a reducer-produced state value to JSON TEXT.
func marshalState(state any) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

func unmarshalState(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	var state any
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, nil
}
