package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotJSON is returned by Normalize for bodies that are not JSON.
var ErrNotJSON = errors.New("backend body is not JSON")

var emptyObject = []byte("{}")

// Normalize strips the backend's {"data": T, ...} envelope. Bodies without a
// "data" key pass through unchanged and an empty body becomes {}.
func Normalize(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return emptyObject, nil
	}
	if !json.Valid(trimmed) {
		return nil, ErrNotJSON
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, ErrNotJSON
	}
	data, ok := envelope["data"]
	if !ok {
		return trimmed, nil
	}
	return data, nil
}

// Decode parses a possibly wrapped body into out.
func Decode(body []byte, out any) error {
	normalized, err := Normalize(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, out)
}
