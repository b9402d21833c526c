package utils

import (
	"encoding/json"
)

// MarshalToJSON renders a snapshot for the audit trail; nil becomes "".
func MarshalToJSON[T any](input T) (string, error) {
	if any(input) == nil {
		return "", nil
	}
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}
