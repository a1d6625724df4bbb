package utils

import (
	"encoding/json"
	"fmt"
)

// MergeJSON shallow-merges the top-level fields of patch over base. A nil or
// empty base yields patch.
func MergeJSON(base, patch json.RawMessage) (json.RawMessage, error) {
	if len(base) == 0 {
		return patch, nil
	}
	if len(patch) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, fmt.Errorf("failed to decode base object: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode patch object: %w", err)
	}
	if merged == nil {
		merged = make(map[string]json.RawMessage, len(fields))
	}
	for k, v := range fields {
		merged[k] = v
	}

	return json.Marshal(merged)
}

// WithID sets the "id" field of a JSON object
func WithID(data json.RawMessage, id string) (json.RawMessage, error) {
	idJSON, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	return MergeJSON(data, idJSON)
}
