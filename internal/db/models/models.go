// Package models defines the persisted entities of the control plane
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing API call
	DefaultLimit = 50
)

// ListOptions represents pagination options for list operations
type ListOptions struct {
	Limit  int `json:"limit"`  // Number of items to return
	Offset int `json:"offset"` // Number of items to skip
}

// JSONMap is an opaque map persisted as a jsonb column
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}

	var temp map[string]interface{}
	if err := json.Unmarshal(bytes, &temp); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB map: %w", err)
	}

	*m = temp
	return nil
}

// String returns the string value stored under key, or the empty string when
// absent or not a string
func (m JSONMap) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Uint returns the numeric value stored under key as a uint. JSON numbers
// arrive as float64 after a round-trip through the database.
func (m JSONMap) Uint(key string) uint {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		if v < 0 {
			return 0
		}
		return uint(v)
	case int:
		if v < 0 {
			return 0
		}
		return uint(v)
	case uint:
		return v
	case int64:
		if v < 0 {
			return 0
		}
		return uint(v)
	default:
		return 0
	}
}
