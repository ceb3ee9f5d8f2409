package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB stores arbitrary JSON in a jsonb column
type JSONB map[string]any

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value any) error {
	if value == nil {
		*j = JSONB{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONB: %T", value)
	}
	return json.Unmarshal(data, j)
}
