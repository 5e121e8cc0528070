// Package knowledge resolves condition identities against the descriptive
// knowledge store.
package knowledge

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList stores an ordered list of strings as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// ConditionRecord is a knowledge store entry describing one skin condition.
// IDs are lowercase canonical identity keys.
type ConditionRecord struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	Title       string     `gorm:"size:255" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Symptoms    StringList `gorm:"type:jsonb" json:"symptoms"`
}

// TableName overrides the default table name.
func (ConditionRecord) TableName() string {
	return "skin_conditions"
}
