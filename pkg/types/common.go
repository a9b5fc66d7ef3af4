package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const NO_PAGINATION = 0

// Metadata is an open key-value mapping with no fixed schema. Stored as jsonb,
// validated only at the boundaries that need specific keys.
type Metadata json.RawMessage

func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return m, nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	*m = data
	return nil
}

// Scan implements the sql.Scanner interface.
func (m *Metadata) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		*m = Metadata(src)
		return nil
	case string:
		*m = Metadata(src)
		return nil
	case nil:
		return nil
	}
	return fmt.Errorf("pq: cannot convert %T to jsonb", src)
}

// Value implements the driver.Valuer interface.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return string(m), nil
}

// GetCurrentTimestamp 获取当前时间戳（便于测试时mock）
var GetCurrentTimestamp = func() int64 {
	return time.Now().Unix()
}
