package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Snapshot is an immutable copy of the status fields of one successful
// poll. The zero value is an empty snapshot.
type Snapshot struct {
	values    map[string]interface{}
	fetchedAt time.Time
}

func newSnapshot(values map[string]interface{}, fetchedAt time.Time) Snapshot {
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{values: copied, fetchedAt: fetchedAt}
}

func (s Snapshot) Empty() bool {
	return len(s.values) == 0
}

func (s Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

func (s Snapshot) Get(key string) (interface{}, bool) {
	v, ok := s.values[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String renders the value of key as text.
func (s Snapshot) String(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// Float returns the value of key as a number. Numeric strings are accepted,
// a trailing unit separated by a space is ignored.
func (s Snapshot) Float(key string) (float64, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	return parseFloat(v)
}

// Values returns a copy of all fields.
func (s Snapshot) Values() map[string]interface{} {
	copied := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		copied[k] = v
	}
	return copied
}

func parseFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		val = strings.TrimSpace(val)
		if val == "" || val == "N/A" || val == "null" {
			return 0, false
		}
		val = strings.Split(val, " ")[0]
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
