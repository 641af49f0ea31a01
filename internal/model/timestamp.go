// internal/model/timestamp.go
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp keeps the raw JSON value of a date field. Older backups stored
// non-string values here, so the original bytes are preserved until repaired.
type Timestamp struct {
	raw json.RawMessage
}

// NewTimestamp formats t the way the GitHub API does.
func NewTimestamp(t time.Time) Timestamp {
	return TimestampFromString(t.UTC().Format(time.RFC3339))
}

// TimestampFromString wraps an already formatted date string.
func TimestampFromString(s string) Timestamp {
	b, _ := json.Marshal(s)
	return Timestamp{raw: b}
}

// RawTimestamp wraps an arbitrary JSON literal, e.g. `42` or `null`.
func RawTimestamp(literal string) Timestamp {
	return Timestamp{raw: json.RawMessage(literal)}
}

// IsString reports whether the stored value is a JSON string.
func (t Timestamp) IsString() bool {
	var s string
	return len(t.raw) > 0 && t.raw[0] == '"' && json.Unmarshal(t.raw, &s) == nil
}

// Valid reports whether the value is a string holding an RFC 3339 date.
func (t Timestamp) Valid() bool {
	_, err := t.Time()
	return err == nil
}

// Time parses the stored string.
func (t Timestamp) Time() (time.Time, error) {
	var s string
	if len(t.raw) == 0 || t.raw[0] != '"' {
		return time.Time{}, fmt.Errorf("timestamp is not a string: %s", t.Raw())
	}
	if err := json.Unmarshal(t.raw, &s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}

// String returns the date string, or the raw literal for malformed values.
func (t Timestamp) String() string {
	var s string
	if t.IsString() && json.Unmarshal(t.raw, &s) == nil {
		return s
	}
	return t.Raw()
}

// Raw returns the JSON literal as stored.
func (t Timestamp) Raw() string {
	if len(t.raw) == 0 {
		return "null"
	}
	return string(t.raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.raw = append(json.RawMessage(nil), bytes.TrimSpace(b)...)
	return nil
}
