package common

import (
	"time"

	"github.com/invopop/jsonschema"
)

// Duration wraps time.Duration so config files (YAML/JSON/TOML) can express
// it as a human-readable string ("1s", "500ms") instead of a raw integer
// count of nanoseconds.
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// JSONSchema describes Duration's wire representation to JSON-schema
// generators that reflect over config structs.
func (d Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Title:       "Duration",
		Description: "Duration expressed in units recognized by time.ParseDuration, e.g. \"300ms\", \"1m\", \"2h45m\".",
		Examples:    []any{"300ms", "1m", "2h45m"},
	}
}
