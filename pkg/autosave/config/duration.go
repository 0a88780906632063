package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// duration is a time.Duration that unmarshals from either a Go duration
// string ("500ms", "3s") or a bare number of seconds.
type duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := node.Decode(&secs); err == nil {
		*d = duration(secs * float64(time.Second))
		return nil
	}
	return fmt.Errorf("invalid duration %q", node.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		*d = duration(secs * float64(time.Second))
		return nil
	}
	return fmt.Errorf("invalid duration %s", data)
}

func (d *duration) parse(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}
