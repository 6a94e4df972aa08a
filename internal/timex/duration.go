// Package timex provides a JSON-friendly wrapper around time.Duration.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Duration unmarshals either a duration string ("15m", "900s") or a number
// of nanoseconds. It exists so JSON config files can express durations the
// human way.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}
