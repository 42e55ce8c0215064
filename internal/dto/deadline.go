package dto

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layouts accepted for deadlines in request bodies. Values without an offset
// are read in the server's local zone, like an HTML datetime-local input.
var deadlineLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Deadline is a request-side timestamp that also accepts the zone-less forms
// browsers send from date and datetime-local inputs.
type Deadline time.Time

func (d *Deadline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("deadline must be a string: %w", err)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*d = Deadline(t)
		return nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			*d = Deadline(t)
			return nil
		}
	}
	return fmt.Errorf("invalid deadline %q", s)
}

// Time returns the parsed value, or nil when the field was absent.
func (d *Deadline) Time() *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}
