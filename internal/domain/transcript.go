package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Line is one time-aligned caption line. It is stored as a [start, duration, text] triple.
type Line struct {
	Start    float64
	Duration float64
	Text     string
}

// MarshalJSON encodes the line as a positional triple with millisecond precision.
func (l Line) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{roundMillis(l.Start), roundMillis(l.Duration), l.Text})
}

// UnmarshalJSON decodes a positional triple.
func (l *Line) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("transcript line: expected 3 fields, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &l.Start); err != nil {
		return fmt.Errorf("transcript line start: %w", err)
	}
	if err := json.Unmarshal(raw[1], &l.Duration); err != nil {
		return fmt.Errorf("transcript line duration: %w", err)
	}
	if err := json.Unmarshal(raw[2], &l.Text); err != nil {
		return fmt.Errorf("transcript line text: %w", err)
	}
	return nil
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}
