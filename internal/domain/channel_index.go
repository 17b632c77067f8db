package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// VideoSummary is one manifest entry.
type VideoSummary struct {
	ID                  string
	Title               string
	Day                 int64
	Language            string
	TranscriptAvailable bool
}

// ChannelIndex is the per-channel manifest published as index.json.
//
// On the wire it is a positional array: [lastUpdatedDay, [[id, title, day, language(, 0)], ...]].
// A trailing literal 0 marks a video whose transcript is confirmed unavailable.
type ChannelIndex struct {
	LastUpdated int64
	Videos      []VideoSummary
}

// SavedVideo is the metadata remembered for a video from a previous run.
type SavedVideo struct {
	Day      int64
	Language string
	// Unavailable marks an entry published without a transcript; it is
	// due for another acquisition attempt.
	Unavailable bool
}

// Saved returns the id -> metadata map used to restore cached videos.
func (c *ChannelIndex) Saved() map[string]SavedVideo {
	saved := make(map[string]SavedVideo)
	if c == nil {
		return saved
	}
	for _, v := range c.Videos {
		saved[v.ID] = SavedVideo{Day: v.Day, Language: v.Language, Unavailable: !v.TranscriptAvailable}
	}
	return saved
}

// MarshalJSON encodes the manifest in its positional form without HTML escaping,
// so titles keep their literal characters.
func (c ChannelIndex) MarshalJSON() ([]byte, error) {
	entries := make([][]any, 0, len(c.Videos))
	for _, v := range c.Videos {
		entry := []any{v.ID, v.Title, v.Day, v.Language}
		if !v.TranscriptAvailable {
			entry = append(entry, 0)
		}
		entries = append(entries, entry)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{c.LastUpdated, entries}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the positional manifest. Entries written before the
// language column existed default to "en".
func (c *ChannelIndex) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("index: expected 2 elements, got %d", len(raw))
	}

	var lastUpdated json.Number
	if err := json.Unmarshal(raw[0], &lastUpdated); err != nil {
		return fmt.Errorf("index: last updated: %w", err)
	}
	updated, err := lastUpdated.Int64()
	if err != nil {
		return fmt.Errorf("index: last updated: %w", err)
	}

	var entries [][]json.RawMessage
	if err := json.Unmarshal(raw[1], &entries); err != nil {
		return fmt.Errorf("index: videos: %w", err)
	}

	videos := make([]VideoSummary, 0, len(entries))
	for i, entry := range entries {
		v, err := decodeSummary(entry)
		if err != nil {
			return fmt.Errorf("index: video %d: %w", i, err)
		}
		videos = append(videos, v)
	}

	c.LastUpdated = updated
	c.Videos = videos
	return nil
}

func decodeSummary(entry []json.RawMessage) (VideoSummary, error) {
	if len(entry) < 3 {
		return VideoSummary{}, fmt.Errorf("expected at least 3 fields, got %d", len(entry))
	}
	v := VideoSummary{Language: "en", TranscriptAvailable: true}
	if err := json.Unmarshal(entry[0], &v.ID); err != nil {
		return v, fmt.Errorf("id: %w", err)
	}
	if err := json.Unmarshal(entry[1], &v.Title); err != nil {
		return v, fmt.Errorf("title: %w", err)
	}
	var day json.Number
	if err := json.Unmarshal(entry[2], &day); err != nil {
		return v, fmt.Errorf("day: %w", err)
	}
	d, err := day.Float64()
	if err != nil {
		return v, fmt.Errorf("day: %w", err)
	}
	v.Day = int64(d)
	if len(entry) > 3 {
		if err := json.Unmarshal(entry[3], &v.Language); err != nil {
			return v, fmt.Errorf("language: %w", err)
		}
	}
	if len(entry) > 4 {
		var flag json.Number
		if err := json.Unmarshal(entry[4], &flag); err == nil && flag.String() == "0" {
			v.TranscriptAvailable = false
		}
	}
	return v, nil
}
