// Package transcript converts caption tracks into time-aligned lines and
// stores them in the per-video transcript file format.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/timmy/chanindex/internal/domain"
)

// Parser turns one raw caption track into lines.
type Parser interface {
	Parse(data []byte) ([]domain.Line, error)
}

// NewParser returns the adapter for a caption format: srt, vtt or json3.
func NewParser(format string) (Parser, error) {
	switch strings.ToLower(format) {
	case "srt":
		return astisubParser{read: astisub.ReadFromSRT}, nil
	case "vtt", "webvtt":
		return astisubParser{read: astisub.ReadFromWebVTT}, nil
	case "json3":
		return json3Parser{}, nil
	default:
		return nil, fmt.Errorf("unsupported caption format %q", format)
	}
}

type astisubParser struct {
	read func(io.Reader) (*astisub.Subtitles, error)
}

func (p astisubParser) Parse(data []byte) ([]domain.Line, error) {
	subs, err := p.read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse captions: %w", err)
	}

	lines := make([]domain.Line, 0, len(subs.Items))
	for _, item := range subs.Items {
		parts := make([]string, 0, len(item.Lines))
		for _, l := range item.Lines {
			if s := strings.TrimSpace(l.String()); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			continue
		}
		lines = append(lines, domain.Line{
			Start:    item.StartAt.Seconds(),
			Duration: (item.EndAt - item.StartAt).Seconds(),
			Text:     strings.Join(parts, " "),
		})
	}
	return lines, nil
}

// json3Parser reads YouTube's timed-text JSON format.
type json3Parser struct{}

type json3Doc struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (json3Parser) Parse(data []byte) ([]domain.Line, error) {
	var doc json3Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json3 captions: %w", err)
	}

	var lines []domain.Line
	for _, ev := range doc.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.Join(strings.Fields(sb.String()), " ")
		if text == "" {
			continue
		}
		lines = append(lines, domain.Line{
			Start:    float64(ev.StartMs) / 1000,
			Duration: float64(ev.DurationMs) / 1000,
			Text:     text,
		})
	}
	return lines, nil
}
