// Package source enumerates a channel's videos and extracts caption tracks
// from the hosting platform.
package source

import (
	"context"
	"errors"

	"github.com/timmy/chanindex/internal/domain"
)

// ErrNoCaptions reports that a video has no caption track. It is a valid
// outcome, not a failure.
var ErrNoCaptions = errors.New("no caption track available")

// Candidate is one entry of a channel listing.
type Candidate struct {
	ID         string
	Title      string
	UploadDate string // as reported by the platform, may be empty or unparsable
	URL        string
}

// Lister pages through a channel's videos, newest first.
type Lister interface {
	// GetSourceID returns a stable identifier for logging.
	GetSourceID() string

	// FetchBatch fetches up to limit candidates starting at cursor.
	// Parameters:
	//   - ctx: context for cancellation.
	//   - platform: hosting platform of the channel.
	//   - channel: channel identifier on that platform.
	//   - cursor: pagination cursor or empty for the first page.
	//   - limit: maximum number of entries to fetch.
	// Returns:
	//   - items: raw listing entries, not yet filtered.
	//   - nextCursor: cursor for the next page or empty if done.
	//   - err: non-nil if listing fails.
	FetchBatch(ctx context.Context, platform domain.Platform, channel, cursor string, limit int) (items []Candidate, nextCursor string, err error)
}

// Extraction is the result of fetching one video's caption track.
type Extraction struct {
	Title      string
	UploadDate string
	Language   string
	Format     string // caption format of Data, e.g. srt
	Data       []byte
}

// Extractor fetches the best available caption track for a single video.
type Extractor interface {
	// Extract returns ErrNoCaptions when the video has no caption track.
	// The Extraction may then still carry the video's title and upload date.
	Extract(ctx context.Context, platform domain.Platform, videoID string) (*Extraction, error)
}
