// Package search builds the static full-text search bundle for a channel.
package search

import (
	"context"
)

// Record is one searchable document: a video and its transcript text.
type Record struct {
	ID       string
	Title    string
	Language string
	Date     string // sort key, YYYYMMDD
	Content  string
}

// Builder writes a search bundle for records into outDir.
type Builder interface {
	// Build returns the bundle files written, as slash-separated paths
	// relative to outDir. Any error means outDir must not be published.
	Build(ctx context.Context, records []Record, outDir string) ([]string, error)
}
