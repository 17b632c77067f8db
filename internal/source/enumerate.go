package source

import (
	"context"
	"iter"

	"github.com/timmy/chanindex/internal/domain"
)

// DefaultBatchSize is the listing page size used when none is configured.
const DefaultBatchSize = 50

// Enumerate returns a lazy sequence of the channel's single-video entries in
// listing order. Pages are only fetched as the caller consumes the sequence,
// and every range over the result starts again from the first page.
// A listing error is yielded once and ends the sequence.
func Enumerate(ctx context.Context, l Lister, platform domain.Platform, channel string, batchSize int) iter.Seq2[Candidate, error] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return func(yield func(Candidate, error) bool) {
		seen := make(map[string]struct{})
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(Candidate{}, err)
				return
			}
			items, next, err := l.FetchBatch(ctx, platform, channel, cursor, batchSize)
			if err != nil {
				yield(Candidate{}, err)
				return
			}
			for _, item := range items {
				if item.ID == "" || !platform.IsCanonicalVideoURL(item.URL) {
					continue
				}
				if _, dup := seen[item.ID]; dup {
					continue
				}
				seen[item.ID] = struct{}{}
				if !yield(item, nil) {
					return
				}
			}
			if next == "" || next == cursor {
				return
			}
			cursor = next
		}
	}
}
