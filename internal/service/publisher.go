package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/logger"
	"github.com/timmy/chanindex/internal/purge"
	"github.com/timmy/chanindex/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Artifacts describes what a run produced in its workspace besides the
// manifest, which is always published.
type Artifacts struct {
	// NewTranscripts are uploaded one object per video
	NewTranscripts []string
	// Archive publishes the workspace transcripts.zip
	Archive bool
	// BundleFiles are search bundle paths relative to the bundle dir
	BundleFiles []string
}

// PublishStats counts uploaded objects
type PublishStats struct {
	Transcripts int
	BundleFiles int
	Archive     bool
}

// Publisher uploads a channel's artifacts and purges cached copies.
type Publisher struct {
	store       storage.ObjectStorage
	purger      purge.Purger
	concurrency int
}

// NewPublisher creates a publisher. A nil purger disables cache purging.
func NewPublisher(store storage.ObjectStorage, purger purge.Purger, concurrency int) *Publisher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Publisher{store: store, purger: purger, concurrency: concurrency}
}

// Publish uploads the per-video transcripts, the archive and the search
// bundle when present, and the manifest last, so a published manifest never
// lists a transcript that is not yet reachable. Upload errors fail the
// publish; purge errors are only logged.
func (p *Publisher) Publish(ctx context.Context, platform domain.Platform, channel string, ws Workspace, art Artifacts) (*PublishStats, error) {
	ctx = logger.SetStage(ctx, "publish")
	start := time.Now()
	stats := &PublishStats{}

	for _, id := range art.NewTranscripts {
		key := domain.TranscriptKey(platform, channel, id)
		if err := storage.UploadFile(ctx, p.store, key, ws.TranscriptPath(id)); err != nil {
			return stats, fmt.Errorf("upload transcript %s: %w", id, err)
		}
		stats.Transcripts++
	}

	if art.Archive {
		if err := storage.UploadFile(ctx, p.store, domain.ArchiveKey(platform, channel), ws.ArchivePath()); err != nil {
			return stats, fmt.Errorf("upload archive: %w", err)
		}
		stats.Archive = true
	}

	if len(art.BundleFiles) > 0 {
		if err := p.uploadBundle(ctx, platform, channel, ws, art.BundleFiles); err != nil {
			return stats, err
		}
		stats.BundleFiles = len(art.BundleFiles)
	}

	if err := storage.UploadFile(ctx, p.store, domain.IndexKey(platform, channel), ws.IndexPath()); err != nil {
		return stats, fmt.Errorf("upload index: %w", err)
	}

	logger.With(logger.Fields{
		"transcripts":  stats.Transcripts,
		"bundle_files": stats.BundleFiles,
		"archive":      stats.Archive,
	}).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Artifacts published")

	p.purge(ctx, platform, channel, stats)
	return stats, nil
}

func (p *Publisher) uploadBundle(ctx context.Context, platform domain.Platform, channel string, ws Workspace, files []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, rel := range files {
		g.Go(func() error {
			key := domain.SearchBundleKey(platform, channel, rel)
			if err := storage.UploadFile(gctx, p.store, key, filepath.Join(ws.SearchBundleDir(), filepath.FromSlash(rel))); err != nil {
				return fmt.Errorf("upload search bundle file %s: %w", rel, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// purge invalidates the fixed-name objects; content-addressed bundle files
// need no purge.
func (p *Publisher) purge(ctx context.Context, platform domain.Platform, channel string, stats *PublishStats) {
	if p.purger == nil {
		return
	}
	urls := []string{p.store.GetURL(domain.IndexKey(platform, channel))}
	if stats.Archive {
		urls = append(urls, p.store.GetURL(domain.ArchiveKey(platform, channel)))
	}
	if stats.BundleFiles > 0 {
		urls = append(urls, p.store.GetURL(domain.SearchBundleKey(platform, channel, domain.SearchEntryFileName)))
	}
	if err := p.purger.Purge(ctx, urls); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Cache purge failed")
		return
	}
	logger.With(logger.Fields{}).WithCount(len(urls)).Debug(ctx, "Cache purged")
}
