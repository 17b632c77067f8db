package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/timmy/chanindex/internal/archive"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/logger"
	"github.com/timmy/chanindex/internal/search"
	"github.com/timmy/chanindex/internal/transcript"
)

// defaultLanguage is assumed for videos whose caption language is unknown.
const defaultLanguage = "en"

// ArtifactBuilder turns acquisition results into the channel manifest,
// the search bundle and the transcript archive.
type ArtifactBuilder struct {
	search search.Builder
	now    func() time.Time
}

// NewArtifactBuilder creates a builder. A nil search builder disables bundles.
func NewArtifactBuilder(sb search.Builder) *ArtifactBuilder {
	return &ArtifactBuilder{search: sb, now: time.Now}
}

// MergeIndex builds the new manifest from this run's videos.
//
// Each video's day is its own upload date, or the previous video's resolved
// day when its date is unparsable; the first video falls back to today.
// Entries of old that this run did not list (e.g. older videos skipped by an
// early stop) are kept after the listed ones, in their previous order.
// When the resulting entries equal old's, old's last-updated day is kept, so
// a run that found nothing new reproduces the manifest byte for byte.
func (b *ArtifactBuilder) MergeIndex(old *domain.ChannelIndex, videos []domain.Video) *domain.ChannelIndex {
	today := domain.DayOf(b.now())
	merged := &domain.ChannelIndex{
		LastUpdated: today,
		Videos:      make([]domain.VideoSummary, 0, len(videos)),
	}

	listed := make(map[string]struct{}, len(videos))
	prevDay := today
	for _, v := range videos {
		if _, dup := listed[v.ID]; dup {
			continue
		}
		listed[v.ID] = struct{}{}

		day := prevDay
		if t, ok := domain.ParseUploadDate(v.UploadDate); ok {
			day = domain.DayOf(t)
		}
		prevDay = day

		lang := v.Language
		if lang == "" {
			lang = defaultLanguage
		}
		merged.Videos = append(merged.Videos, domain.VideoSummary{
			ID:                  v.ID,
			Title:               v.Title,
			Day:                 day,
			Language:            lang,
			TranscriptAvailable: v.TranscriptAvailable(),
		})
	}

	if old != nil {
		for _, prev := range old.Videos {
			if _, ok := listed[prev.ID]; ok {
				continue
			}
			listed[prev.ID] = struct{}{}
			merged.Videos = append(merged.Videos, prev)
		}
		if slices.Equal(merged.Videos, old.Videos) {
			merged.LastUpdated = old.LastUpdated
		}
	}
	return merged
}

// WriteIndex stores the manifest in the workspace.
func (b *ArtifactBuilder) WriteIndex(ws Workspace, index *domain.ChannelIndex) error {
	data, err := index.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := transcript.WriteAtomic(ws.IndexPath(), data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// BuildSearchBundle indexes the transcript of every manifest entry that has
// one on disk. It returns the bundle files relative to the workspace bundle
// dir, or none when there is nothing to index. Any error is fatal to the job.
func (b *ArtifactBuilder) BuildSearchBundle(ctx context.Context, ws Workspace, index *domain.ChannelIndex) ([]string, error) {
	if b.search == nil {
		return nil, nil
	}
	ctx = logger.SetStage(ctx, "search")
	start := time.Now()

	var records []search.Record
	for _, v := range index.Videos {
		if !v.TranscriptAvailable {
			continue
		}
		lines, err := transcript.ReadFile(ws.TranscriptPath(v.ID))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read transcript %s: %w", v.ID, err)
		}
		records = append(records, search.Record{
			ID:       v.ID,
			Title:    v.Title,
			Language: v.Language,
			Date:     domain.FormatDay(v.Day),
			Content:  transcript.Text(lines),
		})
	}
	if len(records) == 0 {
		logger.CtxInfo(ctx, "No transcripts to index")
		return nil, nil
	}

	files, err := b.search.Build(ctx, records, ws.SearchBundleDir())
	if err != nil {
		_ = os.RemoveAll(ws.SearchBundleDir())
		return nil, err
	}

	logger.With(logger.Fields{"records": len(records)}).WithCount(len(files)).
		WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Search bundle built")
	return files, nil
}

// ArchiveTranscripts zips the workspace's current transcript files.
func (b *ArtifactBuilder) ArchiveTranscripts(ctx context.Context, ws Workspace) error {
	n, err := archive.ZipDir(ws.TranscriptsDir(), transcript.FileExt, ws.ArchivePath())
	if err != nil {
		return fmt.Errorf("archive transcripts: %w", err)
	}
	logger.With(logger.Fields{logger.FieldStage: "archive"}).WithCount(n).Info(ctx, "Transcripts archived")
	return nil
}
