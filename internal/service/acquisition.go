package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/logger"
	"github.com/timmy/chanindex/internal/source"
	"github.com/timmy/chanindex/internal/transcript"
	"golang.org/x/time/rate"
)

// AcquisitionConfig holds configuration for transcript acquisition
type AcquisitionConfig struct {
	// StopAtCached ends the scan at the first video whose transcript is
	// already on disk, assuming the listing is newest first. The scan still
	// runs on until every previously unavailable video has been retried.
	StopAtCached bool
	// RequestInterval is the minimum spacing between extraction calls.
	RequestInterval time.Duration
	BatchSize       int
}

// AcquisitionStats counts per-video outcomes of one run
type AcquisitionStats struct {
	Cached  int
	New     int
	Missing int
	Failed  int
}

// AcquisitionResult is the outcome of scanning one channel.
type AcquisitionResult struct {
	// Videos in listing order, each with its transcript status
	Videos []domain.Video
	// NewTranscripts lists the ids acquired this run
	NewTranscripts []string
	Stats          AcquisitionStats
	// StoppedAtCached is set when the scan ended early at a cached video
	StoppedAtCached bool
}

// HasNewTranscripts reports whether any transcript was acquired this run.
func (r *AcquisitionResult) HasNewTranscripts() bool {
	return len(r.NewTranscripts) > 0
}

// Acquisition enumerates a channel and fetches missing transcripts, one video
// at a time.
type Acquisition struct {
	lister    source.Lister
	extractor source.Extractor
	parser    transcript.Parser
	limiter   *rate.Limiter
	cfg       AcquisitionConfig
}

// NewAcquisition creates the acquisition stage.
// Parameters:
//   - lister: channel listing source.
//   - extractor: per-video caption extractor.
//   - parser: adapter for the extractor's caption format.
//   - cfg: scan policy and pacing.
//
// Returns:
//   - *Acquisition: ready to run.
func NewAcquisition(lister source.Lister, extractor source.Extractor, parser transcript.Parser, cfg AcquisitionConfig) *Acquisition {
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	return &Acquisition{
		lister:    lister,
		extractor: extractor,
		parser:    parser,
		limiter:   rate.NewLimiter(limit, 1),
		cfg:       cfg,
	}
}

// Run scans the channel and acquires every transcript not yet on disk.
//
// A video's failure never aborts the run: it is recorded as Missing or
// AcquisitionError and, since nothing is written for it, retried next run.
// Listing failures and context cancellation are returned as errors.
func (a *Acquisition) Run(ctx context.Context, platform domain.Platform, channel string, ws Workspace, saved map[string]domain.SavedVideo) (*AcquisitionResult, error) {
	ctx = logger.SetStage(ctx, "acquire")
	result := &AcquisitionResult{}
	start := time.Now()

	retry := make(map[string]struct{})
	for id, prev := range saved {
		if prev.Unavailable {
			retry[id] = struct{}{}
		}
	}

	for cand, err := range source.Enumerate(ctx, a.lister, platform, channel, a.cfg.BatchSize) {
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", channel, err)
		}

		video := domain.Video{ID: cand.ID, Title: cand.Title, UploadDate: cand.UploadDate}
		delete(retry, cand.ID)

		if ws.HasTranscript(cand.ID) {
			video.Status = domain.TranscriptCachedPresent
			if prev, ok := saved[cand.ID]; ok {
				video.UploadDate = domain.FormatDay(prev.Day)
				video.Language = prev.Language
			}
			result.Videos = append(result.Videos, video)
			result.Stats.Cached++
			if a.cfg.StopAtCached && len(retry) == 0 {
				result.StoppedAtCached = true
				logger.CtxInfo(ctx, "Reached cached video %s, stopping scan", cand.ID)
				break
			}
			continue
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := a.acquire(ctx, platform, ws, &video); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			video.Status = domain.TranscriptAcquisitionError
			logger.FromContext(ctx).WithField(logger.FieldVideoID, video.ID).WithError(err).Warn("Failed to acquire transcript")
		}

		switch video.Status {
		case domain.TranscriptNewlyAcquired:
			result.NewTranscripts = append(result.NewTranscripts, video.ID)
			result.Stats.New++
		case domain.TranscriptMissing:
			result.Stats.Missing++
		default:
			result.Stats.Failed++
		}
		result.Videos = append(result.Videos, video)
	}

	logger.With(logger.Fields{
		"cached":  result.Stats.Cached,
		"new":     result.Stats.New,
		"missing": result.Stats.Missing,
		"failed":  result.Stats.Failed,
	}).WithCount(len(result.Videos)).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Transcript acquisition finished")

	return result, nil
}

// acquire fetches and stores one transcript, setting the video's status,
// language and upload date. Missing captions are not an error.
func (a *Acquisition) acquire(ctx context.Context, platform domain.Platform, ws Workspace, video *domain.Video) error {
	ext, err := a.extractor.Extract(ctx, platform, video.ID)
	if ext != nil {
		if ext.UploadDate != "" {
			video.UploadDate = ext.UploadDate
		}
		if video.Title == "" {
			video.Title = ext.Title
		}
	}
	if errors.Is(err, source.ErrNoCaptions) {
		video.Status = domain.TranscriptMissing
		logger.FromContext(ctx).WithField(logger.FieldVideoID, video.ID).Info("No transcript available")
		return nil
	}
	if err != nil {
		return err
	}

	lines, err := a.parser.Parse(ext.Data)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		video.Status = domain.TranscriptMissing
		logger.FromContext(ctx).WithField(logger.FieldVideoID, video.ID).Info("Transcript track is empty")
		return nil
	}

	if err := transcript.WriteFile(ws.TranscriptPath(video.ID), lines); err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}
	video.Language = ext.Language
	video.Status = domain.TranscriptNewlyAcquired
	logger.With(logger.Fields{logger.FieldVideoID: video.ID, "language": ext.Language}).
		WithCount(len(lines)).Info(ctx, "Downloaded transcript")
	return nil
}
