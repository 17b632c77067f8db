package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/timmy/chanindex/internal/archive"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/logger"
	"github.com/timmy/chanindex/internal/storage"
)

// Mode selects how far one job run goes.
type Mode string

const (
	// ModeDownloadOnly stops after acquisition and leaves the job WaitingForIndex.
	ModeDownloadOnly Mode = "download-only"
	// ModeFull builds and publishes everything and completes the job.
	ModeFull Mode = "full"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDownloadOnly, ModeFull:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// JobStore is the part of the job queue the pipeline needs.
type JobStore interface {
	ClaimOldest(ctx context.Context, from, to domain.JobState) (*domain.Job, error)
	UpdateState(ctx context.Context, key domain.JobKey, state domain.JobState) (*domain.Job, error)
}

// IndexerConfig holds configuration for the channel indexer
type IndexerConfig struct {
	Mode       Mode
	ScratchDir string
}

// ChannelIndexer runs one claimed job through the pipeline:
// fetch prior index, fetch archive, enumerate and acquire, then either stop
// (download-only) or build and publish (full).
type ChannelIndexer struct {
	jobs        JobStore
	store       storage.ObjectStorage
	acquisition *Acquisition
	builder     *ArtifactBuilder
	publisher   *Publisher
	cfg         IndexerConfig
}

// NewChannelIndexer wires the pipeline stages.
func NewChannelIndexer(jobs JobStore, store storage.ObjectStorage, acq *Acquisition, builder *ArtifactBuilder, pub *Publisher, cfg IndexerConfig) *ChannelIndexer {
	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = "tmp"
	}
	return &ChannelIndexer{
		jobs:        jobs,
		store:       store,
		acquisition: acq,
		builder:     builder,
		publisher:   pub,
		cfg:         cfg,
	}
}

// Run processes a claimed job and records its final state. If processing
// fails the job is marked Failed; if that update fails too, the job stays
// Running and the error is only logged.
func (ix *ChannelIndexer) Run(ctx context.Context, job *domain.Job) error {
	ctx = logger.SetChannel(ctx, job.PlatformID.String(), job.ChannelID)
	ctx = logger.WithField(ctx, logger.FieldMode, string(ix.cfg.Mode))
	start := time.Now()

	final, err := ix.process(ctx, job)
	if err == nil {
		if _, err = ix.jobs.UpdateState(ctx, job.Key(), final); err != nil {
			err = fmt.Errorf("set job state %s: %w", final, err)
		}
	}
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Job failed")
		ix.markFailed(ctx, job)
		return err
	}

	logger.With(logger.Fields{}).WithStatus(final.String()).
		WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Job finished")
	return nil
}

func (ix *ChannelIndexer) markFailed(ctx context.Context, job *domain.Job) {
	// The job may already be cancelled; the failure must still be recorded.
	ctx = context.WithoutCancel(ctx)
	if _, err := ix.jobs.UpdateState(ctx, job.Key(), domain.JobStateFailed); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Could not mark job failed, it remains running")
	}
}

func (ix *ChannelIndexer) process(ctx context.Context, job *domain.Job) (domain.JobState, error) {
	platform, channel := job.PlatformID, job.ChannelID
	if err := domain.ValidateChannelID(channel); err != nil {
		return 0, err
	}
	ws := NewWorkspace(ix.cfg.ScratchDir, platform, channel)
	if err := ws.Reset(); err != nil {
		return 0, err
	}

	old, err := ix.fetchPriorIndex(ctx, platform, channel, ws)
	if err != nil {
		return 0, err
	}
	if err := ix.fetchArchive(ctx, platform, channel, ws); err != nil {
		return 0, err
	}

	acq, err := ix.acquisition.Run(ctx, platform, channel, ws, old.Saved())
	if err != nil {
		return 0, err
	}
	hadNew := acq.HasNewTranscripts()

	index := ix.builder.MergeIndex(old, acq.Videos)
	if err := ix.builder.WriteIndex(ws, index); err != nil {
		return 0, err
	}
	if hadNew {
		if err := ix.builder.ArchiveTranscripts(ctx, ws); err != nil {
			return 0, err
		}
	}

	art := Artifacts{NewTranscripts: acq.NewTranscripts, Archive: hadNew}
	final := domain.JobStateWaitingForIndex

	if ix.cfg.Mode == ModeFull {
		final = domain.JobStateComplete
		// A job left waiting by a download-only worker has new transcripts
		// that were never indexed.
		if hadNew || job.JobState == domain.JobStateWaitingForIndex {
			files, err := ix.builder.BuildSearchBundle(ctx, ws, index)
			if err != nil {
				return 0, fmt.Errorf("build search bundle: %w", err)
			}
			art.BundleFiles = files
		}
	}

	if _, err := ix.publisher.Publish(ctx, platform, channel, ws, art); err != nil {
		return 0, err
	}
	return final, nil
}

// fetchPriorIndex loads the published manifest; a missing one is an empty channel.
func (ix *ChannelIndexer) fetchPriorIndex(ctx context.Context, platform domain.Platform, channel string, ws Workspace) (*domain.ChannelIndex, error) {
	found, err := storage.DownloadFile(ctx, ix.store, domain.IndexKey(platform, channel), ws.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("fetch prior index: %w", err)
	}
	if !found {
		logger.CtxInfo(ctx, "No prior index, starting fresh")
		return nil, nil
	}

	data, err := os.ReadFile(ws.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("read prior index: %w", err)
	}
	var index domain.ChannelIndex
	if err := index.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode prior index: %w", err)
	}
	logger.With(logger.Fields{}).WithCount(len(index.Videos)).Info(ctx, "Prior index loaded")
	return &index, nil
}

// fetchArchive restores the published transcripts into the workspace.
func (ix *ChannelIndexer) fetchArchive(ctx context.Context, platform domain.Platform, channel string, ws Workspace) error {
	found, err := storage.DownloadFile(ctx, ix.store, domain.ArchiveKey(platform, channel), ws.ArchivePath())
	if err != nil {
		return fmt.Errorf("fetch archive: %w", err)
	}
	if !found {
		logger.CtxInfo(ctx, "No transcript archive, starting with an empty folder")
		return nil
	}

	n, err := archive.Unzip(ws.ArchivePath(), ws.TranscriptsDir())
	if err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}
	if err := os.Remove(ws.ArchivePath()); err != nil {
		return fmt.Errorf("remove archive: %w", err)
	}
	logger.With(logger.Fields{}).WithCount(n).Info(ctx, "Transcript archive restored")
	return nil
}
