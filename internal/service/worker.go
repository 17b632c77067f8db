package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/logger"
)

// WorkerConfig holds configuration for the poll loop
type WorkerConfig struct {
	PollInterval time.Duration
	// ClaimFrom is the job state this worker picks up; it is moved to Running.
	ClaimFrom domain.JobState
}

// Worker polls the job store and runs one job at a time.
type Worker struct {
	jobs    JobStore
	indexer *ChannelIndexer
	cfg     WorkerConfig
}

// NewWorker creates a worker.
func NewWorker(jobs JobStore, indexer *ChannelIndexer, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	return &Worker{jobs: jobs, indexer: indexer, cfg: cfg}
}

// Run polls until ctx is cancelled. It sleeps PollInterval whenever no job
// was claimed; after a job it polls again immediately. No error stops it.
func (w *Worker) Run(ctx context.Context) error {
	logger.CtxInfo(ctx, "Worker started, claiming jobs in state %s every %s", w.cfg.ClaimFrom, w.cfg.PollInterval)
	for {
		claimed, err := w.RunOnce(ctx)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Error("Worker iteration failed")
		}
		if claimed && ctx.Err() == nil {
			continue
		}

		timer := time.NewTimer(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.CtxInfo(ctx, "Worker stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce claims at most one job and processes it. It reports whether a job
// was claimed; the returned error is the claim or job failure.
func (w *Worker) RunOnce(ctx context.Context) (claimed bool, err error) {
	ctx = logger.SetRunID(ctx, uuid.NewString())

	job, err := w.jobs.ClaimOldest(ctx, w.cfg.ClaimFrom, domain.JobStateRunning)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	if job == nil {
		logger.CtxDebug(ctx, "No job available")
		return false, nil
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldPlatform: job.PlatformID.String(),
		logger.FieldChannel:  job.ChannelID,
		"queued":             job.QueuedAt().Format(time.RFC3339),
	}).Info("Claimed job")

	return true, w.runJob(ctx, job)
}

// runJob converts a panic in the pipeline into a job failure.
func (w *Worker) runJob(ctx context.Context, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing job %s: %v", job.Key(), r)
			logger.FromContext(ctx).WithField("stack", string(debug.Stack())).Error(err.Error())
			w.indexer.markFailed(ctx, job)
		}
	}()
	return w.indexer.Run(ctx, job)
}
