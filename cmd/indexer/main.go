package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/timmy/chanindex/internal/config"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/execx"
	"github.com/timmy/chanindex/internal/logger"
	"github.com/timmy/chanindex/internal/purge"
	"github.com/timmy/chanindex/internal/repository"
	"github.com/timmy/chanindex/internal/search"
	"github.com/timmy/chanindex/internal/service"
	"github.com/timmy/chanindex/internal/source"
	"github.com/timmy/chanindex/internal/source/feed"
	"github.com/timmy/chanindex/internal/source/ytdlp"
	"github.com/timmy/chanindex/internal/storage"
	"github.com/timmy/chanindex/internal/transcript"
)

var errInvalidKey = errors.New("expected platform:channel")

func main() {
	// Initialize logger first (LOG_* env, JSON by default)
	logCfg := logger.ConfigFromEnv()
	if os.Getenv("SERVICE_NAME") == "" {
		logCfg.ServiceName = "chanindex-indexer"
	}
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	modeFlag := flag.String("mode", "", "Worker mode: full or download-only (overrides config)")
	once := flag.Bool("once", false, "Process at most one job, then exit")
	enqueue := flag.String("enqueue", "", "Queue a channel as platform:channel and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *modeFlag != "" {
		cfg.Worker.Mode = *modeFlag
	}
	mode, err := service.ParseMode(cfg.Worker.Mode)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid worker mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, closeStore, err := repository.OpenJobQueue(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open job store")
	}
	defer closeStore()

	if *enqueue != "" {
		key, err := parseJobKey(*enqueue)
		if err != nil {
			appLogger.WithError(err).Fatal("Invalid -enqueue value")
		}
		job, err := queue.Enqueue(ctx, key)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to enqueue job")
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldPlatform: key.PlatformID.String(),
			logger.FieldChannel:  key.ChannelID,
			logger.FieldStatus:   job.JobState.String(),
		}).Info("Job queued")
		return
	}

	storageCfg := cfg.GetStorageConfig()
	objectStorage, err := storage.NewStorage(&storage.Config{
		Type:      storage.StorageType(storageCfg.Type),
		Endpoint:  storageCfg.Endpoint,
		AccessKey: storageCfg.AccessKey,
		SecretKey: storageCfg.SecretKey,
		UseSSL:    storageCfg.UseSSL,
		Bucket:    storageCfg.Bucket,
		Region:    storageCfg.Region,
		PublicURL: storageCfg.PublicURL,
		Root:      storageCfg.Root,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	runner := execx.ExecRunner{}
	ytdlpClient := ytdlp.New(ytdlp.Config{
		Path:          cfg.Source.YtDlpPath,
		SubLangs:      cfg.Source.SubLangs,
		CaptionFormat: cfg.Source.CaptionFormat,
		ExtraArgs:     cfg.Source.ExtraArgs,
	}, runner)

	var lister source.Lister = ytdlpClient
	if cfg.Source.Enumerator == "feed" {
		lister = feed.NewLister(cfg.Source.FeedBaseURL, 30*time.Second)
	}

	parser, err := transcript.NewParser(cfg.Source.CaptionFormat)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid caption format")
	}

	var searchBuilder search.Builder
	if cfg.Search.Enabled {
		searchBuilder = search.NewPagefindBuilder(cfg.Search.PagefindPath, cfg.Worker.ScratchDir, runner)
	}

	var purger purge.Purger
	if cfg.Purge.Enabled {
		client, err := purge.NewClient(purge.Config{
			ZoneID:   cfg.Purge.ZoneID,
			APIToken: cfg.Purge.APIToken,
			BaseURL:  cfg.Purge.BaseURL,
			Timeout:  cfg.Purge.Timeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize cache purge")
		}
		purger = client
	}

	acquisition := service.NewAcquisition(lister, ytdlpClient, parser, service.AcquisitionConfig{
		StopAtCached:    cfg.Worker.StopAtCached,
		RequestInterval: cfg.Worker.RequestInterval,
		BatchSize:       cfg.Source.BatchSize,
	})
	indexer := service.NewChannelIndexer(
		queue,
		objectStorage,
		acquisition,
		service.NewArtifactBuilder(searchBuilder),
		service.NewPublisher(objectStorage, purger, cfg.Worker.UploadConcurrency),
		service.IndexerConfig{Mode: mode, ScratchDir: cfg.Worker.ScratchDir},
	)
	worker := service.NewWorker(queue, indexer, service.WorkerConfig{
		PollInterval: cfg.Worker.PollInterval,
		ClaimFrom:    domain.JobState(cfg.Worker.ClaimState),
	})

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		logger.FieldMode: string(mode),
		"claim_state":    domain.JobState(cfg.Worker.ClaimState).String(),
		"enumerator":     cfg.Source.Enumerator,
		"search":         cfg.Search.Enabled,
		"purge":          cfg.Purge.Enabled,
	}).Info("Starting indexer")

	if *once {
		claimed, err := worker.RunOnce(ctx)
		if err != nil {
			appLogger.WithError(err).Error("Job run failed")
			os.Exit(1)
		}
		if !claimed {
			appLogger.Info("No job available")
		}
		return
	}

	if err := worker.Run(ctx); err != nil {
		appLogger.WithError(err).Fatal("Worker stopped with error")
	}
}

// parseJobKey reads "platform:channel", e.g. "youtube:@somechannel" or "1:streamer".
func parseJobKey(s string) (domain.JobKey, error) {
	platformName, channel, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(channel) == "" {
		return domain.JobKey{}, errInvalidKey
	}
	platform, err := domain.ParsePlatform(platformName)
	if err != nil {
		return domain.JobKey{}, err
	}
	channel = strings.TrimSpace(channel)
	if err := domain.ValidateChannelID(channel); err != nil {
		return domain.JobKey{}, err
	}
	return domain.JobKey{PlatformID: platform, ChannelID: channel}, nil
}
