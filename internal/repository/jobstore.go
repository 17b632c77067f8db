package repository

import (
	"fmt"

	"github.com/timmy/chanindex/internal/config"
	"github.com/timmy/chanindex/internal/jobqueue"
)

// OpenJobQueue builds the job queue on the configured job store: the D1 raw
// query API, or a gorm database for sqlite and postgres.
// Parameters:
//   - cfg: full application configuration.
//
// Returns:
//   - *jobqueue.Queue: queue client.
//   - func() error: releases the store connection; never nil.
//   - error: non-nil if the store cannot be reached or configured.
func OpenJobQueue(cfg *config.Config) (*jobqueue.Queue, func() error, error) {
	var exec jobqueue.Executor
	closer := func() error { return nil }

	switch cfg.JobStore.Driver {
	case "d1":
		d1, err := jobqueue.NewD1Executor(&jobqueue.D1Config{
			AccountID:  cfg.Cloudflare.AccountID,
			DatabaseID: cfg.JobStore.D1.DatabaseID,
			APIToken:   cfg.JobStore.D1.APIToken,
			BaseURL:    cfg.JobStore.D1.BaseURL,
			Timeout:    cfg.JobStore.D1.Timeout,
		})
		if err != nil {
			return nil, closer, err
		}
		exec = d1
	case "sqlite", "postgres":
		dbCfg := cfg.GetDatabaseConfig()
		db, err := InitDB(&dbCfg)
		if err != nil {
			return nil, closer, err
		}
		sqlExec := NewSQLExecutor(db)
		exec = sqlExec
		closer = sqlExec.Close
	default:
		return nil, closer, fmt.Errorf("unsupported job store driver %q", cfg.JobStore.Driver)
	}

	queue, err := jobqueue.New(exec, jobqueue.Config{Table: cfg.JobStore.Table, KeyColumns: cfg.JobStore.KeyColumns})
	if err != nil {
		_ = closer()
		return nil, func() error { return nil }, err
	}
	return queue, closer, nil
}
