// Package jobqueue claims and updates indexing jobs in a relational job table
// reached through a statement executor.
package jobqueue

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/timmy/chanindex/internal/domain"
)

// ResultSet is the tabular result of one statement.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Executor runs one parameterized statement at the job store.
// Statements use '?' placeholders.
type Executor interface {
	Execute(ctx context.Context, statement string, params ...any) (*ResultSet, error)
}

// Config describes the job table.
type Config struct {
	Table      string
	KeyColumns []string
}

// DefaultConfig matches the channel indexer table.
func DefaultConfig() Config {
	return Config{Table: "indexer_jobs", KeyColumns: []string{"platform_id", "channel_id"}}
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Queue is the job queue client. It performs no retries; executor errors are
// returned to the caller unchanged apart from wrapping.
type Queue struct {
	exec  Executor
	table string
	keys  []string
	now   func() time.Time
}

// New creates a Queue.
// Parameters:
//   - exec: statement executor bound to the job store.
//   - cfg: table name and key columns; identifiers are validated because they are interpolated.
//
// Returns:
//   - *Queue: queue client.
//   - error: non-nil if the table or key columns are invalid.
func New(exec Executor, cfg Config) (*Queue, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	def := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = def.Table
	}
	if len(cfg.KeyColumns) == 0 {
		cfg.KeyColumns = def.KeyColumns
	}
	if !identRE.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	for _, col := range cfg.KeyColumns {
		if !identRE.MatchString(col) {
			return nil, fmt.Errorf("invalid key column %q", col)
		}
		switch col {
		case "platform_id", "channel_id", "content_id":
		default:
			return nil, fmt.Errorf("unsupported key column %q", col)
		}
	}
	return &Queue{
		exec:  exec,
		table: cfg.Table,
		keys:  append([]string(nil), cfg.KeyColumns...),
		now:   time.Now,
	}, nil
}

// ClaimOldest atomically moves the oldest job in state from to state to.
//
// The select and the update are one statement, and the update re-checks the
// state, so concurrent callers can never claim the same row. The returned job
// carries its pre-transition values. A nil job with a nil error means no job
// was eligible.
func (q *Queue) ClaimOldest(ctx context.Context, from, to domain.JobState) (*domain.Job, error) {
	keyList := strings.Join(q.keys, ", ")
	stmt := fmt.Sprintf(`WITH selected_job AS (
  SELECT %[2]s FROM %[1]s
  WHERE job_state = ?
  ORDER BY queued ASC
  LIMIT 1
)
UPDATE %[1]s
SET job_state = ?
WHERE (%[2]s) IN (SELECT %[2]s FROM selected_job) AND job_state = ?
RETURNING *;`, q.table, keyList)

	rs, err := q.exec.Execute(ctx, stmt, int(from), int(to), int(from))
	if err != nil {
		return nil, fmt.Errorf("claim job in state %s: %w", from, err)
	}
	job, err := firstJob(rs)
	if err != nil || job == nil {
		return nil, err
	}
	job.JobState = from
	return job, nil
}

// UpdateState unconditionally sets the state of the job identified by key.
// Moving to Complete also stamps last_completed.
func (q *Queue) UpdateState(ctx context.Context, key domain.JobKey, state domain.JobState) (*domain.Job, error) {
	where, args, err := q.whereKey(key)
	if err != nil {
		return nil, err
	}

	set := "job_state = ?"
	params := []any{int(state)}
	if state == domain.JobStateComplete {
		set += ", last_completed = ?"
		params = append(params, q.now().Unix())
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *;", q.table, set, where)

	rs, err := q.exec.Execute(ctx, stmt, append(params, args...)...)
	if err != nil {
		return nil, fmt.Errorf("update job %s to %s: %w", key, state, err)
	}
	return firstJob(rs)
}

// Get returns the job identified by key, or nil if it does not exist.
func (q *Queue) Get(ctx context.Context, key domain.JobKey) (*domain.Job, error) {
	where, args, err := q.whereKey(key)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT 1;", q.table, where)
	rs, err := q.exec.Execute(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", key, err)
	}
	return firstJob(rs)
}

// Enqueue inserts the job in state Queued, or resets an existing row back to Queued.
// Production jobs are created by the public API; this exists for local and self-hosted setups.
func (q *Queue) Enqueue(ctx context.Context, key domain.JobKey) (*domain.Job, error) {
	_, args, err := q.whereKey(key)
	if err != nil {
		return nil, err
	}
	now := q.now().Unix()
	keyList := strings.Join(q.keys, ", ")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.keys)), ", ")
	stmt := fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, job_state, queued) VALUES (%[3]s, ?, ?)
ON CONFLICT (%[2]s) DO UPDATE SET job_state = ?, queued = ?
RETURNING *;`, q.table, keyList, placeholders)

	params := append(args, int(domain.JobStateQueued), now, int(domain.JobStateQueued), now)
	rs, err := q.exec.Execute(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("enqueue job %s: %w", key, err)
	}
	return firstJob(rs)
}

func (q *Queue) whereKey(key domain.JobKey) (string, []any, error) {
	clauses := make([]string, 0, len(q.keys))
	args := make([]any, 0, len(q.keys))
	for _, col := range q.keys {
		switch col {
		case "platform_id":
			args = append(args, int(key.PlatformID))
		case "channel_id":
			if key.ChannelID == "" {
				return "", nil, fmt.Errorf("job key %s: channel_id is required", key)
			}
			args = append(args, key.ChannelID)
		case "content_id":
			if key.ContentID == "" {
				return "", nil, fmt.Errorf("job key %s: content_id is required", key)
			}
			args = append(args, key.ContentID)
		}
		clauses = append(clauses, col+" = ?")
	}
	return strings.Join(clauses, " AND "), args, nil
}
