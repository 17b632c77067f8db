package jobqueue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/chanindex/internal/domain"
)

type call struct {
	stmt   string
	params []any
}

type fakeExecutor struct {
	calls  []call
	result *ResultSet
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, statement string, params ...any) (*ResultSet, error) {
	f.calls = append(f.calls, call{stmt: statement, params: params})
	return f.result, f.err
}

func jobRow(state int) *ResultSet {
	return &ResultSet{
		Columns: []string{"platform_id", "channel_id", "job_state", "queued", "last_completed"},
		Rows:    [][]any{{float64(0), "chan", float64(state), float64(1700000000), nil}},
	}
}

func TestClaimOldest(t *testing.T) {
	exec := &fakeExecutor{result: jobRow(1)}
	q, err := New(exec, DefaultConfig())
	require.NoError(t, err)

	job, err := q.ClaimOldest(context.Background(), domain.JobStateQueued, domain.JobStateRunning)
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, domain.PlatformYouTube, job.PlatformID)
	assert.Equal(t, "chan", job.ChannelID)
	assert.Equal(t, domain.JobStateQueued, job.JobState, "claim returns the pre-transition state")
	assert.Equal(t, int64(1700000000), job.Queued)

	require.Len(t, exec.calls, 1)
	c := exec.calls[0]
	assert.Contains(t, c.stmt, "ORDER BY queued ASC")
	assert.Contains(t, c.stmt, "WHERE (platform_id, channel_id) IN (SELECT platform_id, channel_id FROM selected_job) AND job_state = ?")
	assert.Equal(t, []any{0, 1, 0}, c.params)
}

func TestClaimOldestNoJob(t *testing.T) {
	for _, rs := range []*ResultSet{nil, {}, {Columns: []string{"platform_id"}}} {
		q, err := New(&fakeExecutor{result: rs}, DefaultConfig())
		require.NoError(t, err)
		job, err := q.ClaimOldest(context.Background(), domain.JobStateQueued, domain.JobStateRunning)
		assert.NoError(t, err)
		assert.Nil(t, job)
	}
}

func TestClaimOldestPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	exec := &fakeExecutor{err: storeErr}
	q, err := New(exec, DefaultConfig())
	require.NoError(t, err)

	_, err = q.ClaimOldest(context.Background(), domain.JobStateQueued, domain.JobStateRunning)
	assert.ErrorIs(t, err, storeErr)
	assert.Len(t, exec.calls, 1, "the client never retries")
}

func TestUpdateState(t *testing.T) {
	exec := &fakeExecutor{result: jobRow(2)}
	q, err := New(exec, DefaultConfig())
	require.NoError(t, err)

	key := domain.JobKey{PlatformID: domain.PlatformTwitch, ChannelID: "chan"}
	job, err := q.UpdateState(context.Background(), key, domain.JobStateWaitingForIndex)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateWaitingForIndex, job.JobState)

	c := exec.calls[0]
	assert.Equal(t, "UPDATE indexer_jobs SET job_state = ? WHERE platform_id = ? AND channel_id = ? RETURNING *;", c.stmt)
	assert.Equal(t, []any{2, 1, "chan"}, c.params)
}

func TestUpdateStateCompleteStampsLastCompleted(t *testing.T) {
	exec := &fakeExecutor{result: jobRow(3)}
	q, err := New(exec, DefaultConfig())
	require.NoError(t, err)
	q.now = func() time.Time { return time.Unix(1800000000, 0) }

	_, err = q.UpdateState(context.Background(), domain.JobKey{ChannelID: "chan"}, domain.JobStateComplete)
	require.NoError(t, err)

	c := exec.calls[0]
	assert.True(t, strings.Contains(c.stmt, "SET job_state = ?, last_completed = ?"))
	assert.Equal(t, []any{3, int64(1800000000), 0, "chan"}, c.params)
}

func TestContentScopedKeys(t *testing.T) {
	exec := &fakeExecutor{}
	q, err := New(exec, Config{Table: "transcription_jobs", KeyColumns: []string{"platform_id", "content_id"}})
	require.NoError(t, err)

	_, err = q.UpdateState(context.Background(), domain.JobKey{ChannelID: "chan"}, domain.JobStateFailed)
	assert.Error(t, err, "content_id is part of the key")

	_, err = q.UpdateState(context.Background(), domain.JobKey{ContentID: "vid"}, domain.JobStateFailed)
	require.NoError(t, err)
	assert.Contains(t, exec.calls[0].stmt, "WHERE platform_id = ? AND content_id = ?")
}

func TestNewRejectsBadIdentifiers(t *testing.T) {
	_, err := New(&fakeExecutor{}, Config{Table: "jobs; DROP TABLE x"})
	assert.Error(t, err)
	_, err = New(&fakeExecutor{}, Config{KeyColumns: []string{"user_id"}})
	assert.Error(t, err)
	_, err = New(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestDecodeJobTimestamps(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	job, err := decodeJob(
		[]string{"platform_id", "channel_id", "job_state", "queued", "last_completed"},
		[]any{int64(1), []byte("c"), int64(4), ts, "1714521600"},
	)
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformTwitch, job.PlatformID)
	assert.Equal(t, "c", job.ChannelID)
	assert.Equal(t, domain.JobStateFailed, job.JobState)
	assert.Equal(t, ts.Unix(), job.Queued)
	assert.Equal(t, int64(1714521600), job.LastCompleted)
}
