package domain

import (
	"fmt"
	"time"
)

// JobState represents the state of an indexing job as stored in the job table.
// Values include JobStateQueued, JobStateRunning, JobStateWaitingForIndex,
// JobStateComplete, and JobStateFailed.
type JobState int

const (
	JobStateQueued          JobState = 0
	JobStateRunning         JobState = 1
	JobStateWaitingForIndex JobState = 2
	JobStateComplete        JobState = 3
	JobStateFailed          JobState = 4
)

// String returns the lowercase name of the state.
func (s JobState) String() string {
	switch s {
	case JobStateQueued:
		return "queued"
	case JobStateRunning:
		return "running"
	case JobStateWaitingForIndex:
		return "waiting_for_index"
	case JobStateComplete:
		return "complete"
	case JobStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Valid reports whether s is one of the known job states.
func (s JobState) Valid() bool {
	return s >= JobStateQueued && s <= JobStateFailed
}

// JobKey identifies a job row. ContentID is only set for content-scoped jobs.
type JobKey struct {
	PlatformID Platform
	ChannelID  string
	ContentID  string
}

// String returns a "platform/channel[/content]" form for logs.
func (k JobKey) String() string {
	if k.ContentID != "" {
		return fmt.Sprintf("%d/%s/%s", int(k.PlatformID), k.ChannelID, k.ContentID)
	}
	return fmt.Sprintf("%d/%s", int(k.PlatformID), k.ChannelID)
}

// Job is a unit of indexing work keyed by platform and channel.
// Queued and LastCompleted are unix seconds, matching the job table written by the API.
type Job struct {
	PlatformID    Platform `gorm:"primaryKey;autoIncrement:false" json:"platform_id"`
	ChannelID     string   `gorm:"type:text;primaryKey" json:"channel_id"`
	ContentID     string   `gorm:"-" json:"content_id,omitempty"`
	JobState      JobState `gorm:"not null;default:0;index" json:"job_state"`
	Queued        int64    `gorm:"not null;default:0;index" json:"queued"`
	LastCompleted int64    `gorm:"not null;default:0" json:"last_completed"`
}

// TableName returns the database table name for Job.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Job) TableName() string {
	return "indexer_jobs"
}

// Key returns the identifying key of the job.
func (j *Job) Key() JobKey {
	return JobKey{PlatformID: j.PlatformID, ChannelID: j.ChannelID, ContentID: j.ContentID}
}

// QueuedAt returns the queued timestamp as a time.
func (j *Job) QueuedAt() time.Time {
	return time.Unix(j.Queued, 0).UTC()
}

// LastCompletedAt returns the last completion time, or the zero time if the job never completed.
func (j *Job) LastCompletedAt() time.Time {
	if j.LastCompleted == 0 {
		return time.Time{}
	}
	return time.Unix(j.LastCompleted, 0).UTC()
}
