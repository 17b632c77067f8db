package jobqueue

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/timmy/chanindex/internal/domain"
)

// firstJob converts the first row of rs into a Job. Empty results yield nil.
func firstJob(rs *ResultSet) (*domain.Job, error) {
	if rs == nil || len(rs.Columns) == 0 || len(rs.Rows) == 0 {
		return nil, nil
	}
	return decodeJob(rs.Columns, rs.Rows[0])
}

func decodeJob(columns []string, row []any) (*domain.Job, error) {
	if len(row) != len(columns) {
		return nil, fmt.Errorf("decode job: %d columns but %d values", len(columns), len(row))
	}
	job := &domain.Job{}
	for i, col := range columns {
		v := row[i]
		var err error
		switch col {
		case "platform_id":
			var n int64
			n, err = toInt64(v)
			job.PlatformID = domain.Platform(n)
		case "channel_id":
			job.ChannelID = toString(v)
		case "content_id":
			job.ContentID = toString(v)
		case "job_state":
			var n int64
			n, err = toInt64(v)
			job.JobState = domain.JobState(n)
		case "queued":
			job.Queued, err = toUnix(v)
		case "last_completed":
			job.LastCompleted, err = toUnix(v)
		}
		if err != nil {
			return nil, fmt.Errorf("decode job column %s: %w", col, err)
		}
	}
	return job, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("non-integer value %v", t)
		}
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		return strconv.ParseInt(t, 10, 64)
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// toUnix accepts unix seconds or a time value, which is what gorm drivers
// hand back for timestamp columns.
func toUnix(v any) (int64, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return 0, nil
		}
		return t.Unix(), nil
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.Unix(), nil
			}
		}
		return 0, fmt.Errorf("unparsable timestamp %q", t)
	default:
		return toInt64(v)
	}
}
