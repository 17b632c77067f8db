package domain

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TranscriptStatus is the per-run outcome of transcript acquisition for one video.
type TranscriptStatus int

const (
	// TranscriptPending means acquisition has not looked at the video yet.
	TranscriptPending TranscriptStatus = iota
	TranscriptCachedPresent
	TranscriptNewlyAcquired
	TranscriptMissing
	TranscriptAcquisitionError
)

// String returns the status name used in logs.
func (s TranscriptStatus) String() string {
	switch s {
	case TranscriptCachedPresent:
		return "cached"
	case TranscriptNewlyAcquired:
		return "new"
	case TranscriptMissing:
		return "missing"
	case TranscriptAcquisitionError:
		return "error"
	default:
		return "pending"
	}
}

// Video is a candidate video produced by channel enumeration.
// UploadDate is kept as delivered by the platform (usually YYYYMMDD) and may be empty or unparsable.
type Video struct {
	ID         string
	Title      string
	UploadDate string
	Language   string
	Status     TranscriptStatus
}

// TranscriptAvailable reports whether the video ends the run with a transcript on disk.
// Only Missing and AcquisitionError count as unavailable.
func (v *Video) TranscriptAvailable() bool {
	return v.Status != TranscriptMissing && v.Status != TranscriptAcquisitionError
}

const secondsPerDay = 24 * 60 * 60

// DayOf returns the number of whole days between the unix epoch and t (UTC).
func DayOf(t time.Time) int64 {
	sec := t.Unix()
	day := sec / secondsPerDay
	if sec%secondsPerDay < 0 {
		day--
	}
	return day
}

// DayTime returns midnight UTC of the given epoch day.
func DayTime(day int64) time.Time {
	return time.Unix(day*secondsPerDay, 0).UTC()
}

// FormatDay renders an epoch day as YYYYMMDD.
func FormatDay(day int64) string {
	return DayTime(day).Format("20060102")
}

// ParseUploadDate parses a platform upload date. YYYYMMDD is the common form;
// other human formats are accepted through dateparse. Bare numbers of any
// other length are rejected so that ids or counters are never taken for dates.
func ParseUploadDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if isDigits(s) {
		if len(s) != 8 {
			return time.Time{}, false
		}
		t, err := time.ParseInLocation("20060102", s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
