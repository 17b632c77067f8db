package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseUploadDate(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want string
	}{
		{in: "20240101", ok: true, want: "20240101"},
		{in: " 20231231 ", ok: true, want: "20231231"},
		{in: "2024-02-03", ok: true, want: "20240203"},
		{in: "", ok: false},
		{in: "NA", ok: false},
		{in: "2024", ok: false},
		{in: "20241399", ok: false},
	}

	for _, tc := range tests {
		got, ok := ParseUploadDate(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got.Format("20060102"), tc.in)
		}
	}
}

func TestDayConversions(t *testing.T) {
	day := DayOf(time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, int64(19723), day)
	assert.Equal(t, "20240101", FormatDay(day))
	assert.Equal(t, int64(-1), DayOf(time.Unix(-1, 0)))
}

func TestVideoTranscriptAvailable(t *testing.T) {
	for status, want := range map[TranscriptStatus]bool{
		TranscriptCachedPresent:    true,
		TranscriptNewlyAcquired:    true,
		TranscriptMissing:          false,
		TranscriptAcquisitionError: false,
	} {
		v := Video{Status: status}
		assert.Equal(t, want, v.TranscriptAvailable(), status.String())
	}
}

func TestPlatformURLs(t *testing.T) {
	u, err := PlatformYouTube.ChannelURL("@somechannel")
	assert.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/@somechannel/videos", u)

	assert.True(t, PlatformYouTube.IsCanonicalVideoURL("https://www.youtube.com/watch?v=abc"))
	assert.False(t, PlatformYouTube.IsCanonicalVideoURL("https://www.youtube.com/shorts/abc"))
	assert.True(t, PlatformTwitch.IsCanonicalVideoURL("https://www.twitch.tv/videos/123"))

	p, err := ParsePlatform("Twitch")
	assert.NoError(t, err)
	assert.Equal(t, PlatformTwitch, p)
	_, err = ParsePlatform("vimeo")
	assert.Error(t, err)
}
