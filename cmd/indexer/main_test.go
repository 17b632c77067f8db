package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/chanindex/internal/domain"
)

func TestParseJobKey(t *testing.T) {
	key, err := parseJobKey("youtube:@somechannel")
	require.NoError(t, err)
	assert.Equal(t, domain.JobKey{PlatformID: domain.PlatformYouTube, ChannelID: "@somechannel"}, key)

	key, err = parseJobKey("1:streamer")
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformTwitch, key.PlatformID)

	for _, bad := range []string{"youtube", "youtube:", "vimeo:x", "youtube:..", "youtube:a/b"} {
		_, err := parseJobKey(bad)
		assert.Error(t, err, bad)
	}
}
