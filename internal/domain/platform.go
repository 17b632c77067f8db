package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Platform is the numeric platform identifier used in job keys and storage paths.
type Platform int

const (
	PlatformYouTube Platform = 0
	PlatformTwitch  Platform = 1
)

// String returns the platform name.
func (p Platform) String() string {
	switch p {
	case PlatformYouTube:
		return "youtube"
	case PlatformTwitch:
		return "twitch"
	default:
		return "platform-" + strconv.Itoa(int(p))
	}
}

// ParsePlatform accepts either a platform name or its numeric id.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "youtube", "yt", "0":
		return PlatformYouTube, nil
	case "twitch", "1":
		return PlatformTwitch, nil
	default:
		return 0, fmt.Errorf("unknown platform %q", s)
	}
}

// ChannelURL returns the listing URL for a channel's uploaded videos.
func (p Platform) ChannelURL(channel string) (string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", fmt.Errorf("channel is required")
	}
	switch p {
	case PlatformYouTube:
		return "https://www.youtube.com/@" + url.PathEscape(strings.TrimPrefix(channel, "@")) + "/videos", nil
	case PlatformTwitch:
		return "https://www.twitch.tv/" + url.PathEscape(channel) + "/videos", nil
	default:
		return "", fmt.Errorf("unsupported platform %d", int(p))
	}
}

// VideoURL returns the canonical watch URL for a single video.
func (p Platform) VideoURL(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("video id is required")
	}
	switch p {
	case PlatformYouTube:
		return "https://www.youtube.com/watch?v=" + url.QueryEscape(id), nil
	case PlatformTwitch:
		return "https://www.twitch.tv/videos/" + url.PathEscape(id), nil
	default:
		return "", fmt.Errorf("unsupported platform %d", int(p))
	}
}

// IsCanonicalVideoURL reports whether u points at a single regular video.
// Shorts, clips, playlists and channel tabs are rejected.
func (p Platform) IsCanonicalVideoURL(u string) bool {
	switch p {
	case PlatformYouTube:
		return strings.HasPrefix(u, "https://www.youtube.com/watch?v=")
	case PlatformTwitch:
		return strings.HasPrefix(u, "https://www.twitch.tv/videos/")
	default:
		return false
	}
}
