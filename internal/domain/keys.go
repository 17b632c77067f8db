package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Object store layout for a channel's published artifacts.
const (
	IndexFileName       = "index.json"
	ArchiveFileName     = "transcripts.zip"
	TranscriptsDirName  = "transcripts"
	SearchBundleDirName = "pagefind"
	SearchEntryFileName = "pagefind-entry.json"
)

// ChannelPrefix returns "{platform}/{channel}".
func ChannelPrefix(platform Platform, channel string) string {
	return fmt.Sprintf("%d/%s", int(platform), channel)
}

// IndexKey returns the object key of the channel manifest.
func IndexKey(platform Platform, channel string) string {
	return ChannelPrefix(platform, channel) + "/" + IndexFileName
}

// ArchiveKey returns the object key of the channel transcript archive.
func ArchiveKey(platform Platform, channel string) string {
	return ChannelPrefix(platform, channel) + "/" + ArchiveFileName
}

// TranscriptKey returns the object key of a single video transcript.
func TranscriptKey(platform Platform, channel, videoID string) string {
	return ChannelPrefix(platform, channel) + "/" + TranscriptsDirName + "/" + videoID + ".json"
}

// SearchBundleKey returns the object key of a search bundle file given its path relative to the bundle root.
func SearchBundleKey(platform Platform, channel, relPath string) string {
	return ChannelPrefix(platform, channel) + "/" + SearchBundleDirName + "/" + relPath
}

// ValidateChannelID rejects channel ids that cannot be used as a single
// path segment, both in object keys and in the local workspace.
func ValidateChannelID(channel string) error {
	switch {
	case channel == "", channel == ".", channel == "..":
		return fmt.Errorf("invalid channel id %q", channel)
	case strings.ContainsAny(channel, "/\\\x00"):
		return fmt.Errorf("channel id %q must not contain path separators", channel)
	case !filepath.IsLocal(channel):
		return fmt.Errorf("channel id %q is not a local path segment", channel)
	}
	return nil
}
