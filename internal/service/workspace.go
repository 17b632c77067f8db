package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/transcript"
)

// Workspace is the scratch directory owned by one channel's job run:
// {scratch}/{platform}/{channel}/ holding index.json, transcripts.zip,
// transcripts/ and the search bundle.
type Workspace struct {
	Root string
}

// NewWorkspace returns the workspace of a channel below scratchDir.
func NewWorkspace(scratchDir string, platform domain.Platform, channel string) Workspace {
	return Workspace{Root: filepath.Join(scratchDir, strconv.Itoa(int(platform)), channel)}
}

func (w Workspace) IndexPath() string {
	return filepath.Join(w.Root, domain.IndexFileName)
}

func (w Workspace) ArchivePath() string {
	return filepath.Join(w.Root, domain.ArchiveFileName)
}

func (w Workspace) TranscriptsDir() string {
	return filepath.Join(w.Root, domain.TranscriptsDirName)
}

func (w Workspace) TranscriptPath(videoID string) string {
	return filepath.Join(w.TranscriptsDir(), transcript.FileName(videoID))
}

func (w Workspace) SearchBundleDir() string {
	return filepath.Join(w.Root, domain.SearchBundleDirName)
}

// HasTranscript reports whether a transcript file for the video is on disk.
func (w Workspace) HasTranscript(videoID string) bool {
	info, err := os.Stat(w.TranscriptPath(videoID))
	return err == nil && info.Mode().IsRegular()
}

// Reset empties the workspace so the run starts from published state only.
func (w Workspace) Reset() error {
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("clear workspace: %w", err)
	}
	if err := os.MkdirAll(w.TranscriptsDir(), 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return nil
}
