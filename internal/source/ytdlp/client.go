// Package ytdlp lists channel videos and extracts caption tracks with the
// yt-dlp command line tool.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/execx"
	"github.com/timmy/chanindex/internal/source"
)

// Config configures the yt-dlp client.
type Config struct {
	Path          string   // binary, default "yt-dlp"
	SubLangs      string   // --sub-langs pattern, default ".*orig"
	CaptionFormat string   // srt, vtt or json3
	ExtraArgs     []string // appended before the URL on every call
	WorkDir       string   // parent for per-extraction temp dirs, default os.TempDir()
}

// Client implements source.Lister and source.Extractor.
type Client struct {
	cfg    Config
	runner execx.Runner
}

// New creates a client. A nil runner runs the real binary.
func New(cfg Config, runner execx.Runner) *Client {
	if cfg.Path == "" {
		cfg.Path = "yt-dlp"
	}
	if cfg.SubLangs == "" {
		cfg.SubLangs = ".*orig"
	}
	if cfg.CaptionFormat == "" {
		cfg.CaptionFormat = "srt"
	}
	if runner == nil {
		runner = execx.ExecRunner{}
	}
	return &Client{cfg: cfg, runner: runner}
}

func (c *Client) GetSourceID() string {
	return "ytdlp"
}

// entry is the subset of yt-dlp's per-video JSON we read.
type entry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
	UploadDate string `json:"upload_date"`
	Timestamp  *int64 `json:"timestamp"`
}

// FetchBatch lists one page of the channel with --flat-playlist. The cursor
// is the 1-based playlist index of the first entry.
func (c *Client) FetchBatch(ctx context.Context, platform domain.Platform, channel, cursor string, limit int) ([]source.Candidate, string, error) {
	channelURL, err := platform.ChannelURL(channel)
	if err != nil {
		return nil, "", err
	}
	start := 1
	if cursor != "" {
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 1 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}

	args := []string{
		"--flat-playlist",
		"--dump-json",
		"--no-warnings",
		"--playlist-items", fmt.Sprintf("%d:%d", start, start+limit-1),
	}
	args = append(args, c.cfg.ExtraArgs...)
	args = append(args, channelURL)

	out, err := c.runner.Run(ctx, "", c.cfg.Path, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", channelURL, err)
	}

	entries, err := decodeEntries(out)
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", channelURL, err)
	}

	items := make([]source.Candidate, 0, len(entries))
	for _, e := range entries {
		items = append(items, source.Candidate{
			ID:         e.ID,
			Title:      e.Title,
			UploadDate: e.uploadDate(),
			URL:        e.URL,
		})
	}

	next := ""
	if len(entries) >= limit {
		next = strconv.Itoa(start + limit)
	}
	return items, next, nil
}

// Extract downloads the caption track of one video into a private temp dir.
// A video without captions yields ErrNoCaptions together with its metadata.
func (c *Client) Extract(ctx context.Context, platform domain.Platform, videoID string) (*source.Extraction, error) {
	videoURL, err := platform.VideoURL(videoID)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(c.cfg.WorkDir, "ytdlp-*")
	if err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{
		"--write-subs",
		"--write-auto-subs",
		"--skip-download",
		"--dump-json",
		"--no-simulate",
		"--no-warnings",
		"--sub-langs", c.cfg.SubLangs,
	}
	args = append(args, formatArgs(c.cfg.CaptionFormat)...)
	args = append(args, "-o", "%(id)s.%(ext)s")
	args = append(args, c.cfg.ExtraArgs...)
	args = append(args, videoURL)

	out, err := c.runner.Run(ctx, dir, c.cfg.Path, args...)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", videoID, err)
	}

	ext := &source.Extraction{Format: c.cfg.CaptionFormat}
	if entries, err := decodeEntries(out); err == nil && len(entries) > 0 {
		ext.Title = entries[0].Title
		ext.UploadDate = entries[0].uploadDate()
	}

	file, lang, err := findCaptionFile(dir, videoID, c.cfg.CaptionFormat)
	if errors.Is(err, source.ErrNoCaptions) {
		return ext, err
	}
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read captions for %s: %w", videoID, err)
	}
	ext.Language = lang
	ext.Data = data
	return ext, nil
}

func formatArgs(format string) []string {
	switch format {
	case "srt":
		return []string{"--convert-subs", "srt"}
	default:
		return []string{"--sub-format", format}
	}
}

// findCaptionFile picks the written track named <id>.<lang>.<format>.
// Several matching tracks are resolved by name so the choice is stable.
func findCaptionFile(dir, videoID, format string) (string, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(videoID)+".*."+format))
	if err != nil {
		return "", "", fmt.Errorf("find captions for %s: %w", videoID, err)
	}
	if len(matches) == 0 {
		return "", "", source.ErrNoCaptions
	}
	sort.Strings(matches)
	name := filepath.Base(matches[0])
	lang := strings.TrimSuffix(strings.TrimPrefix(name, videoID+"."), "."+format)
	return matches[0], strings.TrimSuffix(lang, "-orig"), nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}

func decodeEntries(out []byte) ([]entry, error) {
	var entries []entry
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decode yt-dlp output: %w", err)
		}
		if e.URL == "" {
			e.URL = e.WebpageURL
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read yt-dlp output: %w", err)
	}
	return entries, nil
}

func (e entry) uploadDate() string {
	if e.UploadDate != "" {
		return e.UploadDate
	}
	if e.Timestamp != nil {
		return time.Unix(*e.Timestamp, 0).UTC().Format("20060102")
	}
	return ""
}
