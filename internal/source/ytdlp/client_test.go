package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/source"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	stdout string
	files  map[string]string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	for fname, content := range f.files {
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0644); err != nil {
			return nil, err
		}
	}
	return []byte(f.stdout), nil
}

func TestFetchBatchParsesFlatPlaylist(t *testing.T) {
	r := &fakeRunner{stdout: strings.Join([]string{
		`{"id":"a1","title":"First","url":"https://www.youtube.com/watch?v=a1","upload_date":"20240103"}`,
		`{"id":"a2","title":"Second","url":"https://www.youtube.com/watch?v=a2","timestamp":1704067200}`,
	}, "\n")}
	c := New(Config{Path: "/usr/bin/yt-dlp"}, r)

	items, next, err := c.FetchBatch(context.Background(), domain.PlatformYouTube, "somechannel", "", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "3", next)
	assert.Equal(t, source.Candidate{ID: "a1", Title: "First", UploadDate: "20240103", URL: "https://www.youtube.com/watch?v=a1"}, items[0])
	assert.Equal(t, "20240101", items[1].UploadDate)

	require.Len(t, r.calls, 1)
	got := r.calls[0]
	assert.Equal(t, "/usr/bin/yt-dlp", got.name)
	assert.Contains(t, got.args, "--flat-playlist")
	assert.Contains(t, strings.Join(got.args, " "), "--playlist-items 1:2")
	assert.Equal(t, "https://www.youtube.com/@somechannel/videos", got.args[len(got.args)-1])
}

func TestFetchBatchLastPage(t *testing.T) {
	r := &fakeRunner{stdout: `{"id":"a3","title":"Third","url":"https://www.youtube.com/watch?v=a3"}`}
	c := New(Config{}, r)

	items, next, err := c.FetchBatch(context.Background(), domain.PlatformYouTube, "chan", "51", 50)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, next)
	assert.Contains(t, strings.Join(r.calls[0].args, " "), "--playlist-items 51:100")
}

func TestFetchBatchRejectsBadCursor(t *testing.T) {
	_, _, err := New(Config{}, &fakeRunner{}).FetchBatch(context.Background(), domain.PlatformYouTube, "chan", "zero", 10)
	assert.Error(t, err)
}

func TestExtractReadsCaptionFile(t *testing.T) {
	r := &fakeRunner{
		stdout: `{"id":"vid1","title":"Talk","upload_date":"20240105"}`,
		files: map[string]string{
			"vid1.de-orig.srt": "1\n00:00:01,000 --> 00:00:02,500\nHallo\n",
		},
	}
	c := New(Config{WorkDir: t.TempDir()}, r)

	ext, err := c.Extract(context.Background(), domain.PlatformYouTube, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "de", ext.Language)
	assert.Equal(t, "srt", ext.Format)
	assert.Equal(t, "Talk", ext.Title)
	assert.Equal(t, "20240105", ext.UploadDate)
	assert.Contains(t, string(ext.Data), "Hallo")

	args := strings.Join(r.calls[0].args, " ")
	assert.Contains(t, args, "--sub-langs .*orig")
	assert.Contains(t, args, "--convert-subs srt")
	assert.Contains(t, args, "https://www.youtube.com/watch?v=vid1")

	_, err = os.Stat(r.calls[0].dir)
	assert.True(t, os.IsNotExist(err), "extraction dir is removed")
}

func TestExtractWithoutCaptions(t *testing.T) {
	r := &fakeRunner{stdout: `{"id":"vid2","title":"Silent","upload_date":"20240105"}`}
	c := New(Config{WorkDir: t.TempDir(), CaptionFormat: "vtt"}, r)

	ext, err := c.Extract(context.Background(), domain.PlatformYouTube, "vid2")
	assert.ErrorIs(t, err, source.ErrNoCaptions)
	require.NotNil(t, ext, "metadata survives a missing track")
	assert.Equal(t, "Silent", ext.Title)
	assert.Equal(t, "20240105", ext.UploadDate)
	assert.Empty(t, ext.Data)
	assert.Contains(t, strings.Join(r.calls[0].args, " "), "--sub-format vtt")
}

func TestExtractToolFailure(t *testing.T) {
	boom := errors.New("exit status 1: HTTP Error 429")
	c := New(Config{WorkDir: t.TempDir()}, &fakeRunner{err: boom})

	_, err := c.Extract(context.Background(), domain.PlatformTwitch, "123")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, source.ErrNoCaptions)
}
