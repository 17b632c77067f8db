package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/transcript"
)

func fixedBuilder(now time.Time) *ArtifactBuilder {
	b := NewArtifactBuilder(nil)
	b.now = func() time.Time { return now }
	return b
}

func TestMergeIndexForwardFillsUnparsableDates(t *testing.T) {
	b := fixedBuilder(fixedNow)
	idx := b.MergeIndex(nil, []domain.Video{
		{ID: "A", UploadDate: "20240101", Status: domain.TranscriptNewlyAcquired},
		{ID: "B", UploadDate: "not a date", Status: domain.TranscriptNewlyAcquired},
		{ID: "C", UploadDate: "20240103", Status: domain.TranscriptNewlyAcquired},
	})

	require.Len(t, idx.Videos, 3)
	assert.Equal(t, int64(19723), idx.Videos[0].Day)
	assert.Equal(t, idx.Videos[0].Day, idx.Videos[1].Day)
	assert.Equal(t, int64(19725), idx.Videos[2].Day)
}

func TestMergeIndexFirstUnparsableDateUsesToday(t *testing.T) {
	b := fixedBuilder(fixedNow)
	idx := b.MergeIndex(nil, []domain.Video{{ID: "A", Status: domain.TranscriptMissing}})

	assert.Equal(t, domain.DayOf(fixedNow), idx.Videos[0].Day)
	assert.NotZero(t, idx.Videos[0].Day)
}

func TestMergeIndexAvailabilityFlags(t *testing.T) {
	b := fixedBuilder(fixedNow)
	idx := b.MergeIndex(nil, []domain.Video{
		{ID: "new", Title: "N", UploadDate: "20240101", Language: "de", Status: domain.TranscriptNewlyAcquired},
		{ID: "cached", Title: "C", UploadDate: "20240101", Language: "en", Status: domain.TranscriptCachedPresent},
		{ID: "missing", Title: "M", UploadDate: "20240101", Status: domain.TranscriptMissing},
		{ID: "failed", Title: "F", UploadDate: "20240101", Status: domain.TranscriptAcquisitionError},
	})

	data, err := idx.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`[19754,[["new","N",19723,"de"],["cached","C",19723,"en"],["missing","M",19723,"en",0],["failed","F",19723,"en",0]]]`,
		string(data))
}

func TestMergeIndexIsIdempotent(t *testing.T) {
	videos := []domain.Video{
		{ID: "v2", Title: "Two", UploadDate: "20240102", Language: "en", Status: domain.TranscriptNewlyAcquired},
		{ID: "v1", Title: "One & <more>", UploadDate: "", Status: domain.TranscriptMissing},
	}
	first := fixedBuilder(fixedNow).MergeIndex(nil, videos)
	firstJSON, err := first.MarshalJSON()
	require.NoError(t, err)

	var restored domain.ChannelIndex
	require.NoError(t, restored.UnmarshalJSON(firstJSON))

	// next run, days later: nothing new, v2 is cached and listing stopped there
	rerun := []domain.Video{{ID: "v2", Title: "Two", UploadDate: domain.FormatDay(restored.Videos[0].Day), Language: "en", Status: domain.TranscriptCachedPresent}}
	second := fixedBuilder(fixedNow.Add(72*time.Hour)).MergeIndex(&restored, rerun)
	secondJSON, err := second.MarshalJSON()
	require.NoError(t, err)

	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestMergeIndexCarriesOverUnlistedVideos(t *testing.T) {
	old := &domain.ChannelIndex{LastUpdated: 19000, Videos: []domain.VideoSummary{
		{ID: "b", Title: "B", Day: 19700, Language: "en", TranscriptAvailable: true},
		{ID: "a", Title: "A", Day: 19600, Language: "fr", TranscriptAvailable: false},
	}}
	idx := fixedBuilder(fixedNow).MergeIndex(old, []domain.Video{
		{ID: "c", Title: "C", UploadDate: "20240115", Status: domain.TranscriptNewlyAcquired},
		{ID: "b", Title: "B", UploadDate: domain.FormatDay(19700), Language: "en", Status: domain.TranscriptCachedPresent},
	})

	ids := make([]string, 0, len(idx.Videos))
	for _, v := range idx.Videos {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
	assert.Equal(t, old.Videos[1], idx.Videos[2])
	assert.Equal(t, domain.DayOf(fixedNow), idx.LastUpdated)
}

func TestBuildSearchBundleUsesTranscriptsOnDisk(t *testing.T) {
	ws := Workspace{Root: t.TempDir()}
	require.NoError(t, ws.Reset())
	require.NoError(t, transcript.WriteFile(ws.TranscriptPath("v1"), []domain.Line{{Start: 0, Duration: 1, Text: "hello"}, {Start: 1, Duration: 1, Text: "world"}}))

	fs := &fakeSearch{}
	b := NewArtifactBuilder(fs)
	idx := &domain.ChannelIndex{Videos: []domain.VideoSummary{
		{ID: "v1", Title: "One", Day: 19723, Language: "de", TranscriptAvailable: true},
		{ID: "v2", Title: "Two", Day: 19723, Language: "en", TranscriptAvailable: false},
		{ID: "v3", Title: "Gone", Day: 19723, Language: "en", TranscriptAvailable: true},
	}}

	files, err := b.BuildSearchBundle(context.Background(), ws, idx)
	require.NoError(t, err)
	assert.Contains(t, files, domain.SearchEntryFileName)
	require.Len(t, fs.records, 1)
	assert.Equal(t, "v1", fs.records[0].ID)
	assert.Equal(t, "hello world", fs.records[0].Content)
	assert.Equal(t, "20240101", fs.records[0].Date)
	assert.Equal(t, "de", fs.records[0].Language)
}

func TestBuildSearchBundleSkipsWhenNothingToIndex(t *testing.T) {
	ws := Workspace{Root: t.TempDir()}
	require.NoError(t, ws.Reset())
	fs := &fakeSearch{}

	files, err := NewArtifactBuilder(fs).BuildSearchBundle(context.Background(), ws, &domain.ChannelIndex{})
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, fs.calls)
}

func TestArchiveTranscriptsReflectsDisk(t *testing.T) {
	ws := Workspace{Root: t.TempDir()}
	require.NoError(t, ws.Reset())
	for _, id := range []string{"a", "b"} {
		require.NoError(t, transcript.WriteFile(ws.TranscriptPath(id), []domain.Line{{Text: id}}))
	}

	require.NoError(t, NewArtifactBuilder(nil).ArchiveTranscripts(context.Background(), ws))

	zr, err := zip.OpenReader(ws.ArchivePath())
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.json", "b.json"}, names)
	assert.Equal(t, filepath.Join(ws.Root, "transcripts.zip"), ws.ArchivePath())
}
