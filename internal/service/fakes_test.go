package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/timmy/chanindex/internal/archive"
	"github.com/timmy/chanindex/internal/domain"
	"github.com/timmy/chanindex/internal/search"
	"github.com/timmy/chanindex/internal/source"
	"github.com/timmy/chanindex/internal/storage"
	"github.com/timmy/chanindex/internal/transcript"
)

var fixedNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

type fakeLister struct {
	items []source.Candidate
	err   error
	panic bool
}

func (f *fakeLister) GetSourceID() string { return "fake" }

func (f *fakeLister) FetchBatch(ctx context.Context, platform domain.Platform, channel, cursor string, limit int) ([]source.Candidate, string, error) {
	if f.panic {
		panic("lister exploded")
	}
	if f.err != nil {
		return nil, "", f.err
	}
	return f.items, "", nil
}

func candidate(id string) source.Candidate {
	return source.Candidate{ID: id, Title: "Title " + id, URL: "https://www.youtube.com/watch?v=" + id}
}

type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]*source.Extraction
	errs    map[string]error
	calls   []string
}

func srtExtraction(date, text string) *source.Extraction {
	return &source.Extraction{
		UploadDate: date,
		Language:   "en",
		Format:     "srt",
		Data:       []byte("1\n00:00:00,000 --> 00:00:01,500\n" + text + "\n"),
	}
}

func (f *fakeExtractor) Extract(ctx context.Context, platform domain.Platform, videoID string) (*source.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, videoID)
	ext := f.results[videoID]
	if err, ok := f.errs[videoID]; ok {
		return ext, err
	}
	if ext != nil {
		return ext, nil
	}
	return nil, source.ErrNoCaptions
}

type fakeSearch struct {
	records []search.Record
	err     error
	calls   int
}

func (f *fakeSearch) Build(ctx context.Context, records []search.Record, outDir string) ([]string, error) {
	f.calls++
	f.records = records
	if f.err != nil {
		return nil, f.err
	}
	files := []string{domain.SearchEntryFileName, "index/en_1.pf_index"}
	for _, rel := range files {
		p := filepath.Join(outDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte("bundle"), 0644); err != nil {
			return nil, err
		}
	}
	return files, nil
}

type stateUpdate struct {
	key   domain.JobKey
	state domain.JobState
}

type fakeJobs struct {
	mu        sync.Mutex
	pending   []*domain.Job
	claimErr  error
	updateErr error
	updates   []stateUpdate
}

func (f *fakeJobs) ClaimOldest(ctx context.Context, from, to domain.JobState) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	for i, j := range f.pending {
		if j.JobState == from {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return j, nil
		}
	}
	return nil, nil
}

func (f *fakeJobs) UpdateState(ctx context.Context, key domain.JobKey, state domain.JobState) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, stateUpdate{key: key, state: state})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Job{PlatformID: key.PlatformID, ChannelID: key.ChannelID, JobState: state}, nil
}

func (f *fakeJobs) lastState(t *testing.T) domain.JobState {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.updates)
	return f.updates[len(f.updates)-1].state
}

type fakePurger struct {
	urls []string
	err  error
}

func (f *fakePurger) Purge(ctx context.Context, urls []string) error {
	f.urls = append(f.urls, urls...)
	return f.err
}

// harness wires a full pipeline over filesystem storage.
type harness struct {
	store     *storage.FSStorage
	scratch   string
	lister    *fakeLister
	extractor *fakeExtractor
	search    *fakeSearch
	jobs      *fakeJobs
	purger    *fakePurger
	builder   *ArtifactBuilder
	indexer   *ChannelIndexer
}

func newHarness(t *testing.T, mode Mode) *harness {
	t.Helper()
	base := t.TempDir()
	store, err := storage.NewFSStorage(filepath.Join(base, "bucket"), "https://cdn.example.com")
	require.NoError(t, err)

	parser, err := transcript.NewParser("srt")
	require.NoError(t, err)

	h := &harness{
		store:     store,
		scratch:   filepath.Join(base, "tmp"),
		lister:    &fakeLister{},
		extractor: &fakeExtractor{results: map[string]*source.Extraction{}, errs: map[string]error{}},
		search:    &fakeSearch{},
		jobs:      &fakeJobs{},
		purger:    &fakePurger{},
	}
	acq := NewAcquisition(h.lister, h.extractor, parser, AcquisitionConfig{StopAtCached: true})
	h.builder = NewArtifactBuilder(h.search)
	h.builder.now = func() time.Time { return fixedNow }
	pub := NewPublisher(store, h.purger, 2)
	h.indexer = NewChannelIndexer(h.jobs, store, acq, h.builder, pub, IndexerConfig{Mode: mode, ScratchDir: h.scratch})
	return h
}

func (h *harness) job(state domain.JobState) *domain.Job {
	return &domain.Job{PlatformID: domain.PlatformYouTube, ChannelID: "chan", JobState: state}
}

func (h *harness) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := h.store.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func (h *harness) publishedIndex(t *testing.T) *domain.ChannelIndex {
	t.Helper()
	rc, err := h.store.Download(context.Background(), domain.IndexKey(domain.PlatformYouTube, "chan"))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	var idx domain.ChannelIndex
	require.NoError(t, idx.UnmarshalJSON(data))
	return &idx
}

// seedPrior publishes a prior manifest and a transcript archive for the channel.
func (h *harness) seedPrior(t *testing.T, index *domain.ChannelIndex, transcripts map[string][]domain.Line) {
	t.Helper()
	ctx := context.Background()
	data, err := index.MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, h.store.Upload(ctx, domain.IndexKey(domain.PlatformYouTube, "chan"), bytes.NewReader(data), int64(len(data)), "application/json"))

	dir := filepath.Join(t.TempDir(), "seed")
	for id, lines := range transcripts {
		require.NoError(t, transcript.WriteFile(filepath.Join(dir, transcript.FileName(id)), lines))
	}
	require.NoError(t, os.MkdirAll(dir, 0755))
	zipPath := filepath.Join(t.TempDir(), "seed.zip")
	_, err = archive.ZipDir(dir, transcript.FileExt, zipPath)
	require.NoError(t, err)
	require.NoError(t, storage.UploadFile(ctx, h.store, domain.ArchiveKey(domain.PlatformYouTube, "chan"), zipPath))
}

var errBoom = errors.New("boom")
