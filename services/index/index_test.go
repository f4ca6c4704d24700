package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meghashyamc/foliosearch/config"
	"github.com/meghashyamc/foliosearch/content"
	"github.com/meghashyamc/foliosearch/db/kvdb"
	"github.com/meghashyamc/foliosearch/db/searchdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/services/search"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

var testPosts = map[string]string{
	"posts/value-investing.md": "---\ntitle: Value Investing\ncategory: Finance\ntags: [finance]\n---\nNotes on value investing and margin of safety.\n",
	"posts/draft.md":           "---\ntitle: Draft\npublished: false\n---\nNot yet.\n",
	"projects/screener.md":     "---\ntitle: Screener\nstatus: completed\n---\nA stock screener.\n",
}

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relPath, body := range files {
		fullPath := filepath.Join(root, relPath)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, os.WriteFile(fullPath, []byte(body), 0644))
	}
}

type testDeps struct {
	engine  *search.Engine
	deepDB  *searchdb.BleveDB
	kvDB    *kvdb.BoltDB
	service *Service
}

func setupTestService(t *testing.T, source ContentSource) *testDeps {
	t.Helper()
	cfg, err := config.Load("test")
	require.NoError(t, err)
	cfg.Set("KVDB_PATH", filepath.Join(t.TempDir(), "meta.db"))
	cfg.Set("INDEX_PATH", "")

	log := newTestLogger()
	kvDB, err := kvdb.New(log, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { kvDB.Close() })

	deepDB, err := searchdb.New(log, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { deepDB.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := search.New(log)
	return &testDeps{
		engine:  engine,
		deepDB:  deepDB,
		kvDB:    kvDB,
		service: New(ctx, log, engine, source, deepDB, kvDB),
	}
}

// blockingSource holds Posts until release is closed.
type blockingSource struct {
	release chan struct{}
	err     error
}

func (b *blockingSource) Posts(ctx context.Context) ([]search.Record, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if b.err != nil {
		return nil, b.err
	}
	return []search.Record{{Slug: "only", Title: "Only Post", Content: "text"}}, nil
}

func (b *blockingSource) Projects(ctx context.Context) ([]search.Record, error) {
	return []search.Record{}, nil
}

func (b *blockingSource) Dirs() []string {
	return nil
}

func TestInitialize(t *testing.T) {
	assert := require.New(t)
	root := t.TempDir()
	writeFiles(t, root, testPosts)
	deps := setupTestService(t, content.NewLoader(newTestLogger(), root))

	requestID, err := deps.service.Initialize(context.Background())
	assert.NoError(err)
	assert.NotEmpty(requestID)

	status, err := deps.service.GetStatus(requestID)
	assert.NoError(err)
	assert.Equal(ProgressStatusComplete, status)

	assert.True(deps.engine.Indexed())
	stats := deps.engine.Stats()
	assert.Equal(2, stats.TotalItems)

	metadata, err := deps.service.GetMetadata()
	assert.NoError(err)
	assert.Equal(2, metadata.Items)
	assert.Equal(1, metadata.Posts)
	assert.Equal(1, metadata.Projects)
	assert.False(metadata.LastIndexed.IsZero())

	count, err := deps.deepDB.GetDocCount()
	assert.NoError(err)
	assert.EqualValues(2, count, "unpublished posts stay out of the deep index")
}

func TestBuildRejectsConcurrentRequests(t *testing.T) {
	assert := require.New(t)
	source := &blockingSource{release: make(chan struct{})}
	deps := setupTestService(t, source)

	assert.NoError(deps.service.Build("first"))
	assert.ErrorIs(deps.service.Build("second"), ErrIndexingInProgress)

	_, err := deps.service.GetStatus("second")
	assert.ErrorIs(err, kvdb.ErrNotFound, "rejected requests are not tracked")

	close(source.release)

	assert.Eventually(func() bool {
		status, err := deps.service.GetStatus("first")
		return err == nil && status == ProgressStatusComplete
	}, waitFor, tick)
	assert.Eventually(func() bool {
		return deps.service.Build("third") == nil
	}, waitFor, tick)
	assert.Eventually(func() bool {
		status, err := deps.service.GetStatus("third")
		return err == nil && status == ProgressStatusComplete
	}, waitFor, tick)

	assert.Equal(1, deps.engine.Stats().TotalItems)
}

func TestBuildFailure(t *testing.T) {
	assert := require.New(t)
	source := &blockingSource{release: make(chan struct{}), err: errors.New("disk on fire")}
	close(source.release)
	deps := setupTestService(t, source)

	_, err := deps.service.Initialize(context.Background())
	assert.Error(err)
	assert.False(deps.engine.Indexed())

	assert.NoError(deps.service.Build("failing"))
	assert.Eventually(func() bool {
		status, err := deps.service.GetStatus("failing")
		return err == nil && status == ProgressStatusFailed
	}, waitFor, tick)

	_, err = deps.service.GetMetadata()
	assert.ErrorIs(err, kvdb.ErrNotFound)
}

func TestGetStatusUnknownRequest(t *testing.T) {
	assert := require.New(t)
	deps := setupTestService(t, &blockingSource{release: make(chan struct{})})

	_, err := deps.service.GetStatus("missing")
	assert.ErrorIs(err, kvdb.ErrNotFound)
}

func TestWatchRebuildsOnContentChange(t *testing.T) {
	assert := require.New(t)
	root := t.TempDir()
	writeFiles(t, root, testPosts)
	deps := setupTestService(t, content.NewLoader(newTestLogger(), root))

	_, err := deps.service.Initialize(context.Background())
	assert.NoError(err)
	assert.Equal(2, deps.engine.Stats().TotalItems)

	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- deps.service.Watch(ctx, 50*time.Millisecond)
	}()

	// give the watcher time to register the directories
	time.Sleep(200 * time.Millisecond)
	writeFiles(t, root, map[string]string{
		"posts/new-post.md": "---\ntitle: New Post\n---\nFresh content.\n",
	})

	assert.Eventually(func() bool {
		return deps.engine.Stats().TotalItems == 3
	}, waitFor, tick)

	cancel()
	assert.NoError(<-watchDone)
}

func TestDocumentsFollowIngestionRules(t *testing.T) {
	assert := require.New(t)
	unpublished := false
	tee := &teeSource{
		posts: []search.Record{
			{Slug: "a", Title: "A", Content: "long content"},
			{Slug: "a", Title: "Duplicate"},
			{Slug: "", Title: "No slug"},
			{Slug: "hidden", Published: &unpublished},
			{Slug: "untitled", Title: "  "},
		},
		projects: []search.Record{{Slug: "a", Title: "Project A", Tags: []string{"go"}}},
	}

	documents := tee.documents()
	assert.Len(documents, 3)
	assert.Equal("post-a", documents[0].ID)
	assert.Equal("A", documents[0].Title)
	assert.Equal("untitled", documents[1].Title)
	assert.Equal("project-a", documents[2].ID)
	assert.Equal("project", documents[2].Type)
	assert.Equal([]string{"go"}, documents[2].Tags)
}
