package filesystem

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelf/internal/adapters/driven/storage"
	"github.com/custodia-labs/shelf/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *BookStore {
	t.Helper()
	s, err := NewBookStore(filepath.Join(t.TempDir(), "books"), time.Second)
	require.NoError(t, err)
	return s
}

func TestBookStore_Behaviour(t *testing.T) {
	storetest.RunBookStore(t, func(t *testing.T) driven.BookStore {
		return newTestStore(t)
	})
}

func TestBookStore_FileLayout(t *testing.T) {
	s := newTestStore(t)
	book := storetest.NewBook("t1")
	require.NoError(t, s.Save(context.Background(), book, domain.SaveOptions{}))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "t1.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "t1", decoded["id"])
	assert.Equal(t, "Title of t1", decoded["title"])
	assert.Equal(t, "2026-05-04T03:02:01.123456789Z", decoded["ingested_at"])

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files should remain")
}

func TestBookStore_CancelBeforeRenameLeavesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	s.beforePublish = cancel

	err := s.Save(ctx, storetest.NewBook("half"), domain.SaveOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Load(context.Background(), "half")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBookStore_CancelledOverwriteKeepsOriginal(t *testing.T) {
	s := newTestStore(t)
	original := storetest.NewBook("keep")
	require.NoError(t, s.Save(context.Background(), original, domain.SaveOptions{}))

	ctx, cancel := context.WithCancel(context.Background())
	s.beforePublish = cancel
	replacement := storetest.NewBook("keep")
	replacement.Title = "never visible"
	err := s.Save(ctx, replacement, domain.SaveOptions{Overwrite: true})
	assert.ErrorIs(t, err, domain.ErrStorage)

	got, err := s.Load(context.Background(), "keep")
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestBookStore_WriterOutsideProcessWins(t *testing.T) {
	s := newTestStore(t)
	other := []byte(`{"id":"shared","title":"written elsewhere"}`)
	s.beforePublish = func() {
		// Another process sharing the directory publishes the same ID
		// after our existence check.
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "shared.json"), other, 0o600))
	}

	err := s.Save(context.Background(), storetest.NewBook("shared"), domain.SaveOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.NotErrorIs(t, err, domain.ErrStorage)

	data, err := os.ReadFile(filepath.Join(s.Dir(), "shared.json"))
	require.NoError(t, err)
	assert.Equal(t, other, data, "existing book must not be replaced")

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file removed")
}

func TestBookStore_OverwriteReplacesOutsideWriter(t *testing.T) {
	s := newTestStore(t)
	s.beforePublish = func() {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "shared.json"), []byte(`{"id":"shared"}`), 0o600))
	}

	book := storetest.NewBook("shared")
	require.NoError(t, s.Save(context.Background(), book, domain.SaveOptions{Overwrite: true}))

	got, err := s.Load(context.Background(), "shared")
	require.NoError(t, err)
	assert.Equal(t, book, got)
}

func TestBookStore_SaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(context.Background(), storetest.NewBook("one"), domain.SaveOptions{}))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "one.json", entries[0].Name())
}

func TestBookStore_TimeoutWaitingForLock(t *testing.T) {
	s, err := NewBookStore(filepath.Join(t.TempDir(), "books"), 30*time.Millisecond)
	require.NoError(t, err)

	unlock, err := s.locks.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer unlock()

	err = s.Save(context.Background(), storetest.NewBook("busy"), domain.SaveOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBookStore_InvalidIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Save(ctx, storetest.NewBook("../escape"), domain.SaveOptions{})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, s.Save(ctx, nil, domain.SaveOptions{}), domain.ErrStorage)

	_, err = s.Load(ctx, "../escape")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ".hidden"), domain.ErrNotFound)
}

func TestBookStore_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "bad.json"), []byte("{not json"), 0o644))

	_, err := s.Load(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestBookStore_ListSkipsTemporaryFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(context.Background(), storetest.NewBook("a"), domain.SaveOptions{}))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".a.json.123.tmp"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func TestBookStore_ExternalDeadlineWins(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := storage.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	require.NoError(t, s.Save(ctx, storetest.NewBook("slow"), domain.SaveOptions{}))
}
