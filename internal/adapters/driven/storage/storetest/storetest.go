// Package storetest holds behaviour tests shared by every BookStore and
// RecordLog backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

// NewBook returns a fully populated book with the given ID.
func NewBook(id string) *domain.Book {
	return &domain.Book{
		ID:       id,
		SourceID: id + ".fb2",
		Title:    "Title of " + id,
		Sections: []domain.Section{
			{Label: "Глава 1", Body: "Первая строка\nвторая"},
			{Label: "section-2", Body: ""},
		},
		Metadata: map[string]string{
			"author":   "Лев Толстой",
			"format":   "fb2",
			"encoding": "windows-1251",
		},
		IngestedAt: time.Date(2026, 5, 4, 3, 2, 1, 123456789, time.UTC),
	}
}

// NewRecord returns a record for sourceID with the given outcome.
func NewRecord(sourceID string, outcome domain.Outcome, at time.Time) domain.IngestionRecord {
	return domain.IngestionRecord{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		BookID:      domain.BookID(sourceID),
		Outcome:     outcome,
		Timestamp:   at.UTC(),
		Message:     "message for " + sourceID,
		Diagnostics: 2,
		Duration:    1500 * time.Microsecond,
	}
}

// RunBookStore runs the shared BookStore behaviour tests. newStore must
// return an empty store.
func RunBookStore(t *testing.T, newStore func(t *testing.T) driven.BookStore) {
	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		book := NewBook("war-and-peace")

		require.NoError(t, s.Save(ctx, book, domain.SaveOptions{}))

		got, err := s.Load(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, book, got)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(context.Background(), "absent")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := NewBook("dup")
		second := NewBook("dup")
		second.Title = "Replacement"

		require.NoError(t, s.Save(ctx, first, domain.SaveOptions{}))
		err := s.Save(ctx, second, domain.SaveOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateID)

		got, err := s.Load(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, first.Title, got.Title)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, NewBook("ow"), domain.SaveOptions{}))

		replacement := NewBook("ow")
		replacement.Title = "Second edition"
		replacement.Sections = replacement.Sections[:1]
		require.NoError(t, s.Save(ctx, replacement, domain.SaveOptions{Overwrite: true}))

		got, err := s.Load(ctx, "ow")
		require.NoError(t, err)
		assert.Equal(t, replacement, got)
	})

	t.Run("ListOrderedByID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		empty, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, s.Save(ctx, NewBook(id), domain.SaveOptions{}))
		}

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "a", list[0].ID)
		assert.Equal(t, "b", list[1].ID)
		assert.Equal(t, "c", list[2].ID)
		assert.Equal(t, NewBook("a").Summary(), list[0])
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, NewBook("gone"), domain.SaveOptions{}))

		require.NoError(t, s.Delete(ctx, "gone"))
		_, err := s.Load(ctx, "gone")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "gone"), domain.ErrNotFound)

		require.NoError(t, s.Save(ctx, NewBook("gone"), domain.SaveOptions{}))
	})

	t.Run("ConcurrentSameID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const writers = 8

		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				book := NewBook("race")
				book.Title = fmt.Sprintf("writer %d", i)
				errs[i] = s.Save(ctx, book, domain.SaveOptions{})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrDuplicateID)
		}
		assert.Equal(t, 1, succeeded)

		got, err := s.Load(ctx, "race")
		require.NoError(t, err)
		assert.Contains(t, got.Title, "writer ")
	})

	t.Run("ConcurrentDistinctIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const writers = 16

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.Save(ctx, NewBook(fmt.Sprintf("book-%02d", i)), domain.SaveOptions{})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, writers)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.Save(ctx, NewBook("cancelled"), domain.SaveOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.True(t, errors.Is(err, context.Canceled))

		_, err = s.Load(context.Background(), "cancelled")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// RunRecordLog runs the shared RecordLog behaviour tests. newLog must
// return an empty log.
func RunRecordLog(t *testing.T, newLog func(t *testing.T) driven.RecordLog) {
	t.Run("AppendAndRecent", func(t *testing.T) {
		l := newLog(t)
		ctx := context.Background()
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		first := NewRecord("one.fb2", domain.OutcomeSuccess, base)
		second := NewRecord("two.fb2", domain.OutcomeParseError, base.Add(time.Second))
		third := NewRecord("three.fb2", domain.OutcomeStorageError, base.Add(2*time.Second))
		l.Append(ctx, first)
		l.Append(ctx, second)
		l.Append(ctx, third)

		all, err := l.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []domain.IngestionRecord{third, second, first}, all)

		two, err := l.Recent(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []domain.IngestionRecord{third, second}, two)
		assert.Equal(t, int64(0), l.Dropped())
	})

	t.Run("Empty", func(t *testing.T) {
		l := newLog(t)
		got, err := l.Recent(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		l := newLog(t)
		ctx := context.Background()
		const n = 50

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				l.Append(ctx, NewRecord(fmt.Sprintf("doc-%d", i), domain.OutcomeSuccess, time.Now()))
			}(i)
		}
		wg.Wait()

		got, err := l.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, got, n)

		seen := make(map[string]bool)
		for _, rec := range got {
			assert.False(t, seen[rec.ID], "duplicate record %s", rec.ID)
			seen[rec.ID] = true
		}
	})
}
