package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/shelf/internal/adapters/driven/storage"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/logger"
)

// Ensure BookStore implements the interface.
var _ driven.BookStore = (*BookStore)(nil)

const bookExt = ".json"

// BookStore keeps one JSON file per book in a directory.
type BookStore struct {
	dir     string
	timeout time.Duration
	locks   storage.KeyedMutex

	// beforePublish runs after the temporary file is synced. Tests use it
	// to cancel a save mid-flight or to race another writer.
	beforePublish func()
}

// NewBookStore creates the books directory if needed. timeout bounds each
// operation whose context has no deadline; zero disables it.
func NewBookStore(dir string, timeout time.Duration) (*BookStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating books directory: %w", err)
	}
	return &BookStore{dir: dir, timeout: timeout}, nil
}

// Dir returns the books directory.
func (s *BookStore) Dir() string {
	return s.dir
}

func (s *BookStore) path(id string) string {
	return filepath.Join(s.dir, id+bookExt)
}

// Save writes the book atomically.
func (s *BookStore) Save(ctx context.Context, book *domain.Book, opts domain.SaveOptions) error {
	if book == nil || !domain.ValidBookID(book.ID) {
		return fmt.Errorf("%w: invalid book id", domain.ErrStorage)
	}

	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return storage.Fail("saving book", err)
	}

	unlock, err := s.locks.Lock(ctx, book.ID)
	if err != nil {
		return storage.Fail("waiting for book lock", err)
	}
	defer unlock()

	target := s.path(book.ID)
	if _, err := os.Stat(target); err == nil {
		if !opts.Overwrite {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, book.ID)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return storage.Fail("checking book", err)
	}

	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return storage.Fail("encoding book", err)
	}

	return storage.Fail("writing book", s.writeAtomic(ctx, target, data, opts.Overwrite))
}

// writeAtomic publishes data at target through a synced temp file. Without
// overwrite the temp file is hard-linked into place, which fails if target
// exists, so a book written meanwhile by another process is never replaced.
func (s *BookStore) writeAtomic(ctx context.Context, target string, data []byte, overwrite bool) (err error) {
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	if s.beforePublish != nil {
		s.beforePublish()
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	if overwrite {
		if err = os.Rename(tmp.Name(), target); err != nil {
			return err
		}
		return syncDir(s.dir)
	}

	if err = os.Link(tmp.Name(), target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = fmt.Errorf("%w: %s", domain.ErrDuplicateID, strings.TrimSuffix(filepath.Base(target), bookExt))
		}
		return err
	}
	if rmErr := os.Remove(tmp.Name()); rmErr != nil {
		logger.Warn("removing temp book file %s: %v", tmp.Name(), rmErr)
	}
	return syncDir(s.dir)
}

// Load reads a book by ID.
func (s *BookStore) Load(ctx context.Context, id string) (*domain.Book, error) {
	if !domain.ValidBookID(id) {
		return nil, domain.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, storage.Fail("loading book", err)
	}
	return readBook(s.path(id))
}

func readBook(path string) (*domain.Book, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storage.Fail("reading book", err)
	}
	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, storage.Fail("decoding "+filepath.Base(path), err)
	}
	return &book, nil
}

// List returns summaries of every stored book ordered by ID.
func (s *BookStore) List(ctx context.Context) ([]domain.BookSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, storage.Fail("listing books", err)
	}

	summaries := make([]domain.BookSummary, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, bookExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, storage.Fail("listing books", err)
		}
		book, err := readBook(filepath.Join(s.dir, name))
		if errors.Is(err, domain.ErrNotFound) {
			continue // deleted while listing
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, book.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Delete removes a book.
func (s *BookStore) Delete(ctx context.Context, id string) error {
	if !domain.ValidBookID(id) {
		return domain.ErrNotFound
	}

	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return storage.Fail("waiting for book lock", err)
	}
	defer unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return storage.Fail("deleting book", err)
	}
	return storage.Fail("syncing books directory", syncDir(s.dir))
}

// syncDir flushes directory entries so a rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}
