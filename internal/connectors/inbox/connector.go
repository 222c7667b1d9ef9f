package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// DefaultSettle is how long a file must be quiet before Watch emits it.
const DefaultSettle = 500 * time.Millisecond

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("inbox connector closed")

// bookMIMETypes covers extensions the mime package does not know.
var bookMIMETypes = map[string]string{
	".fb2":   "application/x-fictionbook+xml",
	".xml":   "application/xml",
	".html":  "text/html",
	".htm":   "text/html",
	".xhtml": "application/xhtml+xml",
	".zip":   "application/zip",
}

// partialSuffixes mark files that are still being written.
var partialSuffixes = []string{".part", ".tmp", ".crdownload", "~"}

// Connector reads book files from a directory.
type Connector struct {
	root     string
	maxBytes int64
	settle   time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates an inbox connector for root. Files larger than maxBytes are
// skipped (maxBytes <= 0 disables the limit).
func New(root string, maxBytes int64) *Connector {
	return &Connector{
		root:     root,
		maxBytes: maxBytes,
		settle:   DefaultSettle,
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "inbox"
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.root
}

// Scan emits every book file under root, then closes both channels.
// Source IDs are slash-separated paths relative to root.
func (c *Connector) Scan(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.checkRoot(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if path != c.root && skipName(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			doc, err := c.read(path)
			if err != nil {
				logger.Warn("inbox: skipping %s: %v", path, err)
				return nil
			}
			// Files in subdirectories keep their relative path so that
			// a/intro.fb2 and b/intro.fb2 stay distinct sources.
			if rel, err := filepath.Rel(c.root, path); err == nil {
				doc.SourceID = filepath.ToSlash(rel)
			}
			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- fmt.Errorf("scanning %s: %w", c.root, err)
		}
	}()

	return docs, errs
}

// Watch emits book files created or rewritten under root until ctx is
// cancelled. Only the top-level directory is watched.
//
//nolint:gocyclo // Event loop with debounce is inherently branchy
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocument, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if err := c.checkRoot(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(c.root); err != nil {
		c.mu.Unlock()
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", c.root, err)
	}
	c.watcher = watcher
	c.mu.Unlock()

	docs := make(chan domain.RawDocument)
	go func() {
		defer close(docs)
		defer c.stopWatcher(watcher)

		pending := make(map[string]time.Time)
		ticker := time.NewTicker(c.settle / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if path := c.handleEvent(event); path != "" {
					pending[path] = time.Now()
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					delete(pending, event.Name)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("inbox: watcher error: %v", err)

			case now := <-ticker.C:
				for path, last := range pending {
					if now.Sub(last) < c.settle {
						continue
					}
					delete(pending, path)

					doc, err := c.read(path)
					if err != nil {
						if !errors.Is(err, fs.ErrNotExist) {
							logger.Warn("inbox: skipping %s: %v", path, err)
						}
						continue
					}
					select {
					case docs <- *doc:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return docs, nil
}

// Close stops any active watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func (c *Connector) stopWatcher(w *fsnotify.Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == w {
		_ = w.Close()
		c.watcher = nil
	}
}

// handleEvent returns the path to (re)read for a create or write event.
func (c *Connector) handleEvent(event fsnotify.Event) string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return ""
	}
	if skipName(filepath.Base(event.Name)) {
		return ""
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return event.Name
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("inbox root %s: %w", c.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("inbox root %s: not a directory", c.root)
	}
	return nil
}

// read loads one file as a raw document.
func (c *Connector) read(path string) (*domain.RawDocument, error) {
	return ReadFile(path, c.maxBytes, c.Type())
}

// ReadFile loads a single book file as a raw document. The source ID is the
// base name and connector is recorded in the metadata. A positive maxBytes
// rejects larger files before reading them.
func ReadFile(path string, maxBytes int64, connector string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d", domain.ErrInvalidInput, info.Size(), maxBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &domain.RawDocument{
		SourceID: filepath.Base(path),
		MIMEType: detectMIMEType(path),
		Content:  content,
		Metadata: map[string]string{
			"connector": connector,
			"path":      path,
			"modified":  info.ModTime().UTC().Format(time.RFC3339),
		},
	}, nil
}

// detectMIMEType returns the media type for a file name without parameters.
func detectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := bookMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	return "application/octet-stream"
}

// skipName reports whether a file or directory name is hidden or partial.
func skipName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
