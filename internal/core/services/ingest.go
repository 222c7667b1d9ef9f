package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/core/ports/driving"
	"github.com/custodia-labs/shelf/internal/logger"
)

// Ensure Coordinator implements the interface.
var _ driving.IngestService = (*Coordinator)(nil)

const (
	// DefaultWorkers bounds IngestAll when no worker count is configured.
	DefaultWorkers = 4

	// DefaultRecordTimeout bounds a single record append.
	DefaultRecordTimeout = 5 * time.Second

	// historySize is the number of finished tickets kept for Status.
	historySize = 256
)

// CoordinatorOptions tunes a Coordinator.
type CoordinatorOptions struct {
	// Workers bounds the number of concurrent pipelines in IngestAll.
	Workers int

	// RecordTimeout bounds each record append. The append is detached from
	// the caller's cancellation so a cancelled ingest is still recorded.
	RecordTimeout time.Duration
}

// Coordinator runs each document through parse, normalise and store.
// Every call owns its intermediate tree and book; only counters and the
// ticket history are shared between calls.
type Coordinator struct {
	parsers    driven.ParserRegistry
	normaliser driven.Normaliser
	books      driven.BookStore
	records    driven.RecordLog

	workers       int
	recordTimeout time.Duration
	now           func() time.Time
	newTicket     func() string

	// Ticket history
	mu       sync.RWMutex
	tickets  map[string]*domain.IngestResult
	finished []string
	failed   map[domain.Outcome]int64

	received  atomic.Int64
	succeeded atomic.Int64
	inFlight  atomic.Int64
}

// NewCoordinator creates a coordinator over the given pipeline stages.
func NewCoordinator(
	parsers driven.ParserRegistry,
	normaliser driven.Normaliser,
	books driven.BookStore,
	records driven.RecordLog,
	opts CoordinatorOptions,
) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = DefaultRecordTimeout
	}
	return &Coordinator{
		parsers:       parsers,
		normaliser:    normaliser,
		books:         books,
		records:       records,
		workers:       opts.Workers,
		recordTimeout: opts.RecordTimeout,
		now:           time.Now,
		newTicket:     uuid.NewString,
		tickets:       make(map[string]*domain.IngestResult),
		failed:        make(map[domain.Outcome]int64),
	}
}

// Ingest runs one document through the pipeline. Exactly one ingestion
// record is appended per call, whatever the outcome.
func (c *Coordinator) Ingest(
	ctx context.Context,
	raw domain.RawDocument,
	opts domain.IngestOptions,
) (*domain.IngestResult, error) {
	start := c.now()
	res := &domain.IngestResult{
		Ticket:   c.newTicket(),
		SourceID: raw.SourceID,
		State:    domain.StateReceived,
	}
	c.track(res)
	c.received.Add(1)
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	logger.Debug("Ingest %s: received %s (%d bytes)", res.Ticket, raw.SourceID, len(raw.Content))

	bookID, err := c.run(ctx, &raw, opts, res)
	c.finish(ctx, res, bookID, err, start)

	return c.snapshot(res), err
}

// run drives the stages and returns the derived book ID, if one was reached.
func (c *Coordinator) run(
	ctx context.Context,
	raw *domain.RawDocument,
	opts domain.IngestOptions,
	res *domain.IngestResult,
) (string, error) {
	if err := raw.Validate(); err != nil {
		return "", fmt.Errorf("%w: empty source id: %w", domain.ErrParse, err)
	}

	c.setState(res, domain.StateParsing)
	tree, err := c.parse(ctx, raw)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	res.Diagnostics = append([]domain.Diagnostic(nil), tree.Diagnostics...)
	c.mu.Unlock()
	for _, d := range tree.Diagnostics {
		logger.Debug("Ingest %s: %s", res.Ticket, d.String())
	}

	c.setState(res, domain.StateNormalizing)
	book, err := c.normalise(ctx, tree, raw.SourceID)
	if err != nil {
		return "", err
	}

	c.setState(res, domain.StateStoring)
	if err := c.save(ctx, book, opts); err != nil {
		return book.ID, err
	}
	return book.ID, nil
}

func (c *Coordinator) parse(ctx context.Context, raw *domain.RawDocument) (tree *domain.ParsedTree, err error) {
	defer func() {
		if r := recover(); r != nil {
			tree, err = nil, fmt.Errorf("%w: parser panic: %v", domain.ErrParse, r)
		}
	}()

	tree, err = c.parsers.Parse(ctx, raw)
	switch {
	case err == nil && tree == nil:
		return nil, fmt.Errorf("%w: parser returned no tree", domain.ErrParse)
	case err == nil:
		return tree, nil
	case errors.Is(err, domain.ErrParse), errors.Is(err, domain.ErrInvalidInput):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
}

func (c *Coordinator) normalise(ctx context.Context, tree *domain.ParsedTree, sourceID string) (book *domain.Book, err error) {
	defer func() {
		if r := recover(); r != nil {
			book, err = nil, fmt.Errorf("%w: normaliser panic: %v", domain.ErrNormalization, r)
		}
	}()

	book, err = c.normaliser.Normalise(ctx, tree, sourceID)
	switch {
	case err == nil && book == nil:
		return nil, fmt.Errorf("%w: normaliser returned no book", domain.ErrNormalization)
	case err == nil:
		return book, nil
	case errors.Is(err, domain.ErrNormalization):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrNormalization, err)
	}
}

func (c *Coordinator) save(ctx context.Context, book *domain.Book, opts domain.IngestOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: store panic: %v", domain.ErrStorage, r)
		}
	}()

	err = c.books.Save(ctx, book, domain.SaveOptions{Overwrite: opts.Overwrite})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDuplicateID):
		// Duplicates are recorded as storage errors but keep their own
		// sentinel so callers can tell them apart.
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	case errors.Is(err, domain.ErrStorage):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
}

// finish moves the result to its terminal state and appends the record.
func (c *Coordinator) finish(ctx context.Context, res *domain.IngestResult, bookID string, err error, start time.Time) {
	outcome := domain.OutcomeFor(err)

	c.mu.Lock()
	res.Outcome = outcome
	if err == nil {
		res.State = domain.StateSucceeded
		res.BookID = bookID
	} else {
		res.State = domain.StateFailed
		res.Message = err.Error()
		c.failed[outcome]++
	}
	diagnostics := len(res.Diagnostics)
	c.finished = append(c.finished, res.Ticket)
	if len(c.finished) > historySize {
		delete(c.tickets, c.finished[0])
		c.finished = c.finished[1:]
	}
	c.mu.Unlock()

	end := c.now()
	record := domain.IngestionRecord{
		ID:          res.Ticket,
		SourceID:    res.SourceID,
		BookID:      bookID,
		Outcome:     outcome,
		Timestamp:   end.UTC(),
		Diagnostics: diagnostics,
		Duration:    end.Sub(start),
	}
	if err != nil {
		record.Message = err.Error()
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.recordTimeout)
	c.records.Append(recordCtx, record)
	cancel()

	if err != nil {
		logger.Warn("Ingest %s: %s failed (%s): %v", res.Ticket, res.SourceID, outcome, err)
		return
	}
	c.succeeded.Add(1)
	logger.Info("Ingested %s as %s (%d diagnostics, %s)",
		res.SourceID, bookID, diagnostics, record.Duration.Round(time.Millisecond))
}

// IngestAll ingests documents with at most Workers pipelines in flight.
func (c *Coordinator) IngestAll(
	ctx context.Context,
	raws []domain.RawDocument,
	opts domain.IngestOptions,
) []domain.IngestResult {
	results := make([]domain.IngestResult, len(raws))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := range raws {
		g.Go(func() error {
			// Failures are per document; never cancel siblings.
			res, _ := c.Ingest(ctx, raws[i], opts)
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Status returns the current state of an in-flight or recently finished
// ingestion.
func (c *Coordinator) Status(_ context.Context, ticket string) (*domain.IngestResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res, ok := c.tickets[ticket]
	if !ok {
		return nil, fmt.Errorf("ingestion %s: %w", ticket, domain.ErrNotFound)
	}
	return copyResult(res), nil
}

// Stats returns cumulative counters.
func (c *Coordinator) Stats(_ context.Context) domain.IngestStats {
	c.mu.RLock()
	failed := make(map[domain.Outcome]int64, len(c.failed))
	for k, v := range c.failed {
		failed[k] = v
	}
	c.mu.RUnlock()

	return domain.IngestStats{
		Received:       c.received.Load(),
		Succeeded:      c.succeeded.Load(),
		Failed:         failed,
		InFlight:       c.inFlight.Load(),
		DroppedRecords: c.records.Dropped(),
	}
}

func (c *Coordinator) track(res *domain.IngestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickets[res.Ticket] = res
}

func (c *Coordinator) setState(res *domain.IngestResult, state domain.IngestState) {
	c.mu.Lock()
	res.State = state
	c.mu.Unlock()
	logger.Debug("Ingest %s: %s", res.Ticket, state)
}

func (c *Coordinator) snapshot(res *domain.IngestResult) *domain.IngestResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyResult(res)
}

// copyResult returns a copy safe to hand out (caller must hold the lock).
func copyResult(res *domain.IngestResult) *domain.IngestResult {
	out := *res
	out.Diagnostics = append([]domain.Diagnostic(nil), res.Diagnostics...)
	return &out
}
