package api

import (
	"context"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// mockIngest implements driving.IngestService with a fixed error.
type mockIngest struct {
	err error
}

func (m *mockIngest) Ingest(_ context.Context, raw domain.RawDocument, _ domain.IngestOptions) (*domain.IngestResult, error) {
	res := &domain.IngestResult{Ticket: "t", SourceID: raw.SourceID, State: domain.StateFailed, Outcome: domain.OutcomeFor(m.err)}
	if m.err != nil {
		res.Message = m.err.Error()
	}
	return res, m.err
}

func (m *mockIngest) IngestAll(ctx context.Context, raws []domain.RawDocument, opts domain.IngestOptions) []domain.IngestResult {
	out := make([]domain.IngestResult, len(raws))
	for i, raw := range raws {
		res, _ := m.Ingest(ctx, raw, opts)
		out[i] = *res
	}
	return out
}

func (m *mockIngest) Status(context.Context, string) (*domain.IngestResult, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngest) Stats(context.Context) domain.IngestStats {
	return domain.IngestStats{}
}
