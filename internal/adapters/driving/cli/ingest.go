package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

var (
	ingestURLs      []string
	ingestOverwrite bool
	ingestJSON      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|dir]...",
	Short: "Ingest book files, directories or URLs",
	Long: `Runs each document through parse, normalise and store.

Files are read as-is, directories are scanned for book files (hidden and
partially written files are skipped) and --url downloads a document first.
Every document gets its own pipeline; failures do not stop the batch.

Examples:
  shelf ingest war-and-peace.fb2
  shelf ingest ~/Downloads/books
  shelf ingest --url https://example.com/b/123/fb2 --overwrite`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringArrayVarP(&ingestURLs, "url", "u", nil, "download and ingest a URL (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestOverwrite, "overwrite", false, "replace books that already exist")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// loadFailure is a document that never reached the pipeline.
type loadFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errIngestNotConfigured
	}
	if len(args) == 0 && len(ingestURLs) == 0 {
		return errors.New("nothing to ingest: pass files, directories or --url")
	}

	ctx := cmd.Context()
	raws, failures := collectLocal(ctx, args)
	fetched, fetchFailures := collectURLs(ctx, ingestURLs)
	raws = append(raws, fetched...)
	failures = append(failures, fetchFailures...)

	results := ingestService.IngestAll(ctx, raws, domain.IngestOptions{Overwrite: ingestOverwrite})

	if ingestJSON {
		if err := outputIngestJSON(cmd, results, failures); err != nil {
			return err
		}
	} else {
		outputIngestSummary(cmd, results, failures)
	}

	failed := len(failures)
	for i := range results {
		if !results[i].Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results)+len(failures))
	}
	return nil
}

// collectLocal reads files and scans directories in argument order.
func collectLocal(ctx context.Context, paths []string) ([]domain.RawDocument, []loadFailure) {
	var (
		raws     []domain.RawDocument
		failures []loadFailure
	)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			failures = append(failures, loadFailure{Source: path, Error: err.Error()})
			continue
		}

		if !info.IsDir() {
			if readFile == nil {
				failures = append(failures, loadFailure{Source: path, Error: "file reading not configured"})
				continue
			}
			raw, err := readFile(path)
			if err != nil {
				failures = append(failures, loadFailure{Source: path, Error: err.Error()})
				continue
			}
			raws = append(raws, *raw)
			continue
		}

		if openDir == nil {
			failures = append(failures, loadFailure{Source: path, Error: "directory scanning not configured"})
			continue
		}
		conn := openDir(path)
		docs, errs := conn.Scan(ctx)
		for doc := range docs {
			raws = append(raws, doc)
		}
		for err := range errs {
			failures = append(failures, loadFailure{Source: path, Error: err.Error()})
		}
		_ = conn.Close()
	}
	return raws, failures
}

// collectURLs downloads URLs concurrently, keeping argument order.
func collectURLs(ctx context.Context, urls []string) ([]domain.RawDocument, []loadFailure) {
	if len(urls) == 0 {
		return nil, nil
	}
	if fetcher == nil {
		failures := make([]loadFailure, len(urls))
		for i, u := range urls {
			failures[i] = loadFailure{Source: u, Error: "url fetching not configured"}
		}
		return nil, failures
	}

	docs := make([]*domain.RawDocument, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(max(1, settings.Ingest.Workers))
	for i := range urls {
		g.Go(func() error {
			docs[i], errs[i] = fetcher.Fetch(ctx, urls[i])
			return nil
		})
	}
	_ = g.Wait()

	var (
		raws     []domain.RawDocument
		failures []loadFailure
	)
	for i := range urls {
		if errs[i] != nil {
			failures = append(failures, loadFailure{Source: urls[i], Error: errs[i].Error()})
			continue
		}
		raws = append(raws, *docs[i])
	}
	return raws, failures
}

func outputIngestJSON(cmd *cobra.Command, results []domain.IngestResult, failures []loadFailure) error {
	out := struct {
		Results  []domain.IngestResult `json:"results"`
		Failures []loadFailure         `json:"load_failures,omitempty"`
	}{Results: results, Failures: failures}
	if out.Results == nil {
		out.Results = []domain.IngestResult{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputIngestSummary(cmd *cobra.Command, results []domain.IngestResult, failures []loadFailure) {
	st := NewStyles(nil, cmd.OutOrStdout())

	succeeded := 0
	for i := range results {
		res := &results[i]
		if res.Succeeded() {
			succeeded++
			cmd.Printf("  %s  %s -> %s", st.Outcome(res.Outcome), res.SourceID, res.BookID)
			if n := len(res.Diagnostics); n > 0 {
				cmd.Print(st.Render(st.Muted, fmt.Sprintf(" (%d recovered errors)", n)))
			}
			cmd.Println()
			continue
		}
		cmd.Printf("  %s  %s\n", st.Outcome(res.Outcome), res.SourceID)
		cmd.Printf("      %s\n", st.Render(st.Muted, res.Message))
	}
	for _, f := range failures {
		cmd.Printf("  %s  %s\n", st.Render(st.Error, "load-error"), f.Source)
		cmd.Printf("      %s\n", st.Render(st.Muted, f.Error))
	}

	total := len(results) + len(failures)
	summary := fmt.Sprintf("Ingested %d of %d documents", succeeded, total)
	cmd.Println()
	cmd.Println(st.Render(st.Box, st.Render(st.Title, summary)))
}
