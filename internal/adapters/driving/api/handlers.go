package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/shelf/internal/core/domain"
)

// SourceHeader carries the source identifier of a raw ingest body.
const SourceHeader = "X-Source-ID"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"formats": s.books.Formats(),
	})
}

// handleIngest runs one document through the pipeline.
// POST /api/books
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	raw, err := readDocument(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	overwrite, err := queryBool(r, "overwrite")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.ingest.Ingest(r.Context(), *raw, domain.IngestOptions{Overwrite: overwrite})
	status := http.StatusCreated
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, res)
}

// readDocument extracts the raw document from a raw or multipart body.
func readDocument(r *http.Request) (*domain.RawDocument, error) {
	raw := &domain.RawDocument{
		SourceID: strings.TrimSpace(r.URL.Query().Get("source")),
		Metadata: map[string]string{"connector": "http"},
	}
	if raw.SourceID == "" {
		raw.SourceID = strings.TrimSpace(r.Header.Get(SourceHeader))
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		raw.Metadata["request_id"] = id
	}

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		mr, err := r.MultipartReader()
		if err != nil {
			return nil, fmt.Errorf("reading multipart body: %w", err)
		}
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil, errors.New(`multipart body has no "file" part`)
			}
			if err != nil {
				return nil, fmt.Errorf("reading multipart body: %w", err)
			}
			if part.FormName() != "file" {
				_ = part.Close()
				continue
			}

			content, err := io.ReadAll(part)
			_ = part.Close()
			if err != nil {
				return nil, err
			}
			if raw.SourceID == "" {
				raw.SourceID = strings.TrimSpace(part.FileName())
			}
			raw.Content = content
			raw.MIMEType, raw.Charset = partType(part.Header.Get("Content-Type"))
			break
		}
	} else {
		content, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		raw.Content = content
		raw.MIMEType = mediaType
		raw.Charset = params["charset"]
	}

	if raw.SourceID == "" {
		return nil, fmt.Errorf("missing source id: set ?source=, the %s header or a multipart file name", SourceHeader)
	}
	return raw, nil
}

func partType(header string) (string, string) {
	mt, params, err := mime.ParseMediaType(header)
	if err != nil || mt == "application/octet-stream" {
		return "", ""
	}
	return mt, params["charset"]
}

// GET /api/books
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if books == nil {
		books = []domain.BookSummary{}
	}
	writeJSON(w, http.StatusOK, books)
}

// GET /api/books/{id}
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.books.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DELETE /api/books/{id}
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.books.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/books/{id}/export?format=md
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	out, err := s.books.Export(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// GET /api/ingestions?limit=N
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRecordLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	records, err := s.books.Records(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []domain.IngestionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GET /api/ingestions/{ticket}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingest.Status(r.Context(), chi.URLParam(r, "ticket"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ingest.Stats(r.Context()))
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}
