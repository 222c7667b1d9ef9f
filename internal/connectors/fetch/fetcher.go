package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Defaults applied by New for zero options.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "shelf/1.0"
)

// ErrStatus indicates the server answered with a non-2xx status.
var ErrStatus = errors.New("unexpected status")

// Options configures a Fetcher.
type Options struct {
	// Timeout bounds each request including the body read.
	Timeout time.Duration

	// Rate is the sustained request rate per second. Zero means unlimited.
	Rate float64

	// Burst is the token bucket size. Values below 1 are treated as 1.
	Burst int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBytes rejects larger bodies. Zero means unlimited.
	MaxBytes int64

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Fetcher downloads books by URL.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBytes  int64
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, opts.Burst),
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
	}
}

// Fetch downloads rawURL and returns it as a raw document.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawDocument, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an http(s) url: %q", domain.ErrInvalidInput, rawURL)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	logger.Debug("fetch: GET %s", u.Redacted())
	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: %w %d", u.Redacted(), ErrStatus, resp.StatusCode)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("fetching %s: body is %d bytes, limit is %d", u.Redacted(), resp.ContentLength, f.maxBytes)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u.Redacted(), err)
	}
	if f.maxBytes > 0 && int64(len(content)) > f.maxBytes {
		return nil, fmt.Errorf("fetching %s: body exceeds %d bytes", u.Redacted(), f.maxBytes)
	}

	mediaType, charset := contentType(resp.Header.Get("Content-Type"))
	doc := &domain.RawDocument{
		SourceID: fileName(resp.Header.Get("Content-Disposition"), resp.Request.URL),
		MIMEType: mediaType,
		Charset:  charset,
		Content:  content,
		Metadata: map[string]string{
			"connector": "fetch",
			"url":       u.String(),
		},
	}
	logger.Debug("fetch: %s is %s (%d bytes, %s)", u.Redacted(), doc.SourceID, len(content), time.Since(start).Round(time.Millisecond))
	return doc, nil
}

// fileName picks the source identifier for a response.
func fileName(disposition string, u *url.URL) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := path.Base(strings.ReplaceAll(params["filename"], `\`, "/")); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	if u != nil {
		if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
			return name
		}
		return u.Hostname()
	}
	return "download"
}

// contentType splits a Content-Type header. Generic binary types are
// dropped so that parser selection falls through to the file extension.
func contentType(header string) (mediaType, charset string) {
	if header == "" {
		return "", ""
	}
	mt, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "", ""
	}
	if mt == "application/octet-stream" || mt == "binary/octet-stream" {
		mt = ""
	}
	return mt, params["charset"]
}
