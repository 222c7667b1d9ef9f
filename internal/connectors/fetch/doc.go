// Package fetch downloads single books over HTTP.
//
// Requests are throttled with a token bucket shared by every call on a
// Fetcher, carry a configurable User-Agent and are bounded by a timeout.
// The source identifier is the Content-Disposition file name when the
// server sends one, otherwise the last URL path segment.
package fetch
