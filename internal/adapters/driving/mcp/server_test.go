package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ingest service returns error", func(t *testing.T) {
		ports := &Ports{Books: &mockBookService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIngestService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Ingest: &mockIngestService{},
			Books:  &mockBookService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports returns error", func(t *testing.T) {
		ports := &Ports{}
		assert.ErrorIs(t, ports.Validate(), ErrMissingIngestService)
	})

	t.Run("missing book service returns error", func(t *testing.T) {
		ports := &Ports{Ingest: &mockIngestService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingBookService)
	})

	t.Run("fetcher is optional", func(t *testing.T) {
		ports := &Ports{
			Ingest: &mockIngestService{},
			Books:  &mockBookService{},
		}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Ingest:  &mockIngestService{},
			Books:   &mockBookService{},
			Fetcher: &mockFetcher{},
		}
		assert.NoError(t, ports.Validate())
	})
}

func TestServer_RunHTTP_StopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{
		Ingest: &mockIngestService{},
		Books:  &mockBookService{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.RunHTTP(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestServer_RunHTTP_ListenError(t *testing.T) {
	server, err := NewServer(&Ports{
		Ingest: &mockIngestService{},
		Books:  &mockBookService{},
	})
	require.NoError(t, err)

	err = server.RunHTTP(context.Background(), "256.0.0.1:99999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestServer_Handler(t *testing.T) {
	server, err := NewServer(&Ports{
		Ingest: &mockIngestService{},
		Books:  &mockBookService{},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	// A GET without an initialised session is rejected, not served as a page.
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.GreaterOrEqual(t, resp.StatusCode, 400)
}
