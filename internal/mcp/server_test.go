package mcp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lhzou/blpapi-mcp/internal/config"
	"github.com/lhzou/blpapi-mcp/internal/ratelimit"
)

func TestHandlerRoutes(t *testing.T) {
	s := newTestServer(t, &fakeClient{}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	t.Run("streamable http initialize", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{` +
			`"protocolVersion":"2025-03-26","capabilities":{},` +
			`"clientInfo":{"name":"test","version":"0.0.0"}}}`
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")

		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		got, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(got), config.ServerName) {
			t.Errorf("initialize response %q missing server name", got)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		resp, err := srv.Client().Get(srv.URL + "/nope")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestConsume(t *testing.T) {
	t.Run("nil limiter allows everything", func(t *testing.T) {
		s := newTestServer(t, &fakeClient{}, nil)
		if err := s.consume(1 << 20); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("charges at least one hit", func(t *testing.T) {
		limiter, err := ratelimit.New(ratelimit.Options{
			StatePath:  filepath.Join(t.TempDir(), "state.json"),
			DailyLimit: 100,
			Now:        func() time.Time { return testNow },
		})
		if err != nil {
			t.Fatal(err)
		}
		s := newTestServer(t, &fakeClient{}, limiter)
		if err := s.consume(0); err != nil {
			t.Fatal(err)
		}
		if got := limiter.Count(); got != 1 {
			t.Errorf("count = %d, want 1", got)
		}
	})

	t.Run("exhaustion names the budget", func(t *testing.T) {
		limiter, err := ratelimit.New(ratelimit.Options{
			StatePath:  filepath.Join(t.TempDir(), "state.json"),
			DailyLimit: 2,
			Now:        func() time.Time { return testNow },
		})
		if err != nil {
			t.Fatal(err)
		}
		s := newTestServer(t, &fakeClient{}, limiter)
		if err := s.consume(2); err != nil {
			t.Fatal(err)
		}
		err = s.consume(1)
		if err == nil || !strings.Contains(err.Error(), "limit reached") {
			t.Fatalf("err = %v, want limit reached", err)
		}
	})
}

func TestNewNilLogger(t *testing.T) {
	// must not panic and must fall back to the default logger
	s := New(&fakeClient{}, nil, nil)
	if s.logger == nil {
		t.Fatal("logger is nil")
	}
}
