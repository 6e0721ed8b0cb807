package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/executor"
	"github.com/alfredjeanlab/suicounter/internal/network"
	"github.com/alfredjeanlab/suicounter/internal/store/memory"
)

var testPackages = network.PackageIDs{Devnet: "0xdev", Testnet: "0xtest", Mainnet: "0xmain"}

// recordingPublisher captures published topics.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// newTestServer returns a server with no operation delay, its journal and
// its HTTP handler (auth disabled).
func newTestServer() (*CounterServer, *memory.Store, http.Handler) {
	return newTestServerWithDelay(0)
}

func newTestServerWithDelay(d time.Duration) (*CounterServer, *memory.Store, http.Handler) {
	ms := memory.New(0)
	srv := NewCounterServer(Options{
		Store:    ms,
		Executor: executor.New(d, nil),
		Packages: testPackages,
	})
	return srv, ms, srv.NewHTTPHandler("")
}

// doJSON sends a request with an optional JSON body and wallet session.
func doJSON(t *testing.T, h http.Handler, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, r)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, rec.Body.String())
	}
	return v
}
