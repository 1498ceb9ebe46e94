// Package testutil provides fakes shared by package tests.
package testutil

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Reply is one scripted answer of a PolicyServer.
type Reply struct {
	Status int
	Body   string
	Delay  time.Duration
}

// OK returns a 200 reply with body.
func OK(body string) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

// Status returns a reply with the given status and an empty JSON body.
func Status(code int) Reply {
	return Reply{Status: code, Body: "{}"}
}

// RecordedRequest is a request received by a PolicyServer.
type RecordedRequest struct {
	Header http.Header
	Body   []byte
}

// PolicyServer is a scripted policy server. Replies are served in order and
// the last one repeats once the script runs out.
type PolicyServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	script   []Reply
	requests []RecordedRequest
}

// NewPolicyServer starts a server answering POST /hook with script.
func NewPolicyServer(t *testing.T, script ...Reply) *PolicyServer {
	t.Helper()
	if len(script) == 0 {
		script = []Reply{OK("{}")}
	}

	ps := &PolicyServer{script: script}

	r := chi.NewRouter()
	r.Post("/hook", ps.handle)
	ps.srv = httptest.NewServer(r)
	t.Cleanup(ps.srv.Close)

	return ps
}

func (ps *PolicyServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ps.mu.Lock()
	idx := len(ps.requests)
	ps.requests = append(ps.requests, RecordedRequest{Header: r.Header.Clone(), Body: body})
	reply := ps.script[min(idx, len(ps.script)-1)]
	ps.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = io.WriteString(w, reply.Body)
}

// URL returns the hook endpoint URL.
func (ps *PolicyServer) URL() string {
	return ps.srv.URL + "/hook"
}

// Hits returns the number of requests received.
func (ps *PolicyServer) Hits() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.requests)
}

// Requests returns a copy of the received requests.
func (ps *PolicyServer) Requests() []RecordedRequest {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]RecordedRequest(nil), ps.requests...)
}

// ClosedURL returns a URL on a port with no listener, so connecting to it is
// refused.
func ClosedURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return "http://" + addr + "/hook"
}
