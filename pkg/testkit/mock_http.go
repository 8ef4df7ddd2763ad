package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport answers outgoing requests from a journey's mocks instead of
// the network. Install it on pkg/http's client:
//
//	mt := testkit.NewMockTransport(s.Mocks, true)
//	khttp.DefaultClient.Transport = mt
//	defer khttp.ResetTransport()
type MockTransport struct {
	mu     sync.Mutex
	mocks  []Mock
	hits   []int
	strict bool
	// Unmatched lists requests no mock answered.
	Unmatched []string
}

func NewMockTransport(mocks []Mock, strict bool) *MockTransport {
	return &MockTransport{mocks: mocks, hits: make([]int, len(mocks)), strict: strict}
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()
	}

	for i, m := range mt.mocks {
		if !strings.HasPrefix(req.URL.String(), m.MatchURL) {
			continue
		}
		if m.Method != "" && !strings.EqualFold(m.Method, req.Method) {
			continue
		}
		mt.hits[i]++
		return response(req, m), nil
	}

	call := req.Method + " " + req.URL.String()
	mt.Unmatched = append(mt.Unmatched, call)
	if mt.strict {
		return nil, fmt.Errorf("testkit: no mock for %s", call)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Request:    req,
	}, nil
}

// Unmet describes every mock hit fewer times than it expects.
func (mt *MockTransport) Unmet() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var out []string
	for i, m := range mt.mocks {
		want := m.Times
		switch {
		case want == 0 && mt.hits[i] == 0:
			out = append(out, fmt.Sprintf("mock %q was never called", m.MatchURL))
		case want > 0 && mt.hits[i] != want:
			out = append(out, fmt.Sprintf("mock %q called %d times, want %d", m.MatchURL, mt.hits[i], want))
		}
	}
	return out
}

func response(req *http.Request, m Mock) *http.Response {
	code := m.Status
	if code == 0 {
		code = http.StatusOK
	}
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(m.Body)),
		Request:    req,
	}
}
