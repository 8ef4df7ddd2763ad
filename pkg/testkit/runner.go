package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	khttp "github.com/naturelovers/storefront/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Env is a fresh application for one journey.
type Env struct {
	Handler http.Handler
	// Login returns an access token for a named principal. It is called at
	// most once per principal and journey.
	Login func(t *testing.T, principal string) string
}

// Setup builds the Env a journey runs against.
type Setup func(t *testing.T) Env

// RunDir runs every journey in dir as a subtest, each on its own Env.
func RunDir(t *testing.T, dir string, setup Setup) {
	t.Helper()
	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) { Play(t, s, setup(t)) })
	}
}

// Run loads one journey file and plays it.
func Run(t *testing.T, path string, setup Setup) {
	t.Helper()
	s, err := Load(path)
	require.NoError(t, err)
	t.Run(s.Name, func(t *testing.T) { Play(t, s, setup(t)) })
}

// Play fires the journey's steps in order. A step whose status differs
// stops the journey, since later steps usually depend on it.
func Play(t *testing.T, s *Scenario, env Env) {
	t.Helper()

	mt := NewMockTransport(s.Mocks, s.StrictMocks)
	khttp.DefaultClient.Transport = mt
	defer khttp.ResetTransport()

	tokens := map[string]string{}
	vars := map[string]string{}

	for _, st := range s.Steps {
		var body io.Reader
		if len(st.Body) > 0 {
			body = bytes.NewReader([]byte(expand(string(st.Body), vars)))
		}
		req := httptest.NewRequest(st.Method, expand(st.URL, vars), body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if st.As != "" {
			tok, ok := tokens[st.As]
			if !ok {
				require.NotNil(t, env.Login, "[%s] step %q needs a principal but Env.Login is nil", s.Name, st.Name)
				tok = env.Login(t, st.As)
				tokens[st.As] = tok
			}
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		rec := httptest.NewRecorder()
		env.Handler.ServeHTTP(rec, req)

		if !assert.Equal(t, st.Expect.Code, rec.Code, "[%s] %s: status\nbody: %s", s.Name, st.Name, rec.Body.String()) {
			return
		}

		if len(st.Expect.Body) == 0 && len(st.Save) == 0 {
			continue
		}
		actual, err := decode(rec.Body.Bytes())
		if !assert.NoError(t, err, "[%s] %s: response is not JSON: %s", s.Name, st.Name, rec.Body.String()) {
			return
		}
		if len(st.Expect.Body) > 0 {
			expected, err := decode([]byte(expand(string(st.Expect.Body), vars)))
			require.NoError(t, err, "[%s] %s: expect.body is not JSON", s.Name, st.Name)
			for _, d := range Subset("", expected, actual) {
				t.Errorf("[%s] %s: %s", s.Name, st.Name, d)
			}
		}
		for name, path := range st.Save {
			v, ok := Lookup(actual, path)
			if !assert.True(t, ok, "[%s] %s: nothing at %q to save", s.Name, st.Name, path) {
				return
			}
			vars[name] = fmt.Sprint(v)
		}
	}

	for _, msg := range mt.Unmet() {
		t.Errorf("[%s] %s", s.Name, msg)
	}
	if s.StrictMocks {
		assert.Empty(t, mt.Unmatched, "[%s] unmatched outgoing calls", s.Name)
	}
}
