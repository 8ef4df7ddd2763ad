package testkit

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	khttp "github.com/naturelovers/storefront/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubset(t *testing.T) {
	actual, err := decode([]byte(`{"success":true,"data":{"_id":"abc","items":[{"quantity":3}],"totalAmount":150}}`))
	require.NoError(t, err)

	ok, _ := decode([]byte(`{"data":{"_id":"*","items":[{"quantity":3}],"totalAmount":150}}`))
	assert.Empty(t, Subset("", ok, actual))

	bad, _ := decode([]byte(`{"success":false,"data":{"items":[],"missing":1}}`))
	diffs := Subset("", bad, actual)
	assert.Len(t, diffs, 3)
}

func TestLookup(t *testing.T) {
	doc, err := decode([]byte(`{"data":{"orders":[{"_id":"o1"},{"_id":"o2"}]}}`))
	require.NoError(t, err)

	v, ok := Lookup(doc, "data.orders.1._id")
	assert.True(t, ok)
	assert.Equal(t, "o2", v)

	_, ok = Lookup(doc, "data.orders.5._id")
	assert.False(t, ok)
}

func TestMockTransport(t *testing.T) {
	mt := NewMockTransport([]Mock{
		{MatchURL: "https://hooks.example.com/", Method: "POST", Status: http.StatusAccepted},
		{MatchURL: "https://never.example.com/"},
	}, true)
	khttp.DefaultClient.Transport = mt
	defer khttp.ResetTransport()

	resp, err := khttp.Post("https://hooks.example.com/order").Body(map[string]string{"id": "1"}).Send()
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	_, err = khttp.Get("https://other.example.com/").Send()
	assert.Error(t, err)
	assert.Len(t, mt.Unmatched, 1)
	assert.Equal(t, []string{`mock "https://never.example.com/" was never called`}, mt.Unmet())
}

// counter is a tiny API: POST /count bumps, GET /count reads.
func counter() http.Handler {
	n := 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-alice" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false}`))
			return
		}
		if r.Method == http.MethodPost {
			n++
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"count": n, "id": "c1"}})
	})
}

func TestRunDir(t *testing.T) {
	dir := t.TempDir()
	journey := `{
	  "name": "counting",
	  "steps": [
	    {"url": "/count", "expect": {"code": 401}},
	    {"method": "post", "url": "/count", "as": "alice", "expect": {"code": 200}, "save": {"id": "data.id"}},
	    {"url": "/count?id={{id}}", "as": "alice", "expect": {"code": 200, "body": {"data": {"count": 1, "id": "{{id}}"}}}}
	  ]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counting.json"), []byte(journey), 0o600))

	logins := 0
	RunDir(t, dir, func(t *testing.T) Env {
		return Env{
			Handler: counter(),
			Login: func(t *testing.T, principal string) string {
				logins++
				return "tok-" + principal
			},
		}
	})
	assert.Equal(t, 1, logins)
}

func TestLoadRejectsIncompleteSteps(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"steps":[{"url":"/x"}]}`), 0o600))
	_, err := Load(p)
	assert.ErrorContains(t, err, "expect.code")
}
