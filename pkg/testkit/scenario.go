// Package testkit drives the storefront API from JSON journey files.
//
// A journey is a named list of steps fired in order against one fresh
// application. Each step is a request made as some principal ("shopper",
// "admin", or "" for anonymous) with the status and a subset of the JSON
// envelope it must answer with. Values captured by one step can be used by
// later ones:
//
//	testdata/
//	  checkout.json
//
//	{
//	  "name": "checkout empties the cart",
//	  "steps": [
//	    {"method": "POST", "url": "/api/cart/add", "as": "shopper",
//	     "body": {"itemId": "5", "name": "Money Plant", "type": "plant", "price": 50},
//	     "expect": {"code": 200}},
//	    {"method": "POST", "url": "/api/orders/create", "as": "shopper",
//	     "expect": {"code": 201, "body": {"data": {"status": "confirmed"}}},
//	     "save": {"order": "data._id"}},
//	    {"method": "PUT", "url": "/api/orders/{{order}}/cancel", "as": "shopper",
//	     "expect": {"code": 200}}
//	  ]
//	}
//
// Outgoing calls made through pkg/http are answered by the journey's mocks.
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scenario is one journey loaded from a JSON file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`

	// Mocks answer outgoing HTTP calls for the whole journey.
	Mocks []Mock `json:"mocks"`
	// StrictMocks fails any outgoing call no mock matches.
	StrictMocks bool `json:"strictMocks"`

	file string
}

// Step is one request and its expectations.
type Step struct {
	Name   string          `json:"name"`
	Method string          `json:"method"`
	URL    string          `json:"url"`
	As     string          `json:"as"`
	Body   json.RawMessage `json:"body"`
	Expect Expect          `json:"expect"`
	// Save maps a variable name to a dotted path into the response, e.g.
	// "data.orders.0._id".
	Save map[string]string `json:"save"`
}

// Expect is what a step must answer with. Body is matched as a subset: only
// the keys it names are compared, and the string "*" matches any non-null
// value.
type Expect struct {
	Code int             `json:"code"`
	Body json.RawMessage `json:"body"`
}

// Mock answers outgoing requests whose URL starts with MatchURL.
type Mock struct {
	MatchURL string          `json:"matchUrl"`
	Method   string          `json:"method"`
	Status   int             `json:"status"`
	Body     json.RawMessage `json:"body"`
	// Times is how often the mock must be hit; 0 means at least once.
	Times int `json:"times"`
}

// Load reads and checks a journey file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", path, err)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", path, err)
	}
	s.file = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: %q: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("no steps")
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.URL == "" {
			return fmt.Errorf("steps[%d].url is required", i)
		}
		if st.Expect.Code == 0 {
			return fmt.Errorf("steps[%d].expect.code is required", i)
		}
		if st.Method == "" {
			st.Method = "GET"
		}
		st.Method = strings.ToUpper(st.Method)
		if st.Name == "" {
			st.Name = fmt.Sprintf("%d %s %s", i+1, st.Method, st.URL)
		}
	}
	for i, m := range s.Mocks {
		if m.MatchURL == "" {
			return fmt.Errorf("mocks[%d].matchUrl is required", i)
		}
	}
	return nil
}

// LoadDir loads every *.json file in dir, sorted by name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("testkit: no journeys in %q", dir)
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// expand replaces {{name}} with captured values.
func expand(s string, vars map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}
	return s
}
