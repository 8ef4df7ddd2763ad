package testkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Wildcard in an expected body matches any non-null value.
const Wildcard = "*"

// Subset lists where actual departs from expected. Objects are compared on
// the keys expected names, arrays element-wise with equal length.
func Subset(path string, expected, actual any) []string {
	if s, ok := expected.(string); ok && s == Wildcard {
		if actual == nil {
			return []string{fmt.Sprintf("%s: want any value, got null", keyPath(path))}
		}
		return nil
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: want object, got %T", keyPath(path), actual)}
		}
		var diffs []string
		for k, ev := range exp {
			av, found := act[k]
			if !found {
				diffs = append(diffs, fmt.Sprintf("%s.%s: missing", keyPath(path), k))
				continue
			}
			diffs = append(diffs, Subset(path+"."+k, ev, av)...)
		}
		return diffs
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: want array, got %T", keyPath(path), actual)}
		}
		if len(exp) != len(act) {
			return []string{fmt.Sprintf("%s: want %d elements, got %d", keyPath(path), len(exp), len(act))}
		}
		var diffs []string
		for i := range exp {
			diffs = append(diffs, Subset(fmt.Sprintf("%s.%d", path, i), exp[i], act[i])...)
		}
		return diffs
	}

	if fmt.Sprint(expected) != fmt.Sprint(actual) {
		return []string{fmt.Sprintf("%s: want %v, got %v", keyPath(path), expected, actual)}
	}
	return nil
}

func keyPath(path string) string {
	if path == "" {
		return "body"
	}
	return strings.TrimPrefix(path, ".")
}

// Lookup walks a dotted path ("data.orders.0._id") through decoded JSON.
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func decode(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
