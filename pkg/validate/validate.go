// Package validate provides struct-tag validation for request inputs.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required            field must not be zero/empty
//	nullable            if empty, skip all remaining rules for this field
//	email               something@domain.tld (no whitespace)
//	phone               exactly 10 digits
//	objectid            24 hex characters
//	url                 valid URL (http/https)
//	date                parseable date (see ParseDate)
//	numeric             any number
//	integer             whole number
//	min=N               string: min char length | number: min value
//	max=N               string: max char length | number: max value
//	gt=N, gte=N         number bounds
//	lt=N, lte=N         number bounds
//	between=min,max     number or string length between min and max (inclusive)
//	digits=N            exactly N decimal digits
//	in=a,b,c            value must be one of the listed items
//	regex=pattern       value must match the regex (avoid commas in pattern)
//	filled              when present (non-nil pointer), must not be empty
//	valid               value's Valid() bool method must report true
//
// Pointer fields are dereferenced; a nil pointer only fails `required`.
// Types with an IsZero() bool method are empty when it reports true.
//
// A `message` tag replaces the default text per rule, separated by "|";
// the key "*" covers every rule of the field:
//
//	Email string `validate:"required,email" message:"email=Please enter a valid email address"`
//
// Example:
//
//	type RegisterInput struct {
//	    Name     string `json:"name"     validate:"required,max=100"`
//	    Email    string `json:"email"    validate:"required,email"`
//	    Phone    string `json:"phone"    validate:"required,phone"`
//	    Password string `json:"password" validate:"required,min=6"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ─── Public API ───────────────────────────────────────────────────────────────

// Struct validates all exported fields of v that carry a `validate` tag.
// Returns a map of fieldName → error message; empty map means no errors.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	for _, f := range fieldsOf(v) {
		if f.skippable() {
			continue
		}
		for _, rule := range f.rules {
			if rule == "nullable" {
				continue
			}
			if msg := f.check(rule); msg != "" {
				errs[f.name] = msg
				break
			}
		}
	}
	return errs
}

// Check returns the first failure of v, or "". Every `required` rule is
// checked before any other rule; within a pass fields go in declaration
// order.
func Check(v interface{}) string {
	fields := fieldsOf(v)
	for _, f := range fields {
		if hasRule(f.rules, "required") {
			if msg := f.check("required"); msg != "" {
				return msg
			}
		}
	}
	for _, f := range fields {
		if f.skippable() {
			continue
		}
		for _, rule := range f.rules {
			if rule == "nullable" || rule == "required" {
				continue
			}
			if msg := f.check(rule); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// field is one tagged struct field with its rules and message overrides.
type field struct {
	name     string
	value    reflect.Value
	rules    []string
	messages map[string]string
}

func fieldsOf(v interface{}) []field {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()

	var fields []field
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}
		fields = append(fields, field{
			name:     jsonFieldName(sf),
			value:    rv.Field(i),
			rules:    splitRules(tag),
			messages: parseMessages(sf.Tag.Get("message")),
		})
	}
	return fields
}

func (f field) skippable() bool {
	return hasRule(f.rules, "nullable") && isEmpty(f.value)
}

func (f field) check(rule string) string {
	msg := applyRule(rule, f.name, f.value)
	if msg == "" {
		return ""
	}
	key, _, _ := strings.Cut(rule, "=")
	if m, ok := f.messages[key]; ok {
		return m
	}
	if m, ok := f.messages["*"]; ok {
		return m
	}
	return msg
}

// parseMessages reads "rule=text|rule=text".
func parseMessages(tag string) map[string]string {
	if tag == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(tag, "|") {
		if key, text, ok := strings.Cut(part, "="); ok {
			out[strings.TrimSpace(key)] = text
		}
	}
	return out
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// Email reports whether s looks like an email address.
func Email(s string) bool { return emailRE.MatchString(s) }

// Phone reports whether s is a 10-digit phone number.
func Phone(s string) bool { return phoneRE.MatchString(s) }

// ObjectID reports whether s is a 24-character hex identifier.
func ObjectID(s string) bool { return objectIDRE.MatchString(s) }

// ParseDate tries the supported layouts in order.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as date", s)
}

// ─── Core dispatcher ──────────────────────────────────────────────────────────

func applyRule(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	if key == "required" {
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
		return ""
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	raw := fmt.Sprintf("%v", v.Interface())

	switch key {
	case "filled":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field must have a value.", field)
		}
	case "valid":
		if vv, ok := v.Interface().(interface{ Valid() bool }); ok && !vv.Valid() {
			return fmt.Sprintf("The %s is invalid.", field)
		}

	// ── Format ────────────────────────────────────────────────────────
	case "email":
		if !Email(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "phone":
		if !Phone(raw) {
			return fmt.Sprintf("The %s must be a valid 10-digit phone number.", field)
		}
	case "objectid":
		if !ObjectID(raw) {
			return fmt.Sprintf("The %s is not a valid identifier.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "date":
		if _, err := ParseDate(raw); err != nil {
			return fmt.Sprintf("The %s is not a valid date.", field)
		}
	case "numeric":
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Sprintf("The %s field must be a number.", field)
		}
	case "integer":
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return fmt.Sprintf("The %s field must be an integer.", field)
		}

	// ── Size / range ──────────────────────────────────────────────────
	case "min":
		n := mustParseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) < n {
				return fmt.Sprintf("The %s must be at least %s.", field, param)
			}
		} else if float64(len([]rune(raw))) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
	case "max":
		n := mustParseFloat(param)
		if isNumericKind(v) {
			if toFloat(v) > n {
				return fmt.Sprintf("The %s must not be greater than %s.", field, param)
			}
		} else if float64(len([]rune(raw))) > n {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
	case "gt":
		if toFloat(v) <= mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		}
	case "gte":
		if toFloat(v) < mustParseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "lt":
		if toFloat(v) >= mustParseFloat(param) {
			return fmt.Sprintf("The %s must be less than %s.", field, param)
		}
	case "lte":
		if toFloat(v) > mustParseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "between":
		lo, hi, ok := strings.Cut(param, ",")
		if !ok {
			break
		}
		l, h := mustParseFloat(lo), mustParseFloat(hi)
		if isNumericKind(v) {
			if f := toFloat(v); f < l || f > h {
				return fmt.Sprintf("The %s must be between %s and %s.", field, lo, hi)
			}
		} else if n := float64(len([]rune(raw))); n < l || n > h {
			return fmt.Sprintf("The %s must be between %s and %s characters.", field, lo, hi)
		}
	case "digits":
		n := mustParseFloat(param)
		if !digitsOnlyRE.MatchString(raw) || float64(len(raw)) != n {
			return fmt.Sprintf("The %s must be %s digits.", field, param)
		}

	// ── Inclusion ─────────────────────────────────────────────────────
	case "in":
		for _, a := range strings.Split(param, ",") {
			if raw == strings.TrimSpace(a) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)

	case "regex":
		re, err := regexp.Compile(param)
		if err != nil {
			return fmt.Sprintf("The %s has an invalid validation pattern.", field)
		}
		if !re.MatchString(raw) {
			return fmt.Sprintf("The %s format is invalid.", field)
		}
	}

	return ""
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

var (
	emailRE      = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phoneRE      = regexp.MustCompile(`^\d{10}$`)
	objectIDRE   = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	digitsOnlyRE = regexp.MustCompile(`^\d+$`)
)

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "02/01/2006", "2006-01-02 15:04:05", "Jan 2, 2006",
}

func isEmpty(v reflect.Value) bool {
	if v.Kind() != reflect.Ptr && v.CanInterface() {
		if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
	}
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

// splitRules splits the tag on commas, keeping the values of in= and
// between= together: "required,in=plant,service,max=9" →
// ["required", "in=plant,service", "max=9"].
func splitRules(tag string) []string {
	var rules []string
	for _, part := range strings.Split(tag, ",") {
		n := len(rules)
		if n > 0 && !looksLikeRule(part) && takesList(rules[n-1]) {
			rules[n-1] += "," + part
			continue
		}
		rules = append(rules, part)
	}
	return rules
}

func takesList(rule string) bool {
	return strings.HasPrefix(rule, "in=") || strings.HasPrefix(rule, "between=")
}

var knownRules = map[string]bool{
	"required": true, "nullable": true, "email": true, "phone": true,
	"objectid": true, "url": true, "date": true, "numeric": true, "integer": true,
	"min": true, "max": true, "gt": true, "gte": true, "lt": true, "lte": true,
	"between": true, "digits": true, "in": true, "regex": true,
	"filled": true, "valid": true,
}

func looksLikeRule(s string) bool {
	key, _, _ := strings.Cut(s, "=")
	return knownRules[key]
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}
