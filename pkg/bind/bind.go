// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/naturelovers/storefront/config"
	"github.com/naturelovers/storefront/pkg/validate"
)

const defaultMaxBody = 16 << 10

// maxBodyBytes returns the configured request body size limit (default 16 KiB).
func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", strconv.Itoa(defaultMaxBody)), 10, 64)
	if err != nil || n <= 0 {
		return defaultMaxBody
	}
	return n
}

// Normalizer is implemented by inputs that trim or fold their fields
// before validation.
type Normalizer interface {
	Normalize()
}

// JSON decodes r.Body as JSON into dest and runs validation.
// Returns (errs, nil) when there are validation failures and (nil, err) when
// the body is malformed or larger than MAX_BODY_BYTES.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	if err = Decode(r, dest); err != nil {
		return nil, err
	}
	if n, ok := dest.(Normalizer); ok {
		n.Normalize()
	}

	errs = validate.Struct(dest)
	if validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

// Decode reads the capped body into dest without validating. An empty body
// is not an error so handlers with only optional fields accept it.
func Decode(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
