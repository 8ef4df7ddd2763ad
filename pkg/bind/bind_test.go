package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/naturelovers/storefront/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactInput struct {
	Email   string `json:"email"   validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

func TestJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	var in contactInput

	errs, err := JSON(req, &in)
	require.NoError(t, err)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "message")
}

func TestDecodeAcceptsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var in contactInput
	assert.NoError(t, Decode(req, &in))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	var in contactInput
	err := Decode(req, &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecodeCapsBody(t *testing.T) {
	config.Set("MAX_BODY_BYTES", "32")
	t.Cleanup(config.Reset)

	body := `{"message":"` + strings.Repeat("x", 100) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var in contactInput
	err := Decode(req, &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

type signupInput struct {
	Email string `json:"email" validate:"required,email"`
}

func (in *signupInput) Normalize() { in.Email = strings.ToLower(strings.TrimSpace(in.Email)) }

func TestJSONNormalizesBeforeValidating(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"  Asha@Example.COM "}`))
	var in signupInput

	errs, err := JSON(req, &in)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "asha@example.com", in.Email)
}
