package crypt_test

import (
	"testing"

	"github.com/naturelovers/storefront/pkg/crypt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenJSON(t *testing.T) {
	box, err := crypt.New("s3cret")
	require.NoError(t, err)

	enc, err := box.SealJSON(map[string]int{"qty": 3})
	require.NoError(t, err)

	var out map[string]int
	require.NoError(t, box.OpenJSON(enc, &out))
	assert.Equal(t, 3, out["qty"])
}

func TestWrongKeyFails(t *testing.T) {
	a, _ := crypt.New("one")
	b, _ := crypt.New("two")

	enc, err := a.Seal([]byte("cart"))
	require.NoError(t, err)

	_, err = b.Open(enc)
	assert.ErrorIs(t, err, crypt.ErrDecrypt)

	_, err = a.Open("not base64 !!")
	assert.ErrorIs(t, err, crypt.ErrDecrypt)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := crypt.New("")
	assert.Error(t, err)
}
