package crypto_test

import (
	"testing"

	"github.com/riskgate/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := crypto.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, crypto.CheckPassword("s3cret-pass", hash))
	assert.False(t, crypto.CheckPassword("wrong", hash))
}

func TestAESRoundTrip(t *testing.T) {
	ciphertext, err := crypto.EncryptAES("binance-api-secret", "any-length-key")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "binance-api-secret")

	plaintext, err := crypto.DecryptAES(ciphertext, "any-length-key")
	require.NoError(t, err)
	assert.Equal(t, "binance-api-secret", plaintext)
}

func TestAESNonceMakesCiphertextUnique(t *testing.T) {
	a, err := crypto.EncryptAES("same-value", "key")
	require.NoError(t, err)
	b, err := crypto.EncryptAES("same-value", "key")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESWrongKeyFails(t *testing.T) {
	ciphertext, err := crypto.EncryptAES("value", "key-one")
	require.NoError(t, err)

	_, err = crypto.DecryptAES(ciphertext, "key-two")
	assert.ErrorIs(t, err, crypto.ErrInvalidCiphertext)
}

func TestAESRejectsGarbage(t *testing.T) {
	_, err := crypto.DecryptAES("not-base64!!!", "key")
	assert.ErrorIs(t, err, crypto.ErrInvalidCiphertext)

	_, err = crypto.DecryptAES("AAAA", "key")
	assert.ErrorIs(t, err, crypto.ErrInvalidCiphertext)
}
