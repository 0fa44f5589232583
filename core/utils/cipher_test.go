package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return hex.EncodeToString(key)
}

func TestTokenCipher_RoundTrip(t *testing.T) {
	cipher, err := NewTokenCipher(testKey(0x42))
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("ya29.a0AfH6SMC-access-token")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.a0AfH6SMC-access-token", sealed)

	plain, err := cipher.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a0AfH6SMC-access-token", plain)
}

func TestTokenCipher_NoncePerEncryption(t *testing.T) {
	cipher, err := NewTokenCipher(testKey(0x42))
	require.NoError(t, err)

	first, err := cipher.Encrypt("same-token")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same-token")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestTokenCipher_WrongKeyFails(t *testing.T) {
	cipher, err := NewTokenCipher(testKey(0x42))
	require.NoError(t, err)
	other, err := NewTokenCipher(testKey(0x43))
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestNewTokenCipher_RejectsBadKeys(t *testing.T) {
	_, err := NewTokenCipher("not-hex")
	assert.Error(t, err)

	_, err = NewTokenCipher(hex.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestTokenCipher_RejectsTruncatedCiphertext(t *testing.T) {
	cipher, err := NewTokenCipher(testKey(0x42))
	require.NoError(t, err)

	_, err = cipher.Decrypt("YWJj")
	assert.Error(t, err)
}
