package crypto_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritrail/veritrail/pkg/crypto"
)

var key = bytes.Repeat([]byte{0x11}, crypto.KeySize)

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	plaintext := []byte("audit payload")

	sealed, err := crypto.Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := crypto.Decrypt(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncrypt_NoncesDiffer(t *testing.T) {
	a, err := crypto.Encrypt(key, []byte("same input"))
	require.NoError(t, err)
	b, err := crypto.Encrypt(key, []byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncrypt_RejectsBadKeySize(t *testing.T) {
	_, err := crypto.Encrypt([]byte("short"), []byte("x"))
	assert.Error(t, err)

	_, err = crypto.Decrypt(nil, []byte("x"))
	assert.Error(t, err)
}

func TestDecrypt_RejectsTamperedCiphertext(t *testing.T) {
	sealed, err := crypto.Encrypt(key, []byte("audit payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = crypto.Decrypt(key, sealed)
	assert.Error(t, err)
}

func TestDecrypt_RejectsTruncatedInput(t *testing.T) {
	_, err := crypto.Decrypt(key, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	sealed, err := crypto.Encrypt(key, []byte("audit payload"))
	require.NoError(t, err)

	other := bytes.Repeat([]byte{0x22}, crypto.KeySize)
	_, err = crypto.Decrypt(other, sealed)
	assert.Error(t, err)
}

func TestNewHash(t *testing.T) {
	h, err := crypto.NewHash(crypto.AlgorithmSHA256)
	require.NoError(t, err)
	assert.Equal(t, 32, h.Size())

	h, err = crypto.NewHash(crypto.AlgorithmSHA512)
	require.NoError(t, err)
	assert.Equal(t, 64, h.Size())

	_, err = crypto.NewHash("md5")
	assert.Error(t, err)
}
