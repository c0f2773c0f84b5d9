package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := Encrypt("s3cret", "master-key")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "s3cret")

	plain, err := Decrypt(sealed, "master-key")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plain)
}

func TestDecrypt_WrongKey(t *testing.T) {
	sealed, err := Encrypt("s3cret", "master-key")
	require.NoError(t, err)

	_, err = Decrypt(sealed, "other-key")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncrypt_EmptyKey(t *testing.T) {
	_, err := Encrypt("s3cret", "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = Decrypt("enc:AAAA", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDecrypt_Malformed(t *testing.T) {
	_, err := Decrypt("enc:not base64!", "k")
	assert.ErrorIs(t, err, ErrInvalidCipherText)

	_, err = Decrypt("enc:AAAA", "k")
	assert.ErrorIs(t, err, ErrInvalidCipherText)
}

func TestIsSealed(t *testing.T) {
	assert.False(t, IsSealed("plain"))
	assert.True(t, IsSealed("enc:abc"))
}
