package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecrypt(t *testing.T) {
	ct, err := Encrypt(testKey, []byte("senha-do-repo"))
	require.NoError(t, err)
	assert.NotContains(t, string(ct), "senha-do-repo")

	pt, err := Decrypt(testKey, ct)
	require.NoError(t, err)
	assert.Equal(t, "senha-do-repo", string(pt))
}

func TestDecrypt_WrongKey(t *testing.T) {
	ct, err := Encrypt(testKey, []byte("segredo"))
	require.NoError(t, err)

	other := []byte("ffffffffffffffffffffffffffffffff")
	_, err = Decrypt(other, ct)
	assert.Error(t, err)
}

func TestDecrypt_Tampered(t *testing.T) {
	ct, err := Encrypt(testKey, []byte("segredo"))
	require.NoError(t, err)

	ct[len(ct)-1] ^= 0xff
	_, err = Decrypt(testKey, ct)
	assert.Error(t, err)
}

func TestEncrypt_BadKeySize(t *testing.T) {
	_, err := Encrypt([]byte("curta"), []byte("x"))
	assert.Error(t, err)
}
