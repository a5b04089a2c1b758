package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	plaintext := []byte("bundle contents")
	password := []byte("correct horse")

	for _, kdf := range []KDF{KDFPBKDF2, KDFArgon2} {
		t.Run(string(kdf), func(t *testing.T) {
			env, err := Seal(plaintext, password, kdf)
			require.NoError(t, err)
			assert.Equal(t, kdf, env.KDF)
			assert.Len(t, env.Salt, SaltSize)
			assert.Len(t, env.Nonce, NonceSize)
			assert.NotContains(t, string(env.Ciphertext), "bundle")

			got, err := env.Open(password)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)

			_, err = env.Open([]byte("wrong"))
			assert.ErrorIs(t, err, ErrDecryptFailed)

			_, err = env.Open(nil)
			assert.ErrorIs(t, err, ErrEmptyPassword)
		})
	}

	_, err := Seal(plaintext, nil, KDFPBKDF2)
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = Seal(plaintext, password, KDF("scrypt"))
	assert.Error(t, err)
}

func TestArgon2Parameters(t *testing.T) {
	env, err := Seal([]byte("x"), []byte("pw"), KDFArgon2)
	require.NoError(t, err)
	assert.Equal(t, Argon2Time, env.Iterations)
	assert.Equal(t, uint32(Argon2Memory), env.Memory)
	assert.Equal(t, uint8(Argon2Threads), env.Threads)

	env.Memory = 0
	_, err = env.Open([]byte("pw"))
	assert.Error(t, err)
}

func TestParseKDF(t *testing.T) {
	tests := []struct {
		name    string
		want    KDF
		wantErr bool
	}{
		{"", KDFPBKDF2, false},
		{"pbkdf2", KDFPBKDF2, false},
		{"pbkdf2-sha256", KDFPBKDF2, false},
		{"argon2", KDFArgon2, false},
		{"argon2id", KDFArgon2, false},
		{"bcrypt", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKDF(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got)
	}
}

func TestSealIsRandomized(t *testing.T) {
	a, err := Seal([]byte("same"), []byte("pw"), KDFPBKDF2)
	require.NoError(t, err)
	b, err := Seal([]byte("same"), []byte("pw"), KDFPBKDF2)
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestOpenTampered(t *testing.T) {
	env, err := Seal([]byte("data"), []byte("pw"), KDFPBKDF2)
	require.NoError(t, err)

	env.Ciphertext[0] ^= 0xff
	_, err = env.Open([]byte("pw"))
	assert.ErrorIs(t, err, ErrDecryptFailed)

	env.Version = 7
	_, err = env.Open([]byte("pw"))
	assert.Error(t, err)
}

func TestSecureStorage(t *testing.T) {
	tests := []struct {
		name     string
		password []byte
		kdf      KDF
		sealed   bool
	}{
		{"Plain", nil, KDFPBKDF2, false},
		{"Sealed PBKDF2", []byte("secret password"), KDFPBKDF2, true},
		{"Sealed Argon2", []byte("secret password"), KDFArgon2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "data.json")
			s := NewSecureStorage(path, 0600, WithKDF(tt.kdf))
			data := []byte(`{"hello":"world"}`)

			assert.False(t, s.Exists())
			require.NoError(t, s.Save(data, tt.password))
			assert.True(t, s.Exists())

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			sealed, err := s.Sealed()
			require.NoError(t, err)
			assert.Equal(t, tt.sealed, sealed)

			got, err := s.Load(tt.password)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			require.NoError(t, s.Delete())
			assert.False(t, s.Exists())
			assert.NoError(t, s.Delete())
		})
	}
}

func TestLoadSealedWithoutPassword(t *testing.T) {
	s := NewSecureStorage(filepath.Join(t.TempDir(), "sealed.json"), 0)
	require.NoError(t, s.Save([]byte("x"), []byte("pw")))

	_, err := s.Load(nil)
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = s.Load([]byte("other"))
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestIsSealed(t *testing.T) {
	env, err := Seal([]byte("x"), []byte("pw"), KDFArgon2)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)

	assert.True(t, IsSealed(data))
	assert.False(t, IsSealed([]byte(`{"id":"abc"}`)))
	assert.False(t, IsSealed([]byte("not json")))
}
