// Package storage writes key and share bundles to disk, either as plain JSON
// or sealed under a password. Sealing derives the key with PBKDF2 for
// AES-256-GCM or with Argon2id for ChaCha20-Poly1305.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/Davincible/sss/pkg/crypto/random"
	"github.com/Davincible/sss/pkg/secure"
)

const (
	SaltSize   = 32
	NonceSize  = 12
	KeySize    = 32
	Iterations = 100000

	Argon2Time    = 3
	Argon2Memory  = 64 * 1024
	Argon2Threads = 4

	envelopeVersion = 1
)

// KDF names the key derivation and cipher pair of an envelope.
type KDF string

const (
	// KDFPBKDF2 is PBKDF2-HMAC-SHA256 with AES-256-GCM.
	KDFPBKDF2 KDF = "pbkdf2-sha256"
	// KDFArgon2 is Argon2id with ChaCha20-Poly1305.
	KDFArgon2 KDF = "argon2id"
)

// ParseKDF accepts the envelope names and the short forms "pbkdf2" and
// "argon2". An empty name selects PBKDF2.
func ParseKDF(name string) (KDF, error) {
	switch name {
	case "", "pbkdf2", string(KDFPBKDF2):
		return KDFPBKDF2, nil
	case "argon2", string(KDFArgon2):
		return KDFArgon2, nil
	}
	return "", fmt.Errorf("unknown key derivation %q", name)
}

var (
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordRequired = errors.New("file is sealed, a password is required")
	ErrDecryptFailed    = errors.New("failed to decrypt: wrong password or corrupted file")
)

// Envelope is the on-disk form of sealed data.
type Envelope struct {
	Version    int    `json:"version"`
	KDF        KDF    `json:"kdf"`
	Iterations int    `json:"iterations"`
	Memory     uint32 `json:"memory,omitempty"`
	Threads    uint8  `json:"threads,omitempty"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// IsSealed reports whether data is a sealed envelope.
func IsSealed(data []byte) bool {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}
	return env.KDF != "" && len(env.Ciphertext) > 0
}

// Seal encrypts plaintext under a key derived from password.
func Seal(plaintext, password []byte, kdf KDF) (*Envelope, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}

	e := &Envelope{
		Version: envelopeVersion,
		KDF:     kdf,
		Salt:    random.Default.NextBytes(SaltSize),
		Nonce:   random.Default.NextBytes(NonceSize),
	}
	switch kdf {
	case KDFPBKDF2:
		e.Iterations = Iterations
	case KDFArgon2:
		e.Iterations = Argon2Time
		e.Memory = Argon2Memory
		e.Threads = Argon2Threads
	default:
		return nil, fmt.Errorf("unknown key derivation %q", kdf)
	}

	aead, wipe, err := e.aead(password)
	if err != nil {
		return nil, err
	}
	defer wipe()

	e.Ciphertext = aead.Seal(nil, e.Nonce, plaintext, nil)
	return e, nil
}

// Open decrypts the envelope. The caller owns the returned plaintext.
func (e *Envelope) Open(password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	if e.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", e.Version)
	}
	if e.Iterations <= 0 || len(e.Nonce) != NonceSize {
		return nil, fmt.Errorf("malformed envelope")
	}

	aead, wipe, err := e.aead(password)
	if err != nil {
		return nil, err
	}
	defer wipe()

	plaintext, err := aead.Open(nil, e.Nonce, e.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// aead derives the key for the envelope's KDF. The returned func wipes it.
func (e *Envelope) aead(password []byte) (cipher.AEAD, func(), error) {
	var (
		key  []byte
		aead cipher.AEAD
		err  error
	)

	switch e.KDF {
	case KDFPBKDF2:
		key = pbkdf2.Key(password, e.Salt, e.Iterations, KeySize, sha256.New)
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case KDFArgon2:
		if e.Memory == 0 || e.Threads == 0 {
			return nil, nil, fmt.Errorf("malformed envelope")
		}
		key = argon2.IDKey(password, e.Salt, uint32(e.Iterations), e.Memory, e.Threads, chacha20poly1305.KeySize)
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, nil, fmt.Errorf("unsupported key derivation %q", e.KDF)
	}

	wipe := func() { secure.Zero(key) }
	if err != nil {
		wipe()
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return aead, wipe, nil
}

// SecureStorage reads and writes one file, sealing its content when a
// password is given.
type SecureStorage struct {
	filepath string
	perm     os.FileMode
	kdf      KDF
}

// Option configures a SecureStorage.
type Option func(*SecureStorage)

// WithKDF selects the key derivation for files sealed by Save.
func WithKDF(kdf KDF) Option {
	return func(s *SecureStorage) {
		s.kdf = kdf
	}
}

func NewSecureStorage(filepath string, perm os.FileMode, opts ...Option) *SecureStorage {
	if perm == 0 {
		perm = 0600
	}
	s := &SecureStorage{
		filepath: filepath,
		perm:     perm,
		kdf:      KDFPBKDF2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SecureStorage) Path() string {
	return s.filepath
}

// Save writes data. With an empty password the data is written as is.
func (s *SecureStorage) Save(data, password []byte) error {
	out := data
	if len(password) > 0 {
		env, err := Seal(data, password, s.kdf)
		if err != nil {
			return err
		}
		if out, err = json.MarshalIndent(env, "", "  "); err != nil {
			return fmt.Errorf("failed to marshal envelope: %w", err)
		}
	}

	dir := filepath.Dir(s.filepath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(s.filepath, out, s.perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Load reads the file, opening it with password if it is sealed.
func (s *SecureStorage) Load(password []byte) ([]byte, error) {
	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !IsSealed(data) {
		return data, nil
	}
	if len(password) == 0 {
		return nil, ErrPasswordRequired
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return env.Open(password)
}

// Sealed reports whether the file on disk is a sealed envelope.
func (s *SecureStorage) Sealed() (bool, error) {
	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return false, fmt.Errorf("failed to read file: %w", err)
	}
	return IsSealed(data), nil
}

func (s *SecureStorage) Exists() bool {
	_, err := os.Stat(s.filepath)
	return err == nil
}

// Delete overwrites the file with random bytes before removing it.
func (s *SecureStorage) Delete() error {
	info, err := os.Stat(s.filepath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if err := os.WriteFile(s.filepath, random.Default.NextBytes(int(info.Size())), s.perm); err != nil {
		return fmt.Errorf("failed to overwrite file: %w", err)
	}
	return os.Remove(s.filepath)
}
