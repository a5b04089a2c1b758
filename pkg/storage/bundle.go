package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Davincible/sss/pkg/crypto/sss"
)

// Bundle is the file written by a split: the bound key and every share of
// one session, each in its binary encoding.
type Bundle struct {
	ID          uuid.UUID `json:"id"`
	Created     time.Time `json:"created"`
	Threshold   int       `json:"threshold"`
	Total       int       `json:"total"`
	ModulusBits uint32    `json:"modulus_bits"`
	PublicKey   []byte    `json:"public_key"`
	Shares      [][]byte  `json:"shares"`
}

// NewBundle encodes the result of one encryption.
func NewBundle(res *sss.Result) (*Bundle, error) {
	if res == nil || res.PublicKey == nil {
		return nil, fmt.Errorf("result has no public key")
	}

	key, err := res.PublicKey.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}

	b := &Bundle{
		ID:          uuid.New(),
		Created:     time.Now().UTC(),
		Threshold:   res.PublicKey.N(),
		Total:       res.PublicKey.M(),
		ModulusBits: uint32(res.PublicKey.Size()),
		PublicKey:   key,
		Shares:      make([][]byte, len(res.Shares)),
	}
	for i, s := range res.Shares {
		if b.Shares[i], err = s.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("failed to encode share %d: %w", i+1, err)
		}
	}
	return b, nil
}

// Key decodes the bundled public key and checks it against the header.
func (b *Bundle) Key() (*sss.PublicKey, error) {
	pub, err := sss.ParsePublicKey(b.PublicKey)
	if err != nil {
		return nil, err
	}
	if pub.N() != b.Threshold || pub.M() != b.Total || uint32(pub.Size()) != b.ModulusBits {
		return nil, fmt.Errorf("bundle %s: header (%d of %d, %d bits) does not match its key (%d of %d, %d bits)",
			b.ID, b.Threshold, b.Total, b.ModulusBits, pub.N(), pub.M(), uint32(pub.Size()))
	}
	return pub, nil
}

// DecodeShares decodes the bundled shares.
func (b *Bundle) DecodeShares() ([]*sss.Share, error) {
	shares := make([]*sss.Share, len(b.Shares))
	for i, data := range b.Shares {
		s, err := sss.ParseShare(data)
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", i+1, err)
		}
		shares[i] = s
	}
	return shares, nil
}

// BundleStore persists bundles through SecureStorage.
type BundleStore struct {
	storage *SecureStorage
}

func NewBundleStore(path string, perm os.FileMode, opts ...Option) *BundleStore {
	return &BundleStore{
		storage: NewSecureStorage(path, perm, opts...),
	}
}

func (s *BundleStore) Path() string {
	return s.storage.Path()
}

// Save writes b, sealed when password is not empty.
func (s *BundleStore) Save(b *Bundle, password []byte) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return s.storage.Save(data, password)
}

func (s *BundleStore) Load(password []byte) (*Bundle, error) {
	data, err := s.storage.Load(password)
	if err != nil {
		return nil, err
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bundle: %w", err)
	}
	if b.ID == uuid.Nil {
		return nil, fmt.Errorf("not a share bundle: missing id")
	}
	return &b, nil
}

func (s *BundleStore) Sealed() (bool, error) {
	return s.storage.Sealed()
}

func (s *BundleStore) Exists() bool {
	return s.storage.Exists()
}

func (s *BundleStore) Delete() error {
	return s.storage.Delete()
}
