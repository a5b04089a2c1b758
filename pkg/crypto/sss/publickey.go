package sss

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/crypto/random"
	"github.com/Davincible/sss/pkg/secure"
)

// PublicKey holds the parameters of one sharing session: threshold N, share
// count M, modulus size, the prime modulus and the hashes of the shares that
// belong to the session.
//
// The hash set is written once by BindShares. Everything else is fixed at
// construction.
type PublicKey struct {
	n      int
	m      int
	size   field.ModulusSize
	prime  *big.Int
	hashes [][HashSize]byte
	bound  bool
	mu     sync.RWMutex
}

// NewPublicKey validates the parameters and generates a fresh prime of size
// bits. This is the most expensive call in the package.
func NewPublicKey(n, m int, size field.ModulusSize) (*PublicKey, error) {
	return NewPublicKeyFromSource(n, m, size, random.Default)
}

// NewPublicKeyFromSource is NewPublicKey with an explicit randomness source.
func NewPublicKeyFromSource(n, m int, size field.ModulusSize, src random.Source) (*PublicKey, error) {
	if err := validateParams(n, m, size); err != nil {
		return nil, err
	}

	prime, err := field.GeneratePrime(src, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate prime: %w", err)
	}

	return &PublicKey{n: n, m: m, size: size, prime: prime}, nil
}

// NewPublicKeyWithPrime builds a key around a caller-supplied prime, which
// must be a probable prime of exactly size bits.
func NewPublicKeyWithPrime(n, m int, size field.ModulusSize, prime *big.Int) (*PublicKey, error) {
	if err := validateParams(n, m, size); err != nil {
		return nil, err
	}
	if err := field.CheckPrime(prime, size); err != nil {
		return nil, err
	}

	return &PublicKey{n: n, m: m, size: size, prime: new(big.Int).Set(prime)}, nil
}

// ParsePublicKey decodes a key produced by MarshalBinary.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	pub := &PublicKey{}
	if err := pub.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return pub, nil
}

func validateParams(n, m int, size field.ModulusSize) error {
	if m < n {
		return fmt.Errorf("%w: m (%d) must be greater than or equal to n (%d)", ErrInvalidParameter, m, n)
	}
	if n < 2 {
		return fmt.Errorf("%w: n must be at least 2, got %d", ErrInvalidParameter, n)
	}
	if uint64(m) > math.MaxUint32 {
		return fmt.Errorf("%w: m cannot exceed %d, got %d", ErrInvalidParameter, uint32(math.MaxUint32), m)
	}
	if !size.Valid() {
		return fmt.Errorf("%w: size must be one of %v, got %d", ErrInvalidParameter, field.AllowedSizes, size)
	}
	return nil
}

// N is the number of shares needed to recover the secret.
func (p *PublicKey) N() int { return p.n }

// M is the number of shares created.
func (p *PublicKey) M() int { return p.m }

// Size is the bit size of the prime.
func (p *PublicKey) Size() field.ModulusSize { return p.size }

// Prime returns a copy of the prime modulus.
func (p *PublicKey) Prime() *big.Int {
	return new(big.Int).Set(p.prime)
}

// Fingerprint is a short hex digest of the prime for display.
func (p *PublicKey) Fingerprint() string {
	sum := sha256.Sum256(p.prime.Bytes())
	return hex.EncodeToString(sum[:8])
}

// Hashes returns a copy of the bound share hashes.
func (p *PublicKey) Hashes() [][HashSize]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([][HashSize]byte(nil), p.hashes...)
}

// Bound reports whether share hashes have been bound to the key.
func (p *PublicKey) Bound() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bound
}

// BindShares stores the content hash of every share. It succeeds once per key
// and returns ErrAlreadyBound afterwards.
func (p *PublicKey) BindShares(shares []*Share) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bound {
		return ErrAlreadyBound
	}

	hashes := make([][HashSize]byte, len(shares))
	for i, s := range shares {
		if s == nil {
			return fmt.Errorf("%w: share %d is nil", ErrInvalidParameter, i)
		}
		hashes[i] = s.Hash()
	}

	p.hashes = hashes
	p.bound = true
	return nil
}

// Contains reports whether the share's content hash is one of the bound hashes.
func (p *PublicKey) Contains(share *Share) bool {
	if share == nil {
		return false
	}
	h := share.Hash()

	p.mu.RLock()
	defer p.mu.RUnlock()

	found := false
	for i := range p.hashes {
		if secure.ConstantTimeCompare(p.hashes[i][:], h[:]) {
			found = true
		}
	}
	return found
}

// Clone returns an independent copy including the hash set.
func (p *PublicKey) Clone() *PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return &PublicKey{
		n:      p.n,
		m:      p.m,
		size:   p.size,
		prime:  new(big.Int).Set(p.prime),
		hashes: append([][HashSize]byte(nil), p.hashes...),
		bound:  p.bound,
	}
}

// unbound returns a copy that shares the parameters but not the hash set.
func (p *PublicKey) unbound() *PublicKey {
	return &PublicKey{
		n:     p.n,
		m:     p.m,
		size:  p.size,
		prime: new(big.Int).Set(p.prime),
	}
}

// MarshalBinary encodes N, M, size, prime and the hash set as a tag stream.
func (p *PublicKey) MarshalBinary() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	inner := &tlvWriter{}
	for i := range p.hashes {
		inner.putBytes(tagHashEntry, p.hashes[i][:])
	}

	w := &tlvWriter{}
	w.putUint32(tagN, uint32(p.n))
	w.putUint32(tagM, uint32(p.m))
	w.putUint32(tagSize, uint32(p.size))
	w.putBytes(tagPrime, p.prime.Bytes())
	w.putBytes(tagHashes, inner.Bytes())
	return w.Bytes(), nil
}

// UnmarshalBinary decodes a key. Tags may come in any order. The decoded
// parameters are validated and the prime must have the declared bit length;
// primality itself is not re-tested here.
func (p *PublicKey) UnmarshalBinary(data []byte) error {
	var (
		n, m, size uint32
		prime      []byte
		hashes     [][HashSize]byte
		err        error
	)
	r := newTLVReader(data)

	for r.more() {
		off := r.off
		switch t := r.tag(); t {
		case tagN:
			n, err = r.uint32()
		case tagM:
			m, err = r.uint32()
		case tagSize:
			size, err = r.uint32()
		case tagPrime:
			prime, err = r.bytes()
		case tagHashes:
			var raw []byte
			if raw, err = r.bytes(); err == nil {
				hashes, err = decodeHashSet(raw)
			}
		default:
			return unknownTag(t, off)
		}
		if err != nil {
			return err
		}
	}

	if err := validateParams(int(n), int(m), field.ModulusSize(size)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	pr := new(big.Int).SetBytes(prime)
	if pr.BitLen() != int(size) {
		return fmt.Errorf("%w: prime has %d bits, expected %d", ErrMalformedEncoding, pr.BitLen(), size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.n = int(n)
	p.m = int(m)
	p.size = field.ModulusSize(size)
	p.prime = pr
	p.hashes = hashes
	p.bound = len(hashes) > 0
	return nil
}

func decodeHashSet(data []byte) ([][HashSize]byte, error) {
	var hashes [][HashSize]byte
	r := newTLVReader(data)
	for r.more() {
		off := r.off
		if t := r.tag(); t != tagHashEntry {
			return nil, unknownTag(t, off)
		}
		h, err := r.bytes()
		if err != nil {
			return nil, err
		}
		if len(h) != HashSize {
			return nil, fmt.Errorf("%w: share hash has %d bytes", ErrMalformedEncoding, len(h))
		}
		var fixed [HashSize]byte
		copy(fixed[:], h)
		hashes = append(hashes, fixed)
	}
	return hashes, nil
}
