// Package sss implements (N, M) threshold secret sharing over a large prime
// field. A secret becomes the constant term of a random polynomial of degree
// N-1; the M shares are points on it and any N of them recover the secret by
// Lagrange interpolation. Fewer than N shares reveal nothing about it.
//
// A PublicKey carries the field and the hashes of the shares issued for it.
// Decryption only accepts shares whose hash the key knows.
package sss

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/crypto/polynomial"
	"github.com/Davincible/sss/pkg/crypto/random"
	"github.com/Davincible/sss/pkg/secure"
)

// paddingSentinel is prepended to every secret so leading zero bytes survive
// the trip through a big integer.
const paddingSentinel byte = 0x01

// Result is the output of one encryption: the bound key and its shares.
type Result struct {
	PublicKey *PublicKey
	Shares    []*Share
}

// Engine runs encryption and decryption. It keeps no state between calls
// apart from an optional default key and is safe for concurrent use.
type Engine struct {
	key    *PublicKey
	rand   random.Source
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug output. Secret material is never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRandom replaces the randomness source for primes and coefficients.
func WithRandom(src random.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.rand = src
		}
	}
}

// NewEngine returns an engine without a default key.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rand: random.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// New generates a fresh key for (n, m, size) and returns an engine using it
// as the default for Encrypt and Decrypt.
func New(n, m int, size field.ModulusSize, opts ...Option) (*Engine, error) {
	e := NewEngine(opts...)
	pub, err := NewPublicKeyFromSource(n, m, size, e.rand)
	if err != nil {
		return nil, err
	}
	e.key = pub
	return e, nil
}

// NewWithKey returns an engine using pub as its default key.
func NewWithKey(pub *PublicKey, opts ...Option) *Engine {
	e := NewEngine(opts...)
	e.key = pub
	return e
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// PublicKey returns the default key, or nil.
func (e *Engine) PublicKey() *PublicKey {
	return e.key
}

// Encrypt splits secret under the engine's default key.
func (e *Engine) Encrypt(secret []byte) (*Result, error) {
	return e.EncryptWith(e.key, secret)
}

// Decrypt recovers a secret under the engine's default key.
func (e *Engine) Decrypt(shares []*Share) ([]byte, error) {
	return e.DecryptWith(e.key, shares)
}

// EncryptWith splits secret into pub.M() shares, any pub.N() of which recover it.
//
// The share hashes are bound into pub. If pub was already bound by an earlier
// session, a copy of pub with the same prime is bound instead and returned in
// the result, so one key can serve as a template for several sessions.
func (e *Engine) EncryptWith(pub *PublicKey, secret []byte) (*Result, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: public key is nil", ErrInvalidParameter)
	}
	if len(secret)+1 > pub.size.Bytes()-1 {
		return nil, fmt.Errorf("%w: %d bytes, at most %d fit a %d-bit modulus",
			ErrSecretTooLarge, len(secret), pub.size.MaxSecretLen(), pub.size)
	}

	padded := secure.NewBuffer(len(secret) + 1)
	defer padded.Destroy()
	padded.Bytes()[0] = paddingSentinel
	copy(padded.Bytes()[1:], secret)

	poly, err := polynomial.New(pub.prime, pub.n, pub.size, polynomial.WithSource(e.rand))
	if err != nil {
		return nil, err
	}
	defer poly.Destroy()

	if err := poly.Init(padded.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to initialize polynomial: %w", err)
	}

	xs := sharePositions(pub.m)
	ys, err := poly.EvaluateAtMany(xs)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate polynomial: %w", err)
	}
	defer secure.ZeroAll(ys)

	shares := make([]*Share, len(xs))
	for i := range xs {
		shares[i] = NewShare(xs[i], ys[i])
	}

	key := pub
	if err := key.BindShares(shares); err != nil {
		if !errors.Is(err, ErrAlreadyBound) {
			return nil, err
		}
		key = pub.unbound()
		if err := key.BindShares(shares); err != nil {
			return nil, err
		}
	}

	e.log().Debug("secret split",
		"threshold", key.n,
		"shares", key.m,
		"modulus_bits", uint32(key.size),
		"prime", key.Fingerprint(),
	)

	return &Result{PublicKey: key, Shares: shares}, nil
}

// DecryptWith recovers the secret from the first pub.N() entries of shares.
// Entries beyond the threshold are ignored and not validated.
func (e *Engine) DecryptWith(pub *PublicKey, shares []*Share) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: public key is nil", ErrInvalidParameter)
	}
	if len(shares) < pub.n {
		return nil, fmt.Errorf("%w: need %d, got %d", ErrInsufficientShares, pub.n, len(shares))
	}

	used := shares[:pub.n]
	for i := range used {
		if used[i] == nil {
			return nil, fmt.Errorf("%w: share %d is nil", ErrUnauthorizedShare, i)
		}
		for j := i + 1; j < len(used); j++ {
			if used[i].Equal(used[j]) {
				return nil, fmt.Errorf("%w: shares %d and %d are identical", ErrDuplicateShares, i, j)
			}
		}
	}

	for i, s := range used {
		if !pub.Contains(s) {
			return nil, fmt.Errorf("%w: share %d (%s)", ErrUnauthorizedShare, i, s)
		}
	}

	secret, err := combine(pub, used)
	if err != nil {
		return nil, err
	}

	e.log().Debug("secret recovered", "threshold", pub.n, "supplied", len(shares), "prime", pub.Fingerprint())
	return secret, nil
}

// combine interpolates the constant term from exactly the given shares and
// strips the padding sentinel. It performs no membership checks.
func combine(pub *PublicKey, shares []*Share) ([]byte, error) {
	xs := make([][]byte, len(shares))
	ys := make([][]byte, len(shares))
	for i, s := range shares {
		xs[i] = s.X()
		ys[i] = s.Y()
	}
	defer secure.ZeroAll(ys)

	raw, err := polynomial.Reconstruct(xs, ys, nil, pub.prime)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct secret: %w", err)
	}
	padded := secure.Take(raw)
	defer padded.Destroy()

	if padded.Len() == 0 || padded.Bytes()[0] != paddingSentinel {
		return nil, ErrMalformedSecret
	}
	return append([]byte{}, padded.Bytes()[1:]...), nil
}

// sharePositions returns the positions 1..m as 4-byte big-endian integers.
func sharePositions(m int) [][]byte {
	xs := make([][]byte, m)
	for i := range xs {
		xs[i] = make([]byte, 4)
		binary.BigEndian.PutUint32(xs[i], uint32(i+1))
	}
	return xs
}

var defaultEngine = NewEngine()

// Encrypt splits secret under pub with the default engine.
func Encrypt(pub *PublicKey, secret []byte) (*Result, error) {
	return defaultEngine.EncryptWith(pub, secret)
}

// Decrypt recovers a secret under pub with the default engine.
func Decrypt(pub *PublicKey, shares []*Share) ([]byte, error) {
	return defaultEngine.DecryptWith(pub, shares)
}
