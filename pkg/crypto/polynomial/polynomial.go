// Package polynomial builds random polynomials over a prime field whose
// constant term carries the secret, evaluates them at share positions and
// recovers values by Lagrange interpolation.
package polynomial

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/crypto/random"
	"github.com/Davincible/sss/pkg/secure"
)

// Polynomial is f(x) = c[0] + c[1]x + ... + c[n-1]x^(n-1) mod P.
// It is single use: Init once, evaluate, then Destroy.
type Polynomial struct {
	prime        *big.Int
	size         field.ModulusSize
	coefficients []*big.Int
	initialized  bool
	rand         random.Source
}

// Option customizes a Polynomial.
type Option func(*Polynomial)

// WithSource replaces the default randomness source.
func WithSource(src random.Source) Option {
	return func(p *Polynomial) {
		if src != nil {
			p.rand = src
		}
	}
}

// New creates an uninitialized polynomial with coefficientCount coefficients
// (degree coefficientCount-1) over the field of the given prime.
func New(prime *big.Int, coefficientCount int, size field.ModulusSize, opts ...Option) (*Polynomial, error) {
	if coefficientCount < 2 {
		return nil, fmt.Errorf("%w: coefficient count must be at least 2, got %d", field.ErrInvalidParameter, coefficientCount)
	}
	if !size.Valid() {
		return nil, fmt.Errorf("%w: modulus size must be one of %v, got %d", field.ErrInvalidParameter, field.AllowedSizes, size)
	}
	if prime == nil || prime.Sign() <= 0 {
		return nil, fmt.Errorf("%w: prime modulus is missing", field.ErrInvalidParameter)
	}

	p := &Polynomial{
		prime:        new(big.Int).Set(prime),
		size:         size,
		coefficients: make([]*big.Int, coefficientCount),
		rand:         random.Default,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Init sets the constant term and draws the remaining coefficients.
//
// Each random coefficient is size/8 random bytes reduced mod P. The reduction
// is a plain modulo and not rejection sampled.
func (p *Polynomial) Init(constantTerm []byte) error {
	if p.initialized {
		return fmt.Errorf("%w: polynomial is already initialized", field.ErrInvalidParameter)
	}

	c0 := new(big.Int).SetBytes(constantTerm)
	if c0.Cmp(p.prime) >= 0 {
		secure.ZeroInt(c0)
		return fmt.Errorf("%w: constant term is not smaller than the prime", field.ErrInvalidParameter)
	}
	p.coefficients[0] = c0

	storage := secure.NewBuffer(p.size.Bytes())
	defer storage.Destroy()

	tmp := new(big.Int)
	defer secure.ZeroInt(tmp)

	for i := 1; i < len(p.coefficients); i++ {
		if _, err := p.rand.Read(storage.Bytes()); err != nil {
			p.Destroy()
			return fmt.Errorf("failed to draw coefficient: %w", err)
		}
		tmp.SetBytes(storage.Bytes())
		p.coefficients[i] = new(big.Int).Mod(tmp, p.prime)
	}

	p.initialized = true
	return nil
}

// Degree is the number of coefficients minus one.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// EvaluateAt computes sum(c[i] * x^i) mod P and returns it as unsigned
// big-endian bytes.
func (p *Polynomial) EvaluateAt(x []byte) ([]byte, error) {
	if !p.initialized {
		return nil, fmt.Errorf("%w: polynomial is not initialized", field.ErrInvalidParameter)
	}

	X := new(big.Int).SetBytes(x)
	y := new(big.Int).Mod(p.coefficients[0], p.prime)
	term := new(big.Int)
	exp := new(big.Int)
	defer secure.ZeroInts([]*big.Int{y, term})

	for i := 1; i < len(p.coefficients); i++ {
		exp.SetInt64(int64(i))
		term.Exp(X, exp, p.prime)
		term.Mul(term, p.coefficients[i])
		y.Add(y, term)
		y.Mod(y, p.prime)
	}

	return y.Bytes(), nil
}

// EvaluateAtMany validates xs and evaluates the polynomial at each position.
// ys[i] belongs to xs[i].
func (p *Polynomial) EvaluateAtMany(xs [][]byte) ([][]byte, error) {
	if err := ValidatePositions(xs); err != nil {
		return nil, err
	}

	ys := make([][]byte, len(xs))
	for i, x := range xs {
		y, err := p.EvaluateAt(x)
		if err != nil {
			secure.ZeroAll(ys[:i])
			return nil, err
		}
		ys[i] = y
	}
	return ys, nil
}

// Destroy wipes the coefficients. The polynomial cannot be used afterwards.
func (p *Polynomial) Destroy() {
	secure.ZeroInts(p.coefficients)
	for i := range p.coefficients {
		p.coefficients[i] = nil
	}
	p.initialized = false
}

// ValidatePositions rejects position sets containing zero, where the secret
// lives, or two byte-identical positions.
func ValidatePositions(xs [][]byte) error {
	for i, x := range xs {
		if isZero(x) {
			return fmt.Errorf("%w: position %d is zero", field.ErrInvalidParameter, i)
		}
		for j := i + 1; j < len(xs); j++ {
			if bytes.Equal(x, xs[j]) {
				return fmt.Errorf("%w: positions %d and %d are identical", field.ErrInvalidParameter, i, j)
			}
		}
	}
	return nil
}

func isZero(x []byte) bool {
	for _, b := range x {
		if b != 0 {
			return false
		}
	}
	return true
}
