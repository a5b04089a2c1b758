// Package field implements the arithmetic modulo a large prime that the
// secret sharing engine runs on. Every result is reduced into [0, P).
package field

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Davincible/sss/pkg/crypto/random"
)

var (
	// ErrInvalidParameter reports an argument that violates a construction constraint.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrArithmetic reports a field operation without a result, such as the
	// inverse of a value sharing a factor with the modulus.
	ErrArithmetic = errors.New("arithmetic error")
)

// primalityRounds gives a Miller-Rabin error bound of 4^-64 = 2^-128 on top of
// the Baillie-PSW test math/big always runs.
const primalityRounds = 64

// ModulusSize is the bit length of the prime modulus.
type ModulusSize uint32

const (
	Size1024 ModulusSize = 1024
	Size2048 ModulusSize = 2048
	Size3072 ModulusSize = 3072
	Size4096 ModulusSize = 4096
)

// AllowedSizes lists every supported modulus size in ascending order.
var AllowedSizes = []ModulusSize{Size1024, Size2048, Size3072, Size4096}

func (s ModulusSize) Valid() bool {
	for _, a := range AllowedSizes {
		if s == a {
			return true
		}
	}
	return false
}

// Bytes is the modulus size in bytes.
func (s ModulusSize) Bytes() int {
	return int(s) / 8
}

// MaxSecretLen is the longest raw secret that fits the field once the one-byte
// padding sentinel is prepended.
func (s ModulusSize) MaxSecretLen() int {
	return s.Bytes() - 2
}

func (s ModulusSize) String() string {
	return fmt.Sprintf("%d", uint32(s))
}

// ParseModulusSize converts a bit count into a ModulusSize.
func ParseModulusSize(bits int) (ModulusSize, error) {
	s := ModulusSize(bits)
	if bits <= 0 || !s.Valid() {
		return 0, fmt.Errorf("%w: modulus size must be one of %v, got %d", ErrInvalidParameter, AllowedSizes, bits)
	}
	return s, nil
}

// Reduce returns a mod p in [0, p), also for negative a.
func Reduce(a, p *big.Int) *big.Int {
	return new(big.Int).Mod(a, p)
}

func Add(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, p)
}

// Sub computes (a - b) mod p. The intermediate may be negative; the result is not.
func Sub(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, p)
}

func Mul(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, p)
}

// Exp computes base^e mod p.
func Exp(base, e, p *big.Int) *big.Int {
	return new(big.Int).Exp(base, e, p)
}

// Inverse returns the multiplicative inverse of a mod p.
func Inverse(a, p *big.Int) (*big.Int, error) {
	r := Reduce(a, p)
	if r.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero has no inverse", ErrArithmetic)
	}
	inv := new(big.Int).ModInverse(r, p)
	if inv == nil {
		return nil, fmt.Errorf("%w: value is not invertible modulo the prime", ErrArithmetic)
	}
	return inv, nil
}

// IsProbablePrime reports whether p passes the primality test with an error
// probability of at most 2^-128.
func IsProbablePrime(p *big.Int) bool {
	if p == nil || p.Sign() <= 0 {
		return false
	}
	return p.ProbablyPrime(primalityRounds)
}

// CheckPrime verifies that p is a probable prime of exactly size bits.
func CheckPrime(p *big.Int, size ModulusSize) error {
	if !size.Valid() {
		return fmt.Errorf("%w: unsupported modulus size %d", ErrInvalidParameter, size)
	}
	if p == nil || p.BitLen() != int(size) {
		got := 0
		if p != nil {
			got = p.BitLen()
		}
		return fmt.Errorf("%w: prime must be %d bits, got %d", ErrInvalidParameter, size, got)
	}
	if !IsProbablePrime(p) {
		return fmt.Errorf("%w: modulus is not prime", ErrInvalidParameter)
	}
	return nil
}

// GeneratePrime samples random odd candidates with the top bit set until one
// is a probable prime. The search has no deterministic fallback.
func GeneratePrime(src random.Source, size ModulusSize) (*big.Int, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: unsupported modulus size %d", ErrInvalidParameter, size)
	}
	if src == nil {
		src = random.Default
	}

	buf := make([]byte, size.Bytes())
	candidate := new(big.Int)
	for {
		if _, err := src.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to read prime candidate: %w", err)
		}
		buf[0] |= 0x80
		buf[len(buf)-1] |= 0x01
		candidate.SetBytes(buf)

		if candidate.ProbablyPrime(primalityRounds) {
			for i := range buf {
				buf[i] = 0
			}
			return candidate, nil
		}
	}
}
