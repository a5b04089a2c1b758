// Package random provides the cryptographically secure randomness used for
// polynomial coefficients and prime generation.
//
// All randomness comes from the operating system's CSPRNG. There is no seeded
// or deterministic mode, and a failing entropy source is treated as fatal.
package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/Davincible/sss/pkg/secure"
)

// ErrInvalidBound is returned by UniformBelow for a bound that is not positive.
var ErrInvalidBound = errors.New("random: bound must be positive")

// Source is the randomness capability the rest of the module depends on.
type Source interface {
	// Read fills p completely. It never returns a short read.
	io.Reader
	// NextBytes returns n fresh random bytes.
	NextBytes(n int) []byte
	// UniformBelow returns an integer uniformly distributed in [0, bound).
	UniformBelow(bound *big.Int) (*big.Int, error)
}

// OSSource reads from the operating system entropy pool. The zero value is
// ready to use and safe for concurrent use.
type OSSource struct {
	reader io.Reader
}

// Default is the process-wide source.
var Default Source = OSSource{}

func (s OSSource) src() io.Reader {
	if s.reader != nil {
		return s.reader
	}
	return rand.Reader
}

// Read fills p from the OS CSPRNG and panics if the entropy source fails.
func (s OSSource) Read(p []byte) (int, error) {
	if _, err := io.ReadFull(s.src(), p); err != nil {
		panic(fmt.Sprintf("random: entropy source failed: %v", err))
	}
	return len(p), nil
}

// NextBytes returns n fresh random bytes, or an empty slice for n <= 0. It
// panics if the entropy source fails.
func (s OSSource) NextBytes(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	b := make([]byte, n)
	_, _ = s.Read(b)
	return b
}

// UniformBelow draws ceil(log2(bound)) bits and redraws while the candidate is
// not below bound, so the result carries no modulo bias.
func (s OSSource) UniformBelow(bound *big.Int) (*big.Int, error) {
	if bound == nil || bound.Sign() <= 0 {
		return nil, ErrInvalidBound
	}

	bits := new(big.Int).Sub(bound, big.NewInt(1)).BitLen()
	if bits == 0 {
		return new(big.Int), nil
	}

	buf := make([]byte, (bits+7)/8)
	// mask for the unused high bits of the first byte
	mask := byte(0xFF >> uint(len(buf)*8-bits))

	candidate := new(big.Int)
	for {
		_, _ = s.Read(buf)
		buf[0] &= mask
		candidate.SetBytes(buf)
		if candidate.Cmp(bound) < 0 {
			secure.Zero(buf)
			return candidate, nil
		}
	}
}
