package sss

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/crypto/random"
)

var (
	primeOnce sync.Once
	prime1024 *big.Int
)

func sharedPrime(t testing.TB) *big.Int {
	t.Helper()
	primeOnce.Do(func() {
		p, err := field.GeneratePrime(random.Default, field.Size1024)
		if err != nil {
			panic(err)
		}
		prime1024 = p
	})
	return prime1024
}

// testKey builds an unbound 1024-bit key around the shared prime without
// paying for a new prime search in every test.
func testKey(t testing.TB, n, m int) *PublicKey {
	t.Helper()
	require.NoError(t, validateParams(n, m, field.Size1024))
	return &PublicKey{n: n, m: m, size: field.Size1024, prime: new(big.Int).Set(sharedPrime(t))}
}

func pick(shares []*Share, idx ...int) []*Share {
	out := make([]*Share, len(idx))
	for i, j := range idx {
		out[i] = shares[j]
	}
	return out
}
