package polynomial

import (
	"fmt"
	"math/big"

	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/secure"
)

// Reconstruct interpolates the polynomial through the points (xs[i], ys[i])
// and returns its value at targetX as unsigned big-endian bytes. An empty
// targetX means x = 0, the constant term.
//
// All k points are used, so the result is exact only for polynomials of
// degree below k.
func Reconstruct(xs, ys [][]byte, targetX []byte, prime *big.Int) ([]byte, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: no points given", field.ErrInvalidParameter)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d x values but %d y values", field.ErrInvalidParameter, len(xs), len(ys))
	}
	if prime == nil || prime.Sign() <= 0 {
		return nil, fmt.Errorf("%w: prime modulus is missing", field.ErrInvalidParameter)
	}

	xVals := make([]*big.Int, len(xs))
	yVals := make([]*big.Int, len(ys))
	for i := range xs {
		xVals[i] = new(big.Int).SetBytes(xs[i])
		yVals[i] = new(big.Int).SetBytes(ys[i])
	}
	defer secure.ZeroInts(yVals)

	rel := relativePositions(xVals, new(big.Int).SetBytes(targetX), prime)
	basis, err := basisCoefficients(xVals, rel, prime)
	if err != nil {
		return nil, err
	}
	defer secure.ZeroInts(basis)

	result := new(big.Int)
	term := new(big.Int)
	defer secure.ZeroInt(result)
	defer secure.ZeroInt(term)

	for i := range yVals {
		term.Mul(yVals[i], basis[i])
		term.Mod(term, prime)
		result.Add(result, term)
	}
	result.Mod(result, prime)

	return result.Bytes(), nil
}

// relativePositions computes (target - x[i]) mod P.
func relativePositions(xVals []*big.Int, target, prime *big.Int) []*big.Int {
	rel := make([]*big.Int, len(xVals))
	for i, x := range xVals {
		rel[i] = field.Sub(target, x, prime)
	}
	return rel
}

// basisCoefficients computes the Lagrange basis values
// prod_{j!=i} rel[j] / prod_{j!=i} (x[i] - x[j]) mod P.
func basisCoefficients(xVals, rel []*big.Int, prime *big.Int) ([]*big.Int, error) {
	out := make([]*big.Int, len(xVals))
	for i := range xVals {
		num := big.NewInt(1)
		den := big.NewInt(1)
		for j := range xVals {
			if i == j {
				continue
			}
			num = field.Mul(num, rel[j], prime)
			den = field.Mul(den, field.Sub(xVals[i], xVals[j], prime), prime)
		}

		inv, err := field.Inverse(den, prime)
		if err != nil {
			return nil, fmt.Errorf("lagrange basis %d: %w", i, err)
		}
		out[i] = field.Mul(num, inv, prime)
	}
	return out, nil
}
