package sss

import (
	"errors"

	"github.com/Davincible/sss/pkg/crypto/field"
)

// Errors returned by this package. Compare with errors.Is; returned errors wrap
// them with detail.
var (
	// ErrInvalidParameter reports a construction argument outside its allowed range.
	ErrInvalidParameter = field.ErrInvalidParameter
	// ErrArithmetic reports a non-invertible value during reconstruction, which
	// means a corrupted prime or repeated positions slipped through.
	ErrArithmetic = field.ErrArithmetic

	ErrSecretTooLarge     = errors.New("secret too large for modulus")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrDuplicateShares    = errors.New("duplicate shares")
	ErrUnauthorizedShare  = errors.New("share does not belong to public key")
	ErrMalformedSecret    = errors.New("malformed secret padding")
	ErrMalformedEncoding  = errors.New("malformed encoding")
	ErrAlreadyBound       = errors.New("public key already bound to shares")
)
