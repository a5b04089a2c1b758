package sss

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/Davincible/sss/pkg/secure"
)

// HashSize is the length of a share's content hash.
const HashSize = sha256.Size

// Share is one point (x, y) on the sharing polynomial. x is the share position
// and y the polynomial value there, both unsigned big-endian.
//
// Shares are identified by their content hash: two shares are equal exactly
// when SHA-256(x || y) matches.
type Share struct {
	x []byte
	y []byte
}

// NewShare copies x and y into a new share.
func NewShare(x, y []byte) *Share {
	s := &Share{
		x: make([]byte, len(x)),
		y: make([]byte, len(y)),
	}
	copy(s.x, x)
	copy(s.y, y)
	return s
}

// ParseShare decodes a share produced by MarshalBinary.
func ParseShare(data []byte) (*Share, error) {
	s := &Share{}
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return s, nil
}

// X returns a copy of the share position.
func (s *Share) X() []byte {
	return append([]byte(nil), s.x...)
}

// Y returns a copy of the polynomial value. The caller should wipe it after use.
func (s *Share) Y() []byte {
	return append([]byte(nil), s.y...)
}

// Position returns x as an integer.
func (s *Share) Position() *big.Int {
	return new(big.Int).SetBytes(s.x)
}

// Hash is SHA-256 over x immediately followed by y.
func (s *Share) Hash() [HashSize]byte {
	h := sha256.New()
	h.Write(s.x)
	h.Write(s.y)

	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Equal compares shares by content hash.
func (s *Share) Equal(other *Share) bool {
	if s == nil || other == nil {
		return s == other
	}
	a, b := s.Hash(), other.Hash()
	return secure.ConstantTimeCompare(a[:], b[:])
}

// MarshalBinary encodes the share as {0x01 X}{0x02 Y}.
func (s *Share) MarshalBinary() ([]byte, error) {
	w := &tlvWriter{}
	w.putBytes(tagX, s.x)
	w.putBytes(tagY, s.y)
	return w.Bytes(), nil
}

// UnmarshalBinary decodes a share. Both X and Y must be present.
func (s *Share) UnmarshalBinary(data []byte) error {
	var (
		x, y  []byte
		haveX bool
		haveY bool
		err   error
	)
	r := newTLVReader(data)

	for r.more() {
		off := r.off
		switch t := r.tag(); t {
		case tagX:
			if x, err = r.bytes(); err != nil {
				return err
			}
			haveX = true
		case tagY:
			if y, err = r.bytes(); err != nil {
				return err
			}
			haveY = true
		default:
			return unknownTag(t, off)
		}
	}

	if !haveX || !haveY {
		secure.Zero(y)
		return fmt.Errorf("%w: share needs both x and y", ErrMalformedEncoding)
	}

	s.x, s.y = x, y
	return nil
}

// Destroy wipes y.
func (s *Share) Destroy() {
	secure.Zero(s.y)
}

// String identifies the share without revealing y.
func (s *Share) String() string {
	h := s.Hash()
	return fmt.Sprintf("Share{X: %s, Hash: %s...}", s.Position().String(), hex.EncodeToString(h[:8]))
}
