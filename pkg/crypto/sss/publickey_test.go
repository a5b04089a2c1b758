package sss

import (
	"encoding/binary"
	"math/big"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/sss/pkg/crypto/field"
)

func TestNewPublicKeyValidation(t *testing.T) {
	tests := []struct {
		name string
		n, m int
		size field.ModulusSize
	}{
		{"M below N", 3, 2, field.Size1024},
		{"N below 2", 1, 5, field.Size1024},
		{"N zero", 0, 0, field.Size1024},
		{"Unsupported size", 2, 3, field.ModulusSize(1000)},
		{"Size zero", 2, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := NewPublicKey(tt.n, tt.m, tt.size)
			assert.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, pub)
		})
	}
}

func TestNewPublicKeyGeneratesPrime(t *testing.T) {
	pub, err := NewPublicKey(2, 3, field.Size1024)
	require.NoError(t, err)

	assert.Equal(t, 2, pub.N())
	assert.Equal(t, 3, pub.M())
	assert.Equal(t, field.Size1024, pub.Size())
	assert.Equal(t, 1024, pub.Prime().BitLen())
	assert.True(t, field.IsProbablePrime(pub.Prime()))
	assert.False(t, pub.Bound())
	assert.Empty(t, pub.Hashes())
	assert.Len(t, pub.Fingerprint(), 16)
}

func TestNewPublicKeyWithPrime(t *testing.T) {
	prime := sharedPrime(t)

	pub, err := NewPublicKeyWithPrime(3, 5, field.Size1024, prime)
	require.NoError(t, err)
	assert.Equal(t, 0, pub.Prime().Cmp(prime))

	// the key keeps its own copy
	pub.Prime().SetInt64(7)
	assert.Equal(t, 0, pub.Prime().Cmp(prime))

	_, err = NewPublicKeyWithPrime(3, 5, field.Size2048, prime)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	composite := new(big.Int).Add(prime, big.NewInt(1))
	_, err = NewPublicKeyWithPrime(3, 5, field.Size1024, composite)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewPublicKeyWithPrime(5, 3, field.Size1024, prime)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBindSharesOnce(t *testing.T) {
	pub := testKey(t, 2, 3)
	shares := []*Share{
		NewShare([]byte{0, 0, 0, 1}, []byte{1}),
		NewShare([]byte{0, 0, 0, 2}, []byte{2}),
	}

	require.NoError(t, pub.BindShares(shares))
	assert.True(t, pub.Bound())
	assert.Len(t, pub.Hashes(), 2)

	err := pub.BindShares(shares[:1])
	assert.ErrorIs(t, err, ErrAlreadyBound)
	assert.Len(t, pub.Hashes(), 2)
}

func TestBindSharesNil(t *testing.T) {
	pub := testKey(t, 2, 3)
	err := pub.BindShares([]*Share{NewShare([]byte{1}, []byte{1}), nil})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.False(t, pub.Bound())
}

func TestContains(t *testing.T) {
	pub := testKey(t, 2, 3)
	a := NewShare([]byte{0, 0, 0, 1}, []byte{0x10, 0x20})
	b := NewShare([]byte{0, 0, 0, 2}, []byte{0x30})
	require.NoError(t, pub.BindShares([]*Share{a, b}))

	assert.True(t, pub.Contains(a))
	assert.True(t, pub.Contains(NewShare(a.X(), a.Y())))
	assert.True(t, pub.Contains(b))
	assert.False(t, pub.Contains(NewShare([]byte{0, 0, 0, 1}, []byte{0x10, 0x21})))
	assert.False(t, pub.Contains(NewShare([]byte{0, 0, 0, 3}, []byte{0x30})))
	assert.False(t, pub.Contains(nil))
}

func TestConcurrentBindSingleWinner(t *testing.T) {
	pub := testKey(t, 2, 2)
	shares := []*Share{NewShare([]byte{1}, []byte{1}), NewShare([]byte{2}, []byte{2})}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pub.BindShares(shares) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestClone(t *testing.T) {
	pub := testKey(t, 2, 3)
	require.NoError(t, pub.BindShares([]*Share{NewShare([]byte{1}, []byte{1})}))

	c := pub.Clone()
	assert.True(t, c.Bound())
	assert.Equal(t, pub.Hashes(), c.Hashes())
	assert.Equal(t, 0, pub.Prime().Cmp(c.Prime()))

	u := pub.unbound()
	assert.False(t, u.Bound())
	assert.Empty(t, u.Hashes())
	assert.NoError(t, u.BindShares(nil))
}

func TestPublicKeyBinaryRoundTrip(t *testing.T) {
	bound := testKey(t, 3, 5)
	require.NoError(t, bound.BindShares([]*Share{
		NewShare([]byte{0, 0, 0, 1}, []byte{1}),
		NewShare([]byte{0, 0, 0, 2}, []byte{2}),
		NewShare([]byte{0, 0, 0, 3}, []byte{3}),
	}))

	tests := []struct {
		name string
		pub  *PublicKey
	}{
		{"Bound", bound},
		{"No hashes", testKey(t, 2, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.pub.MarshalBinary()
			require.NoError(t, err)

			got, err := ParsePublicKey(data)
			require.NoError(t, err)

			assert.Equal(t, tt.pub.N(), got.N())
			assert.Equal(t, tt.pub.M(), got.M())
			assert.Equal(t, tt.pub.Size(), got.Size())
			assert.Equal(t, 0, tt.pub.Prime().Cmp(got.Prime()))
			assert.Equal(t, tt.pub.Bound(), got.Bound())
			if diff := cmp.Diff(tt.pub.Hashes(), got.Hashes()); diff != "" {
				t.Errorf("hash set mismatch (-want +got):\n%s", diff)
			}

			again, err := got.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestPublicKeyEncodingLayout(t *testing.T) {
	pub := testKey(t, 3, 5)
	data, err := pub.MarshalBinary()
	require.NoError(t, err)

	assert.Equal(t, byte(0x01), data[0])
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[1:5]))
	assert.Equal(t, byte(0x02), data[5])
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(data[6:10]))
	assert.Equal(t, byte(0x03), data[10])
	assert.Equal(t, uint32(1024), binary.LittleEndian.Uint32(data[11:15]))
	assert.Equal(t, byte(0x04), data[15])
	assert.Equal(t, uint32(128), binary.LittleEndian.Uint32(data[16:20]))
	assert.Equal(t, pub.Prime().Bytes(), data[20:148])
	assert.Equal(t, []byte{0x05, 0, 0, 0, 0}, data[148:])
}

// encodeFields writes key fields in the given order so decoders can be fed
// streams the encoder never produces.
func encodeFields(order []byte, n, m, size uint32, prime []byte, hashes [][]byte) []byte {
	inner := &tlvWriter{}
	for _, h := range hashes {
		inner.putBytes(tagHashEntry, h)
	}
	w := &tlvWriter{}
	for _, tag := range order {
		switch tag {
		case tagN:
			w.putUint32(tagN, n)
		case tagM:
			w.putUint32(tagM, m)
		case tagSize:
			w.putUint32(tagSize, size)
		case tagPrime:
			w.putBytes(tagPrime, prime)
		case tagHashes:
			w.putBytes(tagHashes, inner.Bytes())
		}
	}
	return w.Bytes()
}

func TestPublicKeyDecodeAnyOrder(t *testing.T) {
	prime := sharedPrime(t).Bytes()
	hash := make([]byte, HashSize)
	hash[0] = 0x42

	data := encodeFields([]byte{tagHashes, tagPrime, tagSize, tagM, tagN}, 2, 4, 1024, prime, [][]byte{hash})
	pub, err := ParsePublicKey(data)
	require.NoError(t, err)

	assert.Equal(t, 2, pub.N())
	assert.Equal(t, 4, pub.M())
	assert.True(t, pub.Bound())
	require.Len(t, pub.Hashes(), 1)
	assert.Equal(t, byte(0x42), pub.Hashes()[0][0])
}

func TestPublicKeyDecodeErrors(t *testing.T) {
	prime := sharedPrime(t).Bytes()
	all := []byte{tagN, tagM, tagSize, tagPrime, tagHashes}
	valid := encodeFields(all, 2, 3, 1024, prime, nil)

	// hash set holding an entry under a foreign tag
	nested := &tlvWriter{}
	nested.putBytes(0x02, make([]byte, HashSize))
	foreign := &tlvWriter{}
	foreign.buf.Write(encodeFields([]byte{tagN, tagM, tagSize, tagPrime}, 2, 3, 1024, prime, nil))
	foreign.putBytes(tagHashes, nested.Bytes())

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Unknown tag", append(append([]byte{}, valid...), 0x09)},
		{"Truncated integer", valid[:3]},
		{"Truncated prime", valid[:40]},
		{"Missing prime", encodeFields([]byte{tagN, tagM, tagSize, tagHashes}, 2, 3, 1024, nil, nil)},
		{"Prime size mismatch", encodeFields(all, 2, 3, 2048, prime, nil)},
		{"Invalid threshold", encodeFields(all, 1, 3, 1024, prime, nil)},
		{"M below N", encodeFields(all, 4, 3, 1024, prime, nil)},
		{"Short hash", encodeFields(all, 2, 3, 1024, prime, [][]byte{{1, 2, 3}})},
		{"Unknown nested tag", foreign.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicKey(tt.data)
			assert.ErrorIs(t, err, ErrMalformedEncoding)
		})
	}
}
