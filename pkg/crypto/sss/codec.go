package sss

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// The binary encodings are tag streams without an overall header. Integer
// fields are a tag plus 4 bytes little-endian. Byte fields are a tag, a 4-byte
// little-endian length and the raw bytes.

const (
	tagN      byte = 0x01
	tagM      byte = 0x02
	tagSize   byte = 0x03
	tagPrime  byte = 0x04
	tagHashes byte = 0x05

	tagHashEntry byte = 0x01

	tagX byte = 0x01
	tagY byte = 0x02
)

type tlvWriter struct {
	buf bytes.Buffer
}

func (w *tlvWriter) putUint32(tag byte, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.WriteByte(tag)
	w.buf.Write(b[:])
}

func (w *tlvWriter) putBytes(tag byte, data []byte) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(data)))
	w.buf.WriteByte(tag)
	w.buf.Write(b[:])
	w.buf.Write(data)
}

func (w *tlvWriter) Bytes() []byte {
	return w.buf.Bytes()
}

type tlvReader struct {
	data []byte
	off  int
}

func newTLVReader(data []byte) *tlvReader {
	return &tlvReader{data: data}
}

// more reports whether another tag follows.
func (r *tlvReader) more() bool {
	return r.off < len(r.data)
}

func (r *tlvReader) tag() byte {
	t := r.data[r.off]
	r.off++
	return t
}

func (r *tlvReader) uint32() (uint32, error) {
	if len(r.data)-r.off < 4 {
		return 0, fmt.Errorf("%w: truncated integer at offset %d", ErrMalformedEncoding, r.off)
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// bytes returns a copy of the next length-prefixed field.
func (r *tlvReader) bytes() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(len(r.data)-r.off) < uint64(n) {
		return nil, fmt.Errorf("%w: field of %d bytes exceeds remaining %d", ErrMalformedEncoding, n, len(r.data)-r.off)
	}
	out := make([]byte, n)
	copy(out, r.data[r.off:r.off+int(n)])
	r.off += int(n)
	return out, nil
}

func unknownTag(t byte, off int) error {
	return fmt.Errorf("%w: unknown tag 0x%02x at offset %d", ErrMalformedEncoding, t, off)
}
