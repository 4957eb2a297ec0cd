// Package fingerprint computes the MD5 digest spec §4.8 folds into
// every observation namespace: a stable hash of the generator
// parameters in effect, so that regenerating a sequence under the same
// parameters reproduces identical atom and step ids, while any change
// to a parameter changes every id downstream.
//
// The encoding is a plain, ordered concatenation of fields (never
// JSON/gob, whose key ordering and type metadata are not guaranteed
// stable across library versions) — the stdlib is the right tool here,
// not a third-party serializer, since the format only needs to be
// stable within this binary's own MD5 call, never read back or shared
// across processes.
package fingerprint

import (
	"crypto/md5"
	"encoding/binary"
)

// HashBytes accumulates a canonical byte encoding of a GeneratorParams
// value. Callers append fields in a fixed, documented order; the same
// sequence of Append* calls on equal inputs always yields the same
// digest.
type HashBytes struct {
	buf []byte
}

// String appends a length-prefixed string so that e.g. ("ab","c") and
// ("a","bc") never collide.
func (h *HashBytes) String(s string) *HashBytes {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	h.buf = append(h.buf, lenBuf[:]...)
	h.buf = append(h.buf, s...)
	return h
}

// Int64 appends a fixed-width big-endian int64.
func (h *HashBytes) Int64(v int64) *HashBytes {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.buf = append(h.buf, buf[:]...)
	return h
}

// Bool appends a single byte, 1 for true and 0 for false.
func (h *HashBytes) Bool(v bool) *HashBytes {
	if v {
		h.buf = append(h.buf, 1)
	} else {
		h.buf = append(h.buf, 0)
	}
	return h
}

// Bytes appends raw bytes, length-prefixed.
func (h *HashBytes) Bytes(b []byte) *HashBytes {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	h.buf = append(h.buf, lenBuf[:]...)
	h.buf = append(h.buf, b...)
	return h
}

// Sum returns the MD5 digest of everything appended so far (spec
// §4.8's 16-byte paramsFingerprint).
func (h *HashBytes) Sum() [16]byte {
	return md5.Sum(h.buf)
}

// Hashable is implemented by anything that can contribute a canonical
// byte encoding of itself to a fingerprint, most notably
// pkg/config.GeneratorParams.
type Hashable interface {
	WriteHash(h *HashBytes)
}

// Of computes the fingerprint of a single Hashable value.
func Of(v Hashable) [16]byte {
	var h HashBytes
	v.WriteHash(&h)
	return h.Sum()
}
