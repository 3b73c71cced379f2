// Package bitmap provides a fixed-size dense bit array with the bulk
// operations wheel sieves need (range clearing by stride, segment
// duplication), a SHA-256 content digest, and a checksummed binary file
// format.
//
// Bit i lives in byte i/8 at bit position i%8, LSB first. The packed
// byte form produced by Bytes is canonical: digests and the on-disk
// format are defined against it.
package bitmap

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/opencontainers/go-digest"

	"github.com/zprime137/iz/errdefs"
)

// maxBits caps a single allocation at 256 GiB of bits. Requests beyond
// it are rejected up front instead of letting the runtime abort.
const maxBits = 1 << 41

// Bitmap is a fixed-size dense bit array. All bits are zero after New.
// It is not safe for concurrent use.
type Bitmap struct {
	size uint64
	bits *bitset.BitSet
}

// New allocates a bitmap of size bits, all zero.
func New(size uint64) (*Bitmap, error) {
	if size == 0 {
		return nil, errdefs.InvalidParameter(fmt.Errorf("bitmap: size must be positive"))
	}
	if size > maxBits {
		return nil, errdefs.InvalidParameter(fmt.Errorf("bitmap: size %d exceeds maximum %d", size, maxBits))
	}
	return &Bitmap{
		size: size,
		bits: bitset.New(uint(size)),
	}, nil
}

// Size returns the number of bits.
func (b *Bitmap) Size() uint64 {
	return b.size
}

// Set sets bit i to 1. Out-of-range indices are ignored so that the
// bitmap never grows past its declared size.
func (b *Bitmap) Set(i uint64) {
	if i >= b.size {
		return
	}
	b.bits.Set(uint(i))
}

// Clear sets bit i to 0. Out-of-range indices are ignored.
func (b *Bitmap) Clear(i uint64) {
	b.bits.Clear(uint(i))
}

// Get reports whether bit i is set. Out-of-range indices read as 0.
func (b *Bitmap) Get(i uint64) bool {
	return b.bits.Test(uint(i))
}

// SetAll sets every bit to 1.
func (b *Bitmap) SetAll() {
	b.bits.SetAll()
}

// ClearAll sets every bit to 0.
func (b *Bitmap) ClearAll() {
	b.bits.ClearAll()
}

// ClearModP clears bits start, start+p, start+2p, ... up to and
// including limit. The inclusive limit is load-bearing for the sieve
// algorithms; callers size their bitmaps with slack so that limit stays
// in range. A start beyond limit is a no-op.
func (b *Bitmap) ClearModP(p, start, limit uint64) error {
	if p == 0 {
		return errdefs.InvalidParameter(fmt.Errorf("bitmap: step must be positive"))
	}
	if limit >= b.size {
		return errdefs.InvalidParameter(fmt.Errorf("bitmap: limit %d out of range for size %d", limit, b.size))
	}
	for i := start; i <= limit; i += p {
		b.bits.Clear(uint(i))
	}
	return nil
}

// Copy copies length bits from src starting at srcOff into dst starting
// at dstOff. Ranges within the same bitmap must not overlap.
func Copy(dst *Bitmap, dstOff uint64, src *Bitmap, srcOff uint64, length uint64) error {
	if dstOff+length > dst.size || srcOff+length > src.size {
		return errdefs.InvalidParameter(fmt.Errorf("bitmap: copy of %d bits out of range", length))
	}
	if dst == src && dstOff < srcOff+length && srcOff < dstOff+length {
		return errdefs.InvalidParameter(fmt.Errorf("bitmap: copy ranges overlap"))
	}
	dst.copyRange(dstOff, src, srcOff, length)
	return nil
}

func (b *Bitmap) copyRange(dstOff uint64, src *Bitmap, srcOff, length uint64) {
	for i := uint64(0); i < length; i++ {
		b.bits.SetTo(uint(dstOff+i), src.bits.Test(uint(srcOff+i)))
	}
}

// DuplicateSegment replicates the pattern in [start, start+segLen)
// factor-1 further times immediately after it, so that the region
// [start, start+segLen*factor) holds factor repetitions.
func (b *Bitmap) DuplicateSegment(start, segLen, factor uint64) error {
	if segLen == 0 || factor == 0 {
		return errdefs.InvalidParameter(fmt.Errorf("bitmap: segment length and factor must be positive"))
	}
	if start+segLen*factor > b.size {
		return errdefs.InvalidParameter(fmt.Errorf("bitmap: duplicated segment of %d bits exceeds size %d", segLen*factor, b.size))
	}
	cursor := start + segLen
	for i := uint64(1); i < factor; i++ {
		b.copyRange(cursor, b, start, segLen)
		cursor += segLen
	}
	return nil
}

// Clone returns a new bitmap equal in size and content.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{
		size: b.size,
		bits: b.bits.Clone(),
	}
}

// CopyFrom overwrites the receiver's contents with src's. Sizes must
// match; it exists so that per-segment scratch bitmaps can be reset
// from a pattern without reallocating.
func (b *Bitmap) CopyFrom(src *Bitmap) error {
	if b.size != src.size {
		return errdefs.InvalidParameter(fmt.Errorf("bitmap: size mismatch %d != %d", b.size, src.size))
	}
	src.bits.CopyFull(b.bits)
	return nil
}

// Equal reports whether both bitmaps have the same size and contents.
func (b *Bitmap) Equal(other *Bitmap) bool {
	return b.size == other.size && b.bits.Equal(other.bits)
}

// Bytes returns the canonical packed byte form: ceil(size/8) bytes,
// LSB-first within each byte.
func (b *Bitmap) Bytes() []byte {
	words := b.bits.Bytes()
	buf := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return buf[:(b.size+7)/8]
}

// Digest returns the SHA-256 digest of the canonical packed byte form.
func (b *Bitmap) Digest() digest.Digest {
	return digest.FromBytes(b.Bytes())
}

// String renders the bitmap as a string of '0' and '1' characters, bit
// 0 first. Intended for tests and debugging of small bitmaps.
func (b *Bitmap) String() string {
	var sb strings.Builder
	sb.Grow(int(b.size))
	for i := uint64(0); i < b.size; i++ {
		if b.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// FromString builds a bitmap from a string of '0' and '1' characters.
func FromString(s string) (*Bitmap, error) {
	b, err := New(uint64(len(s)))
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			b.Set(uint64(i))
		case '0':
		default:
			return nil, errdefs.InvalidParameter(fmt.Errorf("bitmap: invalid character %q at position %d", s[i], i))
		}
	}
	return b, nil
}
