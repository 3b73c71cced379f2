package bitmap

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/moby/sys/atomicwriter"

	"github.com/zprime137/iz/errdefs"
)

// Ext is the conventional extension for serialized bitmaps. WriteFile
// and ReadFile append it when the given path does not already carry it.
const Ext = ".bitmap"

const headerLen = 8 // uint64 size prefix

// WriteFile serializes the bitmap as
//
//	[ size (uint64 LE) | packed bytes | 32-byte SHA-256 of the packed bytes ]
//
// The file is written atomically so that readers never observe a torn
// artifact that would later fail its digest check.
func (b *Bitmap) WriteFile(path string) error {
	packed := b.Bytes()
	buf := make([]byte, 0, headerLen+len(packed)+sha256.Size)
	buf = binary.LittleEndian.AppendUint64(buf, b.size)
	buf = append(buf, packed...)
	sum := sha256.Sum256(packed)
	buf = append(buf, sum[:]...)

	if err := atomicwriter.WriteFile(withExt(path), buf, 0o644); err != nil {
		return errdefs.System(fmt.Errorf("bitmap: writing %s: %w", path, err))
	}
	return nil
}

// ReadFile deserializes a bitmap written by WriteFile, recomputing the
// digest and rejecting the file on mismatch.
func ReadFile(path string) (*Bitmap, error) {
	data, err := os.ReadFile(withExt(path))
	if err != nil {
		return nil, errdefs.System(fmt.Errorf("bitmap: reading %s: %w", path, err))
	}
	if len(data) < headerLen+sha256.Size {
		return nil, errdefs.DataLoss(fmt.Errorf("bitmap: %s truncated at %d bytes", path, len(data)))
	}

	size := binary.LittleEndian.Uint64(data)
	byteSize := (size + 7) / 8
	if size == 0 || size > maxBits || uint64(len(data)) != headerLen+byteSize+sha256.Size {
		return nil, errdefs.DataLoss(fmt.Errorf("bitmap: %s has inconsistent size header %d", path, size))
	}

	packed := data[headerLen : headerLen+byteSize]
	stored := data[headerLen+byteSize:]
	sum := sha256.Sum256(packed)
	if !bytes.Equal(sum[:], stored) {
		return nil, errdefs.DataLoss(fmt.Errorf("bitmap: %s digest mismatch", path))
	}

	words := make([]uint64, (byteSize+7)/8)
	padded := make([]byte, len(words)*8)
	copy(padded, packed)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(padded[i*8:])
	}
	return &Bitmap{
		size: size,
		bits: bitset.FromWithLength(uint(size), words),
	}, nil
}

func withExt(path string) string {
	if strings.HasSuffix(path, Ext) {
		return path
	}
	return path + Ext
}
