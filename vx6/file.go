package vx6

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/zprime137/iz/errdefs"
	"github.com/zprime137/iz/iz"
)

// Ext is the conventional extension for serialized blocks. WriteFile
// and ReadFile append it when the path does not already carry it.
const Ext = ".vx6"

// DefaultDir is the conventional location for per-block gap files.
const DefaultDir = "output/iZm"

// WriteFile serializes the block as
//
//	[ len(y)+1 (uint64 LE) | y bytes, NUL-terminated | count (uint64 LE)
//	  | count x uint16 LE gaps | 32-byte SHA-256 over the gap bytes ]
//
// creating the target directory when needed. The write is atomic.
func (b *Block) WriteFile(path string) error {
	path = withExt(path)

	gapBytes := make([]byte, 0, len(b.gaps)*2)
	for _, g := range b.gaps {
		gapBytes = binary.LittleEndian.AppendUint16(gapBytes, g)
	}

	yLen := uint64(len(b.Y) + 1)
	buf := make([]byte, 0, 8+int(yLen)+8+len(gapBytes)+sha256.Size)
	buf = binary.LittleEndian.AppendUint64(buf, yLen)
	buf = append(buf, b.Y...)
	buf = append(buf, 0)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(b.gaps)))
	buf = append(buf, gapBytes...)
	sum := sha256.Sum256(gapBytes)
	buf = append(buf, sum[:]...)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errdefs.System(fmt.Errorf("vx6: creating %s: %w", dir, err))
		}
	}
	if err := atomicwriter.WriteFile(path, buf, 0o644); err != nil {
		return errdefs.System(fmt.Errorf("vx6: writing %s: %w", path, err))
	}
	return nil
}

// ReadFile deserializes a block written by WriteFile, recomputing the
// gap digest and rejecting the file on mismatch. The returned block
// carries the offset and the gap sequence but no bitmaps.
func ReadFile(path string) (*Block, error) {
	path = withExt(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.System(fmt.Errorf("vx6: reading %s: %w", path, err))
	}
	if len(data) < 8 {
		return nil, errdefs.DataLoss(fmt.Errorf("vx6: %s truncated at %d bytes", path, len(data)))
	}

	yLen := binary.LittleEndian.Uint64(data)
	if yLen < 2 || uint64(len(data)) < 8+yLen+8+sha256.Size {
		return nil, errdefs.DataLoss(fmt.Errorf("vx6: %s has inconsistent offset header", path))
	}
	y := string(data[8 : 8+yLen-1])
	if data[8+yLen-1] != 0 || !isNumeric(y) {
		return nil, errdefs.DataLoss(fmt.Errorf("vx6: %s holds a malformed offset", path))
	}
	rest := data[8+yLen:]

	count := binary.LittleEndian.Uint64(rest)
	if uint64(len(rest)) != 8+count*2+sha256.Size {
		return nil, errdefs.DataLoss(fmt.Errorf("vx6: %s has inconsistent gap count %d", path, count))
	}
	gapBytes := rest[8 : 8+count*2]
	stored := rest[8+count*2:]
	sum := sha256.Sum256(gapBytes)
	if !bytes.Equal(sum[:], stored) {
		return nil, errdefs.DataLoss(fmt.Errorf("vx6: %s digest mismatch", path))
	}

	gaps := make([]uint16, count)
	for i := range gaps {
		gaps[i] = binary.LittleEndian.Uint16(gapBytes[i*2:])
	}
	return &Block{Y: y, Vx: iz.VX6, gaps: gaps}, nil
}

func withExt(path string) string {
	if strings.HasSuffix(path, Ext) {
		return path
	}
	return path + Ext
}
