package primelist

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/moby/sys/atomicwriter"

	"github.com/zprime137/iz/errdefs"
)

const countLen = 4 // int32 count prefix

// WriteFile serializes the list as
//
//	[ count (int32 LE) | count x uint64 LE | 32-byte SHA-256 ]
//
// where the digest covers the count*8 prime bytes.
func (l *PrimeList) WriteFile(path string) error {
	if len(l.primes) > math.MaxInt32 {
		return errdefs.InvalidParameter(fmt.Errorf("primelist: %d primes exceed the file format's int32 count", len(l.primes)))
	}
	body := l.bytes()
	buf := make([]byte, 0, countLen+len(body)+sha256.Size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(l.primes)))
	buf = append(buf, body...)
	sum := sha256.Sum256(body)
	buf = append(buf, sum[:]...)

	if err := atomicwriter.WriteFile(path, buf, 0o644); err != nil {
		return errdefs.System(fmt.Errorf("primelist: writing %s: %w", path, err))
	}
	return nil
}

// ReadFile deserializes a list written by WriteFile, recomputing the
// digest and rejecting the file on mismatch.
func ReadFile(path string) (*PrimeList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.System(fmt.Errorf("primelist: reading %s: %w", path, err))
	}
	if len(data) < countLen+sha256.Size {
		return nil, errdefs.DataLoss(fmt.Errorf("primelist: %s truncated at %d bytes", path, len(data)))
	}

	count := int(int32(binary.LittleEndian.Uint32(data)))
	if count < 0 || len(data) != countLen+count*8+sha256.Size {
		return nil, errdefs.DataLoss(fmt.Errorf("primelist: %s has inconsistent count header %d", path, count))
	}

	body := data[countLen : countLen+count*8]
	stored := data[countLen+count*8:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], stored) {
		return nil, errdefs.DataLoss(fmt.Errorf("primelist: %s digest mismatch", path))
	}

	primes := make([]uint64, count)
	for i := range primes {
		primes[i] = binary.LittleEndian.Uint64(body[i*8:])
	}
	return &PrimeList{primes: primes}, nil
}
