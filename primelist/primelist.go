// Package primelist provides a growable ordered sequence of 64-bit
// primes with a SHA-256 content digest and a checksummed binary file
// format. Ordering is by construction: sieves append in ascending
// order and the package does not re-sort.
package primelist

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/opencontainers/go-digest"

	"github.com/zprime137/iz/errdefs"
)

// PrimeList holds an ascending sequence of uint64 primes. It is not
// safe for concurrent use.
type PrimeList struct {
	primes []uint64
}

// New allocates a list with the given initial capacity. Callers size
// the capacity at or above the expected count; Append still grows the
// backing array when the estimate falls short.
func New(capacity int) (*PrimeList, error) {
	if capacity <= 0 {
		return nil, errdefs.InvalidParameter(fmt.Errorf("primelist: capacity must be positive"))
	}
	return &PrimeList{primes: make([]uint64, 0, capacity)}, nil
}

// FromSlice wraps an existing ascending slice of primes.
func FromSlice(primes []uint64) *PrimeList {
	return &PrimeList{primes: primes}
}

// Append adds p to the end of the list.
func (l *PrimeList) Append(p uint64) {
	l.primes = append(l.primes, p)
}

// Count returns the number of primes stored.
func (l *PrimeList) Count() int {
	return len(l.primes)
}

// Cap returns the current capacity.
func (l *PrimeList) Cap() int {
	return cap(l.primes)
}

// At returns the i-th prime. The index must be in [0, Count).
func (l *PrimeList) At(i int) uint64 {
	return l.primes[i]
}

// Last returns the final prime. The list must be non-empty.
func (l *PrimeList) Last() uint64 {
	return l.primes[len(l.primes)-1]
}

// RemoveLast drops the final prime. Sieves use it to discard a
// collected prime that overshot the requested bound.
func (l *PrimeList) RemoveLast() {
	l.primes = l.primes[:len(l.primes)-1]
}

// Values returns the underlying slice. The caller must not mutate it.
func (l *PrimeList) Values() []uint64 {
	return l.primes
}

// Trim shrinks the capacity to the count.
func (l *PrimeList) Trim() {
	if cap(l.primes) == len(l.primes) {
		return
	}
	trimmed := make([]uint64, len(l.primes))
	copy(trimmed, l.primes)
	l.primes = trimmed
}

// Digest returns the SHA-256 digest over the count*8 bytes of the
// active prefix, little-endian.
func (l *PrimeList) Digest() digest.Digest {
	return digest.FromBytes(l.bytes())
}

func (l *PrimeList) bytes() []byte {
	buf := make([]byte, 0, len(l.primes)*8)
	for _, p := range l.primes {
		buf = binary.LittleEndian.AppendUint64(buf, p)
	}
	return buf
}

// EstimateCount returns n/ln(n), the prime counting estimate used to
// size sieve output capacity.
func EstimateCount(n uint64) int {
	if n < 3 {
		return 1
	}
	return int(float64(n) / math.Log(float64(n)))
}
