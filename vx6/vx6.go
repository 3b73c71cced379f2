// Package vx6 sieves single primorial blocks of the iZ lanes at
// arbitrary offsets: block y covers the interval
// [6*vx6*y, 6*vx6*(y+1)) where vx6 = 5*7*11*13*17*19 = 1616615.
//
// A block is sieved against a cached pre-composed wheel plus the
// cached primes below vx6; when the block lies beyond the reach of
// those primes' squares, surviving candidates are confirmed by
// Miller-Rabin. The result is a gap sequence from which every prime in
// the block can be reconstructed.
package vx6

import (
	"fmt"
	"math"
	"math/big"
	"slices"
	"sync"

	"github.com/containerd/log"

	"github.com/zprime137/iz/bitmap"
	"github.com/zprime137/iz/errdefs"
	"github.com/zprime137/iz/iz"
	"github.com/zprime137/iz/primelist"
	"github.com/zprime137/iz/sieve"
)

// DefaultRounds is the Miller-Rabin round count used when the caller
// passes zero. It is a policy default, not a cryptographic
// recommendation.
const DefaultRounds = 25

// startI indexes the first cached prime that does not divide vx6:
// 23, at position 8 of [2 3 5 7 11 13 17 19 23 ...].
const startI = 8

// Process-lifetime caches: the primes below vx6 and the pre-sieved
// reference wheel. Initialized once on first use; read-only
// afterwards. Worker processes build their own copies, nothing here
// crosses a process boundary.
var (
	cacheOnce    sync.Once
	cacheErr     error
	cachedPrimes *primelist.PrimeList
	cachedX5     *bitmap.Bitmap
	cachedX7     *bitmap.Bitmap
)

func initCaches() error {
	cacheOnce.Do(func() {
		cachedPrimes, cacheErr = sieve.SieveIZ(iz.VX6)
		if cacheErr != nil {
			return
		}
		cachedX5, cacheErr = bitmap.New(iz.VX6 + 100)
		if cacheErr != nil {
			return
		}
		cachedX7, cacheErr = bitmap.New(iz.VX6 + 100)
		if cacheErr != nil {
			return
		}
		cacheErr = iz.ConstructIZmSegment(iz.VX6, cachedX5, cachedX7)
	})
	return cacheErr
}

// Primes returns the cached list of primes below vx6. The caller must
// not mutate it.
func Primes() (*primelist.PrimeList, error) {
	if err := initCaches(); err != nil {
		return nil, err
	}
	return cachedPrimes, nil
}

// Block is one sieved primorial segment at offset Y. The bitmaps and
// the gap sequence are populated by Sieve; a Block deserialized from a
// file carries only Y and the gaps.
type Block struct {
	Y  string // decimal offset, arbitrary magnitude
	Vx uint64 // always vx6

	X5 *bitmap.Bitmap
	X7 *bitmap.Bitmap

	gaps []uint16
}

// NewBlock returns an unsieved block at the given decimal offset.
func NewBlock(y string) (*Block, error) {
	if !isNumeric(y) {
		return nil, errdefs.InvalidParameter(fmt.Errorf("vx6: offset %q is not a decimal string", y))
	}
	return &Block{Y: y, Vx: iz.VX6}, nil
}

// Gaps returns the prime gap sequence. The caller must not mutate it.
func (b *Block) Gaps() []uint16 {
	return b.gaps
}

// Count returns the number of primes found in the block.
func (b *Block) Count() int {
	return len(b.gaps)
}

// Anchor returns iZ(vx6*y, +1), the base value the gap sequence is
// relative to: successive additions of each gap yield the block's
// primes in order.
func (b *Block) Anchor() *big.Int {
	y, _ := new(big.Int).SetString(b.Y, 10)
	y.Mul(y, new(big.Int).SetUint64(iz.VX6))
	return y.Mul(y, big.NewInt(6)).Add(y, big.NewInt(1))
}

// Primes reconstructs up to limit primes from the anchor and the gap
// sequence; limit <= 0 reconstructs all of them.
func (b *Block) Primes(limit int) []*big.Int {
	if limit <= 0 || limit > len(b.gaps) {
		limit = len(b.gaps)
	}
	primes := make([]*big.Int, 0, limit)
	cur := b.Anchor()
	for _, g := range b.gaps[:limit] {
		cur = new(big.Int).Add(cur, new(big.Int).SetUint64(uint64(g)))
		primes = append(primes, cur)
	}
	return primes
}

// Stats tallies the sieved block's lane populations and prime
// constellations. The block must have been sieved.
func (b *Block) Stats() iz.WheelStats {
	if b.X5 == nil || b.X7 == nil {
		return iz.WheelStats{}
	}
	return iz.Stats(b.Vx, b.X5, b.X7)
}

// Sieve populates the block: clones the cached wheel, strikes
// composites of the cached primes located via the lane congruence at
// offset y, and, when the block exceeds the square of the cached
// prime reach, confirms the survivors with Miller-Rabin using the
// given rounds (DefaultRounds when 0). The gap sequence is rebuilt
// from scratch. If path is non-empty the block is serialized there
// after sieving.
func (b *Block) Sieve(rounds int, path string) error {
	if err := initCaches(); err != nil {
		return err
	}
	if rounds <= 0 {
		rounds = DefaultRounds
	}

	y, ok := new(big.Int).SetString(b.Y, 10)
	if !ok {
		return errdefs.InvalidParameter(fmt.Errorf("vx6: offset %q is not a decimal string", b.Y))
	}

	b.X5 = cachedX5.Clone()
	b.X7 = cachedX7.Clone()
	b.gaps = make([]uint16, 0, iz.VX6/8)

	vxBig := new(big.Int).SetUint64(iz.VX6)
	yvx := new(big.Int).Mul(y, vxBig)

	// Candidates only need trial sieving by primes up to
	// sqrt(iZ(vx6*(y+1), +1)); past that the bitmap is already exact.
	upper := iz.IZBig(new(big.Int).Add(yvx, vxBig), iz.IZPlus)
	upper.Sqrt(upper)
	upperU64 := uint64(math.MaxUint64)
	if upper.IsUint64() {
		upperU64 = upper.Uint64()
	}

	deterministic := false
	markOps, pTests := 0, 0

	for i := startI; i < cachedPrimes.Count(); i++ {
		p := cachedPrimes.At(i)
		if p > upperU64 {
			deterministic = true
			break
		}

		xp5 := iz.SolveForXBig(iz.IZMinus, p, iz.VX6, y)
		if err := b.X5.ClearModP(p, xp5, iz.VX6); err != nil {
			return err
		}
		xp7 := iz.SolveForXBig(iz.IZPlus, p, iz.VX6, y)
		if err := b.X7.ClearModP(p, xp7, iz.VX6); err != nil {
			return err
		}
		markOps += 2 * int(iz.VX6/p)
	}

	// Gap accounting starts at x = 4 with 18 already accumulated:
	// x <= 3 cannot hold primes of the block, and each x contributes
	// +4 before the minus-lane test and +2 after it so a lane pair at
	// the same x spans the +/-1 spread plus the step of 6.
	gap := uint64(18)
	xBig := new(big.Int)

	for x := uint64(4); x <= iz.VX6; x++ {
		gap += 4

		if b.X5.Get(x) {
			isPrime := true
			if !deterministic {
				xBig.SetUint64(x)
				xBig.Add(xBig, yvx)
				isPrime = iz.IZBig(xBig, iz.IZMinus).ProbablyPrime(rounds)
				pTests++
			}
			if isPrime {
				b.gaps = append(b.gaps, uint16(gap))
				gap = 0
			} else {
				b.X5.Clear(x)
			}
		}

		gap += 2

		if b.X7.Get(x) {
			isPrime := true
			if !deterministic {
				xBig.SetUint64(x)
				xBig.Add(xBig, yvx)
				isPrime = iz.IZBig(xBig, iz.IZPlus).ProbablyPrime(rounds)
				pTests++
			}
			if isPrime {
				b.gaps = append(b.gaps, uint16(gap))
				gap = 0
			} else {
				b.X7.Clear(x)
			}
		}
	}

	b.gaps = slices.Clip(b.gaps)

	log.L.WithFields(log.Fields{
		"y":             b.Y,
		"deterministic": deterministic,
		"markOps":       markOps,
		"pTests":        pTests,
		"count":         len(b.gaps),
	}).Debug("vx6 block sieved")

	if path != "" {
		return b.WriteFile(path)
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
