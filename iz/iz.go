// Package iz implements arithmetic over the residue classes 6x-1 and
// 6x+1 (the iZ- and iZ+ lanes): the lane mapping itself, construction
// of pre-sieved wheel segments of primorial size, and the modular
// helpers the segmented sieves use to locate composites inside a
// segment.
package iz

import (
	"errors"
	"math/bits"

	"github.com/zprime137/iz/errdefs"
)

// Lane identifies one of the two residue classes: IZMinus holds the
// integers 6x-1, IZPlus the integers 6x+1.
type Lane int

const (
	IZMinus Lane = -1
	IZPlus  Lane = 1
)

// VX6 is the primorial 5*7*11*13*17*19, the fixed wheel period of the
// vx6 block sieve.
const VX6 = 5 * 7 * 11 * 13 * 17 * 19

// smallPrimes are the wheel-construction primes. Primorials of a
// prefix of this list form the supported vx segment sizes.
var smallPrimes = []uint64{5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89, 97}

// ErrNoSolution is returned when a congruence has no solution because
// the wheel period and the prime share a factor.
var ErrNoSolution = errdefs.NotFound(errors.New("iz: no solution: vx and p are not coprime"))

// IZ returns 6x + lane for x > 0. It panics on a lane outside
// {IZMinus, IZPlus}; lane validity is a programming invariant, not a
// runtime condition.
func IZ(x uint64, lane Lane) uint64 {
	switch lane {
	case IZMinus:
		return 6*x - 1
	case IZPlus:
		return 6*x + 1
	default:
		panic("iz: lane must be IZMinus or IZPlus")
	}
}

// NormalizedXp returns the canonical x-index of prime p on the given
// lane: the residue class mod p on which composites of p fall in that
// lane's bitmap.
func NormalizedXp(lane Lane, p uint64) uint64 {
	xp := (p + 1) / 6
	pPlus := p%6 == 1
	if lane == IZMinus {
		if pPlus {
			return p - xp
		}
		return xp
	}
	if pPlus {
		return xp
	}
	return p - xp
}

// SolveForX returns the smallest x > 0 such that
// (x + vx*y) == NormalizedXp(lane, p) (mod p). The result is in
// (0, p]. This is the uint64 fast path; SolveForXBig covers offsets
// beyond 64 bits.
func SolveForX(lane Lane, p, vx, y uint64) uint64 {
	xp := NormalizedXp(lane, p)
	vy := mulMod(vx, y, p)
	d := (vy + p - xp%p) % p
	return p - d
}

// SolveForY returns the smallest y >= 0 such that
// (x + vx*y) == NormalizedXp(lane, p) (mod p). It fails with
// ErrNoSolution when vx and p are not coprime.
func SolveForY(lane Lane, p, vx, x uint64) (uint64, error) {
	if vx%p == 0 {
		return 0, ErrNoSolution
	}
	xp := NormalizedXp(lane, p)
	if x%p == xp {
		return 0, nil
	}
	delta := (xp + p - x%p) % p
	inv := ModularInverse(vx%p, p)
	return mulMod(delta, inv, p), nil
}

// ModularInverse returns the inverse of a modulo m in [0, m) via the
// extended Euclidean algorithm. a and m must be coprime and fit in 63
// bits.
func ModularInverse(a, m uint64) uint64 {
	if m == 1 {
		return 0
	}
	m0 := int64(m)
	x0, x1 := int64(0), int64(1)
	ai, mi := int64(a), int64(m)
	for ai > 1 {
		q := ai / mi
		ai, mi = mi, ai%mi
		x0, x1 = x1-q*x0, x0
	}
	if x1 < 0 {
		x1 += m0
	}
	return uint64(x1)
}

// LimitedVx returns the largest primorial segment size for the range
// xn, starting at 35 and bounded by vxLimit wheel primes.
func LimitedVx(xn uint64, vxLimit int) uint64 {
	vx := uint64(35)
	i := 2
	for i < vxLimit && i < len(smallPrimes) && vx*smallPrimes[i] < xn/2 {
		vx *= smallPrimes[i]
		i++
	}
	return vx
}

// mulMod returns a*b mod m without overflowing, for any a, b, m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a%m, b%m)
	_, r := bits.Div64(hi, lo, m)
	return r
}
