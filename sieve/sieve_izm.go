package sieve

import (
	"fmt"

	"github.com/containerd/log"

	"github.com/zprime137/iz/bitmap"
	"github.com/zprime137/iz/errdefs"
	"github.com/zprime137/iz/iz"
	"github.com/zprime137/iz/primelist"
)

// vxLimit bounds how many wheel primes a segment size may absorb.
const vxLimit = 6

// wheelPrimes are the candidates for absorption into the segment
// wheel, in ascending order.
var wheelPrimes = []uint64{5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47}

// SieveIZm returns all primes <= n in ascending order using the
// segmented lane sieve: a wheel of primorial period vx is pre-composed
// once, then every segment of x-indices (y*vx, (y+1)*vx] starts from a
// copy of the wheel and only strikes composites of root primes that
// do not divide vx.
//
// Segment 0 is special: root primes are discovered there, so it
// sieves by each prime as it surfaces. Later segments sieve only by
// the already-collected list.
func SieveIZm(n uint64) (*primelist.PrimeList, error) {
	if n < 2 {
		return nil, errdefs.InvalidParameter(fmt.Errorf("sieve: bound %d is below the first prime", n))
	}

	xn := (n+1)/6 + 1

	primes, err := primelist.New(estimateCapacity(n))
	if err != nil {
		return nil, err
	}
	primes.Append(2)
	primes.Append(3)

	vx := iz.LimitedVx(xn, vxLimit)

	// Wheel primes are absorbed into the pattern and never sieved
	// again; startI is where segment sieving picks up.
	startI := 2
	for i := 0; i < vxLimit; i++ {
		if vx%wheelPrimes[i] != 0 {
			break
		}
		primes.Append(wheelPrimes[i])
		startI++
	}

	x5, err := bitmap.New(vx + 10)
	if err != nil {
		return nil, err
	}
	x7, err := bitmap.New(vx + 10)
	if err != nil {
		return nil, err
	}
	if err := iz.ConstructIZmSegment(vx, x5, x7); err != nil {
		return nil, err
	}

	tmp5 := x5.Clone()
	tmp7 := x7.Clone()

	// Segment 0: discover root primes, striking their composites
	// within the segment as they surface.
	for x := uint64(2); x <= vx; x++ {
		if tmp5.Get(x) {
			p := iz.IZ(x, iz.IZMinus)
			primes.Append(p)

			if p*p/6 < vx {
				if err := tmp5.ClearModP(p, p*x+x, vx); err != nil {
					return nil, err
				}
				if err := tmp7.ClearModP(p, p*x-x, vx); err != nil {
					return nil, err
				}
			}
		}

		if tmp7.Get(x) {
			p := iz.IZ(x, iz.IZPlus)
			primes.Append(p)

			if p*p/6 < vx {
				if err := tmp5.ClearModP(p, p*x-x, vx); err != nil {
					return nil, err
				}
				if err := tmp7.ClearModP(p, p*x+x, vx); err != nil {
					return nil, err
				}
			}
		}
	}

	maxY := xn / vx
	limit := vx

	for y := uint64(1); y <= maxY; y++ {
		// Reset the scratch segment from the wheel pattern.
		if err := tmp5.CopyFrom(x5); err != nil {
			return nil, err
		}
		if err := tmp7.CopyFrom(x7); err != nil {
			return nil, err
		}

		if y == maxY {
			limit = xn % vx
		}

		for i := startI; i < primes.Count(); i++ {
			p := primes.At(i)

			// Later root primes have no composites in this segment.
			if p*p/6 > y*vx+limit {
				break
			}

			xp5 := iz.SolveForX(iz.IZMinus, p, vx, y)
			xp7 := iz.SolveForX(iz.IZPlus, p, vx, y)
			if err := tmp5.ClearModP(p, xp5, limit); err != nil {
				return nil, err
			}
			if err := tmp7.ClearModP(p, xp7, limit); err != nil {
				return nil, err
			}
		}

		yvx := y * vx
		for x := uint64(1); x <= limit; x++ {
			if tmp5.Get(x) {
				primes.Append(iz.IZ(x+yvx, iz.IZMinus))
			}
			if tmp7.Get(x) {
				primes.Append(iz.IZ(x+yvx, iz.IZPlus))
			}
		}
	}

	// The final segment can overshoot n.
	for primes.Count() > 0 && primes.Last() > n {
		primes.RemoveLast()
	}
	primes.Trim()

	log.L.WithFields(log.Fields{"n": n, "vx": vx, "count": primes.Count()}).Debug("sieve-iZm complete")
	return primes, nil
}
