// Package sieve enumerates primes with the iZ lane sieves: SieveIZ
// walks the full range with a pair of lane bitmaps, SieveIZm processes
// the range in primorial segments against a pre-composed wheel.
package sieve

import (
	"fmt"
	"math"

	"github.com/containerd/log"

	"github.com/zprime137/iz/bitmap"
	"github.com/zprime137/iz/errdefs"
	"github.com/zprime137/iz/iz"
	"github.com/zprime137/iz/primelist"
)

// SieveIZ returns all primes <= n in ascending order, sieving both
// lanes over the full range. Composites are struck through the Xp
// wheel relation, which touches each lane bitmap half as often as a
// classic Eratosthenes pass touches its array.
func SieveIZ(n uint64) (*primelist.PrimeList, error) {
	if n < 2 {
		return nil, errdefs.InvalidParameter(fmt.Errorf("sieve: bound %d is below the first prime", n))
	}

	primes, err := primelist.New(estimateCapacity(n))
	if err != nil {
		return nil, err
	}
	// 2 and 3 are the only primes outside the two lanes.
	primes.Append(2)
	primes.Append(3)

	xn := (n+1)/6 + 1

	x5, err := bitmap.New(xn + 1)
	if err != nil {
		return nil, err
	}
	x7, err := bitmap.New(xn + 1)
	if err != nil {
		return nil, err
	}
	x5.SetAll()
	x7.SetAll()

	nSqrt := uint64(math.Sqrt(float64(n))) + 1

	for x := uint64(1); x < xn; x++ {
		if x5.Get(x) {
			z := iz.IZ(x, iz.IZMinus)
			primes.Append(z)

			// Root primes strike their composites on both lanes.
			if z < nSqrt {
				if err := x5.ClearModP(z, z*x+x, xn); err != nil {
					return nil, err
				}
				if err := x7.ClearModP(z, z*x-x, xn); err != nil {
					return nil, err
				}
			}
		}

		if x7.Get(x) {
			z := iz.IZ(x, iz.IZPlus)
			primes.Append(z)

			if z < nSqrt {
				if err := x5.ClearModP(z, z*x-x, xn); err != nil {
					return nil, err
				}
				if err := x7.ClearModP(z, z*x+x, xn); err != nil {
					return nil, err
				}
			}
		}
	}

	// The lane walk can overshoot n by one prime.
	if primes.Last() > n {
		primes.RemoveLast()
	}
	primes.Trim()

	log.L.WithFields(log.Fields{"n": n, "count": primes.Count()}).Debug("sieve-iZ complete")
	return primes, nil
}

func estimateCapacity(n uint64) int {
	return primelist.EstimateCount(n) * 3 / 2
}
