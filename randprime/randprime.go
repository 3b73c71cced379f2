// Package randprime generates large random probable primes on a
// chosen iZ lane. The search fixes a random lane index x coprime to a
// primorial vx sized just under the requested bit length, then walks
// the candidate p = iZ(x + vx*y, lane) upward in y until Miller-Rabin
// accepts one.
//
// With more than one worker the search fans out to isolated worker
// processes that re-execute the current binary, so binaries using
// multi-worker search must call reexec.Init from main (returning when
// it reports true), the usual contract of github.com/moby/sys/reexec.
package randprime

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/containerd/log"

	"github.com/zprime137/iz/errdefs"
	"github.com/zprime137/iz/iz"
	"github.com/zprime137/iz/vx6"
)

const (
	// DefaultRounds is the Miller-Rabin round count per candidate.
	DefaultRounds = 25

	// DefaultAttempts bounds how many candidates a single random base
	// yields before the search re-seeds. The value is a heuristic
	// carried as a tunable, not a hard guarantee of progress.
	DefaultAttempts = 1_000_000

	// minBitSize keeps the primorial construction meaningful: below
	// this the vx would collapse to a trivial value.
	minBitSize = 16

	// coprimeScanLimit bounds the linear scan for an x coprime to vx
	// when seeding a base.
	coprimeScanLimit = 10_000
)

var (
	one = big.NewInt(1)
	six = big.NewInt(6)
)

// Options tunes the search. Zero values select the defaults.
type Options struct {
	Rounds   int // Miller-Rabin rounds per candidate
	Workers  int // concurrent worker processes
	Attempts int // candidates per random base before re-seeding
}

func (o Options) withDefaults() Options {
	if o.Rounds <= 0 {
		o.Rounds = DefaultRounds
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	return o
}

// Random returns a random probable prime of roughly bitSize bits on
// the given lane. With opts.Workers > 1 the search runs in that many
// isolated worker processes and the first candidate wins.
func Random(ctx context.Context, lane iz.Lane, bitSize int, opts Options) (*big.Int, error) {
	if lane != iz.IZMinus && lane != iz.IZPlus {
		return nil, errdefs.InvalidParameter(fmt.Errorf("randprime: lane must be -1 or +1, got %d", lane))
	}
	if bitSize < minBitSize {
		return nil, errdefs.InvalidParameter(fmt.Errorf("randprime: bit size %d is below the minimum %d", bitSize, minBitSize))
	}
	opts = opts.withDefaults()

	if opts.Workers == 1 {
		vx, err := maxVxForBits(bitSize)
		if err != nil {
			return nil, err
		}
		return searchInIZm(ctx, lane, vx, opts.Rounds, opts.Attempts)
	}
	return searchParallel(ctx, lane, bitSize, opts)
}

// maxVxForBits returns the largest primorial of primes from 5 upward
// with fewer than bitSize bits (that is, below 2^(bitSize-1)): the
// primorial is grown until its bit length reaches bitSize and then
// divided by its last factor.
func maxVxForBits(bitSize int) (*big.Int, error) {
	primes, err := vx6.Primes()
	if err != nil {
		return nil, err
	}

	i := 2 // skip 2 and 3
	vx := new(big.Int).SetUint64(primes.At(i))
	for vx.BitLen() < bitSize {
		i++
		if i >= primes.Count() {
			return nil, errdefs.InvalidParameter(fmt.Errorf("randprime: bit size %d exceeds the primorial reach of the cached primes", bitSize))
		}
		vx.Mul(vx, new(big.Int).SetUint64(primes.At(i)))
	}
	return vx.Div(vx, new(big.Int).SetUint64(primes.At(i))), nil
}

// setRandomBase draws a uniform random x in [0, vx), steps it forward
// until iZ(x, lane) is coprime to vx, and skips one full row (y = 1)
// so the walk starts above the wheel's own residues.
func setRandomBase(lane iz.Lane, vx *big.Int) (*big.Int, error) {
	x, err := rand.Int(rand.Reader, vx)
	if err != nil {
		return nil, errdefs.System(fmt.Errorf("randprime: drawing random base: %w", err))
	}
	if x.Sign() == 0 {
		x.SetInt64(1)
	}

	p := iz.IZBig(x, lane)
	gcd := new(big.Int)
	for i := 1; i < coprimeScanLimit; i++ {
		p.Add(p, six) // step x by one
		if gcd.GCD(nil, nil, vx, p); gcd.Cmp(one) == 0 {
			break
		}
	}
	return p.Add(p, rowStride(vx)), nil
}

// rowStride returns 6*vx, the value-space distance between successive
// rows of the lane: stepping y by one moves the candidate
// iZ(x + vx*y, lane) by six times the wheel period, which keeps every
// candidate on its lane.
func rowStride(vx *big.Int) *big.Int {
	return new(big.Int).Mul(vx, six)
}

// searchInIZm walks the candidate one row at a time from a random
// base until one passes Miller-Rabin. An exhausted base is re-seeded
// transparently.
func searchInIZm(ctx context.Context, lane iz.Lane, vx *big.Int, rounds, attempts int) (*big.Int, error) {
	stride := rowStride(vx)
	for {
		p, err := setRandomBase(lane, vx)
		if err != nil {
			return nil, err
		}

		for i := 0; i < attempts; i++ {
			if i%256 == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.Add(p, stride)
			if p.ProbablyPrime(rounds) {
				return p, nil
			}
		}

		log.G(ctx).WithFields(log.Fields{"attempts": attempts}).Debug("randprime: search exhausted, re-seeding base")
	}
}
