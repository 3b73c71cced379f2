package randprime

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/moby/sys/reexec"
	"gotest.tools/v3/assert"

	"github.com/zprime137/iz/errdefs"
	"github.com/zprime137/iz/iz"
)

func TestMain(m *testing.M) {
	if reexec.Init() {
		return
	}
	os.Exit(m.Run())
}

// checkProbablePrime verifies the search contract with an independent
// round count: the result passes Miller-Rabin, sits on its lane, and
// has a plausible bit length for the primorial walk.
func checkProbablePrime(t *testing.T, p *big.Int, lane iz.Lane, bitSize int) {
	t.Helper()

	assert.Assert(t, p.ProbablyPrime(40), "%s failed 40-round Miller-Rabin", p)

	r := new(big.Int).Mod(p, big.NewInt(6)).Int64()
	if lane == iz.IZMinus {
		assert.Equal(t, r, int64(5))
	} else {
		assert.Equal(t, r, int64(1))
	}

	vx, err := maxVxForBits(bitSize)
	assert.NilError(t, err)
	assert.Check(t, p.BitLen() >= vx.BitLen(), "prime of %d bits below the vx floor %d", p.BitLen(), vx.BitLen())
	assert.Check(t, p.BitLen() <= bitSize+vx.BitLen(), "prime of %d bits beyond the walk ceiling", p.BitLen())
}

func TestRandomSingleWorker(t *testing.T) {
	for _, lane := range []iz.Lane{iz.IZMinus, iz.IZPlus} {
		for _, bitSize := range []int{64, 128, 256} {
			p, err := Random(context.Background(), lane, bitSize, Options{})
			assert.NilError(t, err)
			checkProbablePrime(t, p, lane, bitSize)
		}
	}
}

func TestRandomParallelWorkers(t *testing.T) {
	p, err := Random(context.Background(), iz.IZPlus, 128, Options{Workers: 3})
	assert.NilError(t, err)
	checkProbablePrime(t, p, iz.IZPlus, 128)
}

func TestRandomParallelMinusLane(t *testing.T) {
	p, err := Random(context.Background(), iz.IZMinus, 96, Options{Workers: 2, Rounds: 30})
	assert.NilError(t, err)
	checkProbablePrime(t, p, iz.IZMinus, 96)
}

func TestRandomValidation(t *testing.T) {
	_, err := Random(context.Background(), iz.Lane(0), 128, Options{})
	assert.Check(t, errdefs.IsInvalidParameter(err))

	_, err = Random(context.Background(), iz.IZPlus, 8, Options{})
	assert.Check(t, errdefs.IsInvalidParameter(err))
}

func TestRandomHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Random(ctx, iz.IZPlus, 2048, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomParallelCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// A search this large cannot finish in 50ms; the parent must give
	// up promptly and reap its workers.
	start := time.Now()
	_, err := Random(ctx, iz.IZPlus, 4096, Options{Workers: 2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Check(t, time.Since(start) < 10*time.Second)
}

func TestMaxVxForBits(t *testing.T) {
	vx, err := maxVxForBits(16)
	assert.NilError(t, err)
	// 5*7*11*13 = 5005 is the largest primorial below 2^16 reachable
	// by growing one prime past the target and dividing it back out.
	assert.Equal(t, vx.Uint64(), uint64(5005))

	for _, bitSize := range []int{32, 64, 512} {
		vx, err := maxVxForBits(bitSize)
		assert.NilError(t, err)
		assert.Check(t, vx.BitLen() < bitSize, "vx of %d bits not below 2^%d", vx.BitLen(), bitSize)
	}
}

func TestSetRandomBase(t *testing.T) {
	vx, err := maxVxForBits(64)
	assert.NilError(t, err)

	for _, lane := range []iz.Lane{iz.IZMinus, iz.IZPlus} {
		p, err := setRandomBase(lane, vx)
		assert.NilError(t, err)

		// The base is coprime to vx, so the row-stride (6*vx) walk can
		// reach primes.
		gcd := new(big.Int).GCD(nil, nil, vx, p)
		assert.Equal(t, gcd.Cmp(big.NewInt(1)), 0)

		r := new(big.Int).Mod(p, big.NewInt(6)).Int64()
		if lane == iz.IZMinus {
			assert.Equal(t, r, int64(5))
		} else {
			assert.Equal(t, r, int64(1))
		}
	}
}
