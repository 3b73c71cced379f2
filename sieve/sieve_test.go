package sieve

import (
	"testing"

	"github.com/containerd/log"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"

	"github.com/zprime137/iz/errdefs"
)

// eratosthenes is the reference oracle: a plain boolean-array sieve
// over [2, n].
func eratosthenes(n uint64) []uint64 {
	composite := make([]bool, n+1)
	var primes []uint64
	for i := uint64(2); i <= n; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		for j := i * i; j <= n; j += i {
			composite[j] = true
		}
	}
	return primes
}

func TestSieveIZSmall(t *testing.T) {
	primes, err := SieveIZ(30)
	assert.NilError(t, err)
	assert.DeepEqual(t, primes.Values(), []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29})
}

func TestSieveIZmSmall(t *testing.T) {
	primes, err := SieveIZm(100)
	assert.NilError(t, err)
	assert.DeepEqual(t, primes.Values(), []uint64{
		2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
		53, 59, 61, 67, 71, 73, 79, 83, 89, 97,
	})
}

func TestSievesMatchOracle(t *testing.T) {
	bounds := []uint64{10, 100, 1000, 9973, 10_000, 100_000, 1_000_000}

	for _, n := range bounds {
		want := eratosthenes(n)

		full, err := SieveIZ(n)
		assert.NilError(t, err)
		if diff := cmp.Diff(want, full.Values()); diff != "" {
			t.Fatalf("SieveIZ(%d) mismatch (-want +got):\n%s", n, diff)
		}

		segmented, err := SieveIZm(n)
		assert.NilError(t, err)
		if diff := cmp.Diff(want, segmented.Values()); diff != "" {
			t.Fatalf("SieveIZm(%d) mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestSieveEdgeBounds(t *testing.T) {
	tests := map[string]struct {
		n    uint64
		want []uint64
	}{
		"two":            {n: 2, want: []uint64{2}},
		"three":          {n: 3, want: []uint64{2, 3}},
		"four":           {n: 4, want: []uint64{2, 3}},
		"five":           {n: 5, want: []uint64{2, 3, 5}},
		"prime bound":    {n: 29, want: []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}},
		"below a prime":  {n: 28, want: []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23}},
		"twin top bound": {n: 31, want: []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			full, err := SieveIZ(tc.n)
			assert.NilError(t, err)
			assert.DeepEqual(t, full.Values(), tc.want)

			segmented, err := SieveIZm(tc.n)
			assert.NilError(t, err)
			assert.DeepEqual(t, segmented.Values(), tc.want)
		})
	}
}

func TestSieveRejectsTrivialBound(t *testing.T) {
	_, err := SieveIZ(1)
	assert.Check(t, errdefs.IsInvalidParameter(err))
	_, err = SieveIZm(0)
	assert.Check(t, errdefs.IsInvalidParameter(err))
}

func TestSievePrimesStayOnLanes(t *testing.T) {
	primes, err := SieveIZm(50_000)
	assert.NilError(t, err)

	for i := 0; i < primes.Count(); i++ {
		p := primes.At(i)
		if p == 2 || p == 3 {
			continue
		}
		r := p % 6
		assert.Assert(t, r == 1 || r == 5, "prime %d off the lanes", p)
	}
}

func TestSieveOutputIsTrimmed(t *testing.T) {
	primes, err := SieveIZ(10_000)
	assert.NilError(t, err)
	assert.Equal(t, primes.Cap(), primes.Count())
}

func TestSieveLogsStatistics(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	orig := log.L
	log.L = logrus.NewEntry(logger)
	defer func() { log.L = orig }()

	_, err := SieveIZ(1000)
	assert.NilError(t, err)

	entry := hook.LastEntry()
	assert.Assert(t, entry != nil)
	assert.Equal(t, entry.Level, logrus.DebugLevel)
	assert.Equal(t, entry.Data["count"], 168)
	assert.Equal(t, entry.Data["n"], uint64(1000))
}
