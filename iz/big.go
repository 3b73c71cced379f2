package iz

import "math/big"

// math/big twins of the uint64 helpers. The sieves run the fixed-width
// versions in their inner loops; these variants serve the system
// boundary where values may exceed 64 bits (vx6 blocks at arbitrary
// offsets, random prime search).

var six = big.NewInt(6)

// IZBig returns 6x + lane as a new big.Int. x must be positive.
func IZBig(x *big.Int, lane Lane) *big.Int {
	z := new(big.Int).Mul(x, six)
	switch lane {
	case IZMinus:
		return z.Sub(z, big.NewInt(1))
	case IZPlus:
		return z.Add(z, big.NewInt(1))
	default:
		panic("iz: lane must be IZMinus or IZPlus")
	}
}

// NormalizedXpBig is NormalizedXp for callers operating in big.Int
// space.
func NormalizedXpBig(lane Lane, p uint64) *big.Int {
	return new(big.Int).SetUint64(NormalizedXp(lane, p))
}

// SolveForXBig is SolveForX for segment offsets y beyond 64 bits. The
// returned x is still a uint64: it lies in (0, p].
func SolveForXBig(lane Lane, p, vx uint64, y *big.Int) uint64 {
	xp := NormalizedXp(lane, p)
	t := new(big.Int).Mul(y, new(big.Int).SetUint64(vx))
	t.Sub(t, new(big.Int).SetUint64(xp))
	t.Mod(t, new(big.Int).SetUint64(p))
	return p - t.Uint64()
}

// ModularInverseBig returns the inverse of a modulo m in [0, m), or
// ErrNoSolution when a and m are not coprime.
func ModularInverseBig(a, m *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		return nil, ErrNoSolution
	}
	return inv, nil
}
