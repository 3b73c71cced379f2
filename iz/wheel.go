package iz

import (
	"fmt"

	"github.com/zprime137/iz/bitmap"
	"github.com/zprime137/iz/errdefs"
)

// ConstructVX2 seeds the 5*7 base pattern over x in [1, 35]: in x5 a
// bit survives unless 6x-1 is divisible by 5 or 7, in x7 likewise for
// 6x+1.
func ConstructVX2(x5, x7 *bitmap.Bitmap) {
	for x := uint64(1); x <= 35; x++ {
		if (x-1)%5 != 0 && (x+1)%7 != 0 {
			x5.Set(x)
		}
		if (x+1)%5 != 0 && (x-1)%7 != 0 {
			x7.Set(x)
		}
	}
}

// ConstructIZmSegment builds the pre-sieved wheel of period vx into x5
// and x7: after it returns, bit x (1 <= x <= vx) survives iff 6x-1
// (resp. 6x+1) has no factor among the primes dividing vx.
//
// vx must be a primorial 5*7*... of consecutive wheel primes, and both
// bitmaps need at least vx+2 bits so the clearing passes can reach
// index vx+1, one past the segment.
//
// Each prime p beyond 7 is absorbed by replicating the current pattern
// p times and then clearing p's own composites exactly once in the
// extended region, which keeps the total cost at O(vx) regardless of
// the range the wheel will later serve.
func ConstructIZmSegment(vx uint64, x5, x7 *bitmap.Bitmap) error {
	if vx%35 != 0 {
		return errdefs.InvalidParameter(fmt.Errorf("iz: vx %d is not a primorial of the wheel primes", vx))
	}
	if x5.Size() < vx+2 || x7.Size() < vx+2 {
		return errdefs.InvalidParameter(fmt.Errorf("iz: wheel bitmaps need %d bits", vx+2))
	}

	currentSize := uint64(35)
	ConstructVX2(x5, x7)

	for idx := 2; idx < len(smallPrimes) && vx%smallPrimes[idx] == 0; idx++ {
		p := smallPrimes[idx]
		xp := (p + 1) / 6

		if err := x5.DuplicateSegment(1, currentSize, p); err != nil {
			return err
		}
		if err := x7.DuplicateSegment(1, currentSize, p); err != nil {
			return err
		}
		currentSize *= p

		// p's composites alternate lanes: p*(6j+1) and p*(6j-1) land on
		// opposite residue classes depending on p's own lane.
		var start5, start7 uint64
		if p%6 == 1 {
			start5, start7 = p*xp-xp, xp
		} else {
			start5, start7 = xp, p*xp-xp
		}
		if err := x5.ClearModP(p, start5, currentSize+1); err != nil {
			return err
		}
		if err := x7.ClearModP(p, start7, currentSize+1); err != nil {
			return err
		}
	}
	return nil
}

// WheelStats summarizes the candidate population of a (x5, x7) pair:
// per-lane survivor counts and the counts of twin, cousin and sexy
// prime constellations over [1, vx].
type WheelStats struct {
	LaneMinus int
	LanePlus  int
	Primes    int
	Twins     int
	Cousins   int
	Sexy      int
}

// Stats scans [1, vx] of both lane bitmaps and tallies survivors and
// constellations.
func Stats(vx uint64, x5, x7 *bitmap.Bitmap) WheelStats {
	var s WheelStats
	for x := uint64(1); x <= vx; x++ {
		b5, b7 := x5.Get(x), x7.Get(x)
		if b5 {
			s.Primes++
			s.LaneMinus++
		}
		if b7 {
			s.Primes++
			s.LanePlus++
		}
		if b5 && b7 {
			s.Twins++
		}
		if b5 && x7.Get(x-1) {
			s.Cousins++
		}
		if b5 && x5.Get(x-1) {
			s.Sexy++
		}
		if b7 && x7.Get(x-1) {
			s.Sexy++
		}
	}
	return s
}
