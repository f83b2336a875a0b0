package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SearchWindow bounds the nearest-segment scan around the last known index.
// A vehicle cannot jump far between frames, so the local window is both
// cheaper than a global scan and safer: a global minimum could snap to the
// far side of the loop where the track folds back near itself.
const SearchWindow = 30

// Lap wrap thresholds as fractions of the segment count. Crossing from the
// high band to the low band is a forward wrap; the opposite crossing is a
// reverse wrap. The band is deliberately coarse; a crawling vehicle
// oscillating exactly on a band edge is a known edge case (see DESIGN.md).
const (
	lapWrapLow  = 0.10
	lapWrapHigh = 0.90
)

// NearestIndex scans lastIdx±window (wrapping) for the segment whose center
// is closest to pos and returns its index.
func NearestIndex(segs []Segment, pos mgl64.Vec3, lastIdx, window int) int {
	n := len(segs)
	if n == 0 {
		return 0
	}
	if window <= 0 {
		window = SearchWindow
	}
	best := ((lastIdx % n) + n) % n
	bestDist := math.MaxFloat64
	for off := -window; off <= window; off++ {
		i := ((lastIdx+off)%n + n) % n
		d := segs[i].Center.Sub(pos).LenSqr()
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// LapDelta reports +1 when the nearest index wrapped forward across the
// start line, -1 when it wrapped backward, and 0 otherwise.
func LapDelta(prevIdx, newIdx, n int) int {
	if n <= 0 {
		return 0
	}
	high := int(lapWrapHigh * float64(n))
	low := int(lapWrapLow * float64(n))
	switch {
	case prevIdx > high && newIdx < low:
		return 1
	case newIdx > high && prevIdx < low:
		return -1
	}
	return 0
}

// ProgressFrac converts a fractional segment index to loop completion [0, 1).
func ProgressFrac(idx float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	f := math.Mod(idx, float64(n))
	if f < 0 {
		f += float64(n)
	}
	return f / float64(n)
}
