package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateIsDeterministic(t *testing.T) {
	require.Equal(t, Generate(99), Generate(99))
}

func TestDistinctSeedsProduceDistinctTracks(t *testing.T) {
	require.NotEqual(t, Generate(1), Generate(2))
}

func TestLoopIsClosedAndEvenlySpaced(t *testing.T) {
	segs := Generate(99)
	require.Len(t, segs, SegmentCount)

	for i, seg := range segs {
		next := segs[(i+1)%len(segs)] // the wrap edge counts too
		gap := next.Center.Sub(seg.Center).Len()
		require.Greater(t, gap, 0.5, "segment %d", i)
		require.Less(t, gap, 6.0, "segment %d", i)
	}
}

func TestSegmentFramesAreOrthonormal(t *testing.T) {
	segs := Generate(7)
	for _, seg := range segs {
		require.InDelta(t, 1, seg.Forward.Len(), 1e-9, "segment %d forward", seg.Index)
		require.InDelta(t, 1, seg.Normal.Len(), 1e-9, "segment %d normal", seg.Index)
		require.InDelta(t, 0, seg.Forward.Dot(seg.Normal), 1e-9, "segment %d dot", seg.Index)
		require.Zero(t, seg.Normal.Y(), "segment %d lateral axis must stay flat", seg.Index)

		// Forward cross Normal recovers world up, so Normal points at the
		// right wall everywhere. The wall resolver depends on this.
		require.InDelta(t, 1, seg.Forward.Cross(seg.Normal).Y(), 1e-9, "segment %d handedness", seg.Index)
	}
}

func TestWidthAndThemeAreUniform(t *testing.T) {
	segs := Generate(33)
	names := make(map[string]bool, len(Themes))
	for _, th := range Themes {
		names[th.Name] = true
	}
	require.True(t, names[segs[0].Theme], "unknown theme %q", segs[0].Theme)

	for _, seg := range segs {
		require.Equal(t, Width, seg.Width)
		require.Equal(t, segs[0].Theme, seg.Theme)
	}
}

func TestDecorationsSitOnIntervalSlots(t *testing.T) {
	segs := Generate(15)
	for i, seg := range segs {
		if seg.Decoration != nil {
			require.Zero(t, i%DecorationInterval, "decoration off the interval grid at %d", i)
		}
	}
}

func TestDecorationOffsetsRespectTheWalls(t *testing.T) {
	var canisters, scenery int
	for seed := int64(1); seed <= 8; seed++ {
		for _, seg := range Generate(seed) {
			d := seg.Decoration
			if d == nil {
				continue
			}
			require.GreaterOrEqual(t, d.Size, 0.8)
			require.Less(t, d.Size, 2.2)
			require.GreaterOrEqual(t, d.RotationDeg, 0.0)
			require.Less(t, d.RotationDeg, 360.0)

			if d.Symbol == PickupSymbol {
				canisters++
				require.LessOrEqual(t, math.Abs(d.Offset), Width/2-3, "canister outside the walls")
			} else {
				scenery++
				off := math.Abs(d.Offset)
				require.GreaterOrEqual(t, off, Width/2+3, "scenery inside the walls")
				require.Less(t, off, Width/2+16)
			}
		}
	}
	require.Positive(t, canisters)
	require.Positive(t, scenery)
}

func TestThemePoolGetsUsed(t *testing.T) {
	seen := make(map[string]bool)
	for seed := int64(1); seed <= 40; seed++ {
		seen[Generate(seed)[0].Theme] = true
	}
	require.GreaterOrEqual(t, len(seen), 2, "forty seeds should not all draw one theme")
}
