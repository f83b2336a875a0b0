package simulation

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"driftline/internal/track"
)

const testHalfWidth = 2.4

// wallSegment is a straight reference segment: forward +Z, right wall +X.
func wallSegment() track.Segment {
	return track.Segment{
		Index:   0,
		Center:  mgl64.Vec3{0, 0, 0},
		Forward: mgl64.Vec3{0, 0, 1},
		Normal:  mgl64.Vec3{1, 0, 0},
		Width:   track.Width,
	}
}

func allowedOffset() float64 {
	return track.Width/2 - testHalfWidth/2
}

func TestResolveInsideLaneUntouched(t *testing.T) {
	seg := wallSegment()
	pos := mgl64.Vec3{5, 0.5, 10}
	vel := mgl64.Vec3{3, 0, 9}

	out := ResolveWallCollision(pos, vel, seg, testHalfWidth)

	require.False(t, out.Collided)
	require.Equal(t, 0, out.Side)
	require.Equal(t, pos, out.Position)
	require.Equal(t, vel, out.Velocity)
}

func TestResolvePushbackLandsInsideBoundary(t *testing.T) {
	seg := wallSegment()
	allowed := allowedOffset()
	overlap := 0.7
	pos := mgl64.Vec3{allowed + overlap, 0.5, 0}

	out := ResolveWallCollision(pos, mgl64.Vec3{}, seg, testHalfWidth)

	require.True(t, out.Collided)
	require.Equal(t, 1, out.Side)
	require.InDelta(t, allowed-WallSafetyMargin, out.Position.X(), 1e-12)
	// Stationary car: no velocity response, only the position correction.
	require.Equal(t, mgl64.Vec3{}, out.Velocity)

	moved := out.Position.Sub(pos).Len()
	require.InDelta(t, overlap+WallSafetyMargin, moved, 1e-12)
}

func TestResolveBounceAndTangentialFriction(t *testing.T) {
	seg := wallSegment()
	pos := mgl64.Vec3{allowedOffset() + 0.7, 0.5, 0}
	vel := mgl64.Vec3{4, 0, 10}

	out := ResolveWallCollision(pos, vel, seg, testHalfWidth)

	require.True(t, out.Collided)
	// Normal response: 4 m/s into the wall becomes a small inward bounce.
	require.InDelta(t, -4*WallRestitution, out.Velocity.X(), 1e-12)
	// Tangential component survives scaled by the grind friction.
	require.InDelta(t, 10*WallFriction, out.Velocity.Z(), 1e-12)
	require.True(t, out.Velocity.Dot(vel) >= 0, "response must not reverse travel")
}

func TestResolveBounceClampedAtMaximum(t *testing.T) {
	seg := wallSegment()
	pos := mgl64.Vec3{allowedOffset() + 1.0, 0.5, 0}
	vel := mgl64.Vec3{80, 0, 200}

	out := ResolveWallCollision(pos, vel, seg, testHalfWidth)

	require.True(t, out.Collided)
	// 80 * restitution would be 14.4; the clamp caps the kick.
	require.InDelta(t, -MaxWallBounce, out.Velocity.X(), 1e-12)
	require.InDelta(t, 200*WallFriction, out.Velocity.Z(), 1e-12)
}

func TestResolveHeadOnStopsInsteadOfReversing(t *testing.T) {
	seg := wallSegment()
	pos := mgl64.Vec3{allowedOffset() + 0.5, 0.5, 0}
	vel := mgl64.Vec3{30, 0, 0}

	out := ResolveWallCollision(pos, vel, seg, testHalfWidth)

	require.True(t, out.Collided)
	// A pure head-on has no tangential component to keep; bouncing it back
	// would reverse travel, so the response is a dead stop.
	require.InDelta(t, 0, out.Velocity.Len(), 1e-12)
	require.True(t, out.Velocity.Dot(vel) >= 0)
}

func TestResolveLeftWallMirrors(t *testing.T) {
	seg := wallSegment()
	allowed := allowedOffset()
	pos := mgl64.Vec3{-(allowed + 0.7), 0.5, 0}
	vel := mgl64.Vec3{-4, 0, 10}

	out := ResolveWallCollision(pos, vel, seg, testHalfWidth)

	require.True(t, out.Collided)
	require.Equal(t, -1, out.Side)
	require.InDelta(t, -(allowed - WallSafetyMargin), out.Position.X(), 1e-12)
	require.InDelta(t, 4*WallRestitution, out.Velocity.X(), 1e-12)
	require.InDelta(t, 10*WallFriction, out.Velocity.Z(), 1e-12)
}

func TestResolveRecedingVelocityUntouched(t *testing.T) {
	seg := wallSegment()
	pos := mgl64.Vec3{allowedOffset() + 0.7, 0.5, 0}
	vel := mgl64.Vec3{-3, 0, 8}

	out := ResolveWallCollision(pos, vel, seg, testHalfWidth)

	// Overlapping but already heading back inside: position snaps, the
	// velocity is left alone.
	require.True(t, out.Collided)
	require.Equal(t, vel, out.Velocity)
	require.InDelta(t, allowedOffset()-WallSafetyMargin, out.Position.X(), 1e-12)
}

func TestResolveContainmentUnderConstantPressure(t *testing.T) {
	seg := wallSegment()
	allowed := allowedOffset()
	dt := 1.0 / 120.0

	pos := mgl64.Vec3{0, 0.5, 0}
	for i := 0; i < 600; i++ {
		// Relentless outward push, as if the driver held full steer into
		// the wall every frame.
		vel := mgl64.Vec3{20, 0, 20}
		out := ResolveWallCollision(pos, vel, seg, testHalfWidth)
		pos = out.Position.Add(out.Velocity.Mul(dt))

		offset := pos.Sub(seg.Center).Dot(seg.Normal)
		require.False(t, math.IsNaN(offset))
		require.LessOrEqual(t, math.Abs(offset), allowed+20*dt+1e-9,
			"lane containment must hold under sustained pressure")
	}
}
