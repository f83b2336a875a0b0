package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"driftline/internal/track"
)

// CollisionOutcome is the wall response for one tentative frame. Derived,
// never persisted.
type CollisionOutcome struct {
	Collided bool
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Side     int // -1 left wall, 1 right wall, 0 none
}

// ResolveWallCollision projects pos onto the segment's lateral axis and,
// when the vehicle extends past the drivable half-width, pushes it back
// inside and reshapes the velocity: a small clamped bounce off the wall plus
// high tangential retention, so cars grind along walls instead of stopping
// dead. Pure and stateless; zero-length velocities are safe.
func ResolveWallCollision(pos, vel mgl64.Vec3, seg track.Segment, halfWidth float64) CollisionOutcome {
	out := CollisionOutcome{Position: pos, Velocity: vel}

	offset := pos.Sub(seg.Center).Dot(seg.Normal)
	allowed := seg.Width/2 - halfWidth/2
	if allowed < 0 {
		allowed = 0
	}
	if math.Abs(offset) <= allowed {
		return out
	}

	side := 1
	if offset < 0 {
		side = -1
	}
	overlap := math.Abs(offset) - allowed

	out.Collided = true
	out.Side = side
	// The safety margin clears the boundary without a visible snap.
	out.Position = pos.Sub(seg.Normal.Mul(float64(side) * (overlap + WallSafetyMargin)))

	inward := seg.Normal.Mul(float64(-side))
	intoWall := vel.Dot(inward)
	if intoWall >= 0 {
		// Already moving away; the position correction is enough.
		return out
	}

	tangential := vel.Sub(inward.Mul(intoWall))
	bounce := math.Min(-intoWall*WallRestitution, MaxWallBounce)
	corrected := tangential.Mul(WallFriction).Add(inward.Mul(bounce))

	// Never reverse the direction of travel off a wall; edge-case impact
	// angles would otherwise read as a spin-out.
	if corrected.Dot(vel) < 0 {
		corrected = tangential.Mul(WallFriction)
	}
	out.Velocity = corrected
	return out
}
