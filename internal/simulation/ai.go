package simulation

import (
	"math"

	"driftline/internal/track"
)

// aiIntent is the whole of the bot driver: pure pursuit of a point a fixed
// number of segments ahead, plus a boost gate. Heading error saturates the
// steering output, so bots corner hard and straighten out smoothly.
func aiIntent(v *VehicleState, segs []track.Segment, idx int) (steer float64, boost bool) {
	n := len(segs)
	target := segs[((idx+AILookahead)%n+n)%n].Center
	to := target.Sub(v.Position)
	err := wrapAngle(math.Atan2(to.X(), to.Z()) - v.Yaw)
	steer = clamp(err/AISteerGainAngle, -1, 1)
	// Boost alignment is measured against the local segment tangent, not the
	// pursuit chord: the chord points inside the bend even when the car is
	// tracking the line perfectly.
	align := wrapAngle(yawFromVec(segs[idx].Forward) - v.Yaw)
	boost = v.Nitro >= AIBoostNitroMin && math.Abs(align) <= AIBoostMaxError
	return steer, boost
}
