// Package camera computes the chase-camera pose for a followed vehicle. The
// rig owns its own smoothing state so the simulation never knows a camera
// exists; feed it telemetry, get back a pose.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"driftline/internal/shared/types"
	"driftline/internal/track"
)

const (
	FollowDistance = 7.5
	FollowHeight   = 3.1
	LookAhead      = 6.5
	LookHeight     = 1.2

	PositionRate = 7.0 // position tracks tighter than the look-at point
	LookRate     = 3.5

	FOVBase       = 58.0
	FOVSpeedGain  = 0.11 // degrees per km/h
	FOVBoostBonus = 9.0
	FOVMin        = 50.0
	FOVMax        = 96.0
	FOVWidenRate  = 5.0 // widening is punchy, settling back is lazy
	FOVNarrowRate = 1.25

	TraumaDecay    = 1.1
	ShakeMagnitude = 0.45
)

// Rig is the smoothed chase camera for one vehicle. Not safe for concurrent
// use; each follower owns its own rig.
type Rig struct {
	pos    mgl64.Vec3
	look   mgl64.Vec3
	fov    float64
	trauma float64
	rng    *track.Rand
	live   bool
}

// NewRig creates an unsnapped rig. The seed drives only the shake jitter, so
// replays shake the same way.
func NewRig(seed int64) *Rig {
	return &Rig{rng: track.NewRand(seed)}
}

// AddTrauma stacks camera shake, saturating at full trauma.
func (r *Rig) AddTrauma(amount float64) {
	if amount <= 0 {
		return
	}
	r.trauma = math.Min(r.trauma+amount, 1)
}

// Trauma is the current shake level in [0, 1].
func (r *Rig) Trauma() float64 {
	return r.trauma
}

// Update advances the rig toward the vehicle's ideal chase pose and returns
// the frame's pose. The first update snaps exactly onto the ideals so a race
// never opens with the camera swooping in from the origin. Shake perturbs
// only the returned pose; the smoothed state underneath stays clean.
func (r *Rig) Update(tel types.VehicleTelemetry, dt float64) types.CameraPose {
	yaw := mgl64.DegToRad(tel.HeadingDeg)
	forward := mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
	anchor := tel.Position.Mgl()

	idealPos := anchor.Sub(forward.Mul(FollowDistance)).Add(mgl64.Vec3{0, FollowHeight, 0})
	idealLook := anchor.Add(forward.Mul(LookAhead)).Add(mgl64.Vec3{0, LookHeight, 0})

	targetFOV := FOVBase + FOVSpeedGain*tel.SpeedKPH
	if tel.Boosting {
		targetFOV += FOVBoostBonus
	}
	targetFOV = clampf(targetFOV, FOVMin, FOVMax)

	if !r.live {
		r.pos = idealPos
		r.look = idealLook
		r.fov = targetFOV
		r.live = true
	} else if dt > 0 {
		r.pos = blendVec(r.pos, idealPos, PositionRate, dt)
		r.look = blendVec(r.look, idealLook, LookRate, dt)
		rate := FOVNarrowRate
		if targetFOV > r.fov {
			rate = FOVWidenRate
		}
		r.fov += (targetFOV - r.fov) * math.Min(1, rate*dt)
	}

	if dt > 0 {
		r.trauma = math.Max(0, r.trauma-TraumaDecay*dt)
	}

	pose := types.CameraPose{
		Position: types.FromMgl(r.pos),
		LookAt:   types.FromMgl(r.look),
		FOVDeg:   r.fov,
	}
	if r.trauma > 0 {
		// Quadratic falloff: light trauma barely registers, heavy trauma
		// rattles the frame.
		mag := ShakeMagnitude * r.trauma * r.trauma
		pose.Position = types.FromMgl(r.pos.Add(mgl64.Vec3{
			r.rng.Range(-mag, mag),
			r.rng.Range(-mag, mag),
			r.rng.Range(-mag, mag),
		}))
	}
	return pose
}

func blendVec(cur, target mgl64.Vec3, rate, dt float64) mgl64.Vec3 {
	f := math.Min(1, rate*dt)
	return cur.Add(target.Sub(cur).Mul(f))
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
