package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"driftline/internal/gameplay"
	"driftline/internal/shared/types"
	"driftline/internal/track"
)

var worldUp = mgl64.Vec3{0, 1, 0}

// VehicleState is the complete mutable state of one car, player or bot. It
// is a plain struct advanced once per simulated frame by Step; nothing in it
// is shared across goroutines or locked.
type VehicleState struct {
	ID         string
	Bot        bool
	Stats      gameplay.Archetype
	Aggression float64 // bots: fraction of top speed targeted

	Position mgl64.Vec3
	Yaw      float64 // radians; forward is (sin yaw, 0, cos yaw)
	Speed    float64 // scalar forward speed, m/s
	AngVel   float64 // yaw rate, rad/s
	VertVel  float64 // fall speed while above suspension reach

	DriftBlend float64 // smoothed [-1, 1]
	Drifting   bool

	Nitro        float64
	NitroPending float64 // refill buffer fed by pickups, drained ease-out
	Boosting     bool
	nitroStarved bool

	Damage     float64
	WreckTimer float64

	Lap         int
	SegIdx      int     // last known nearest segment index
	ProgressIdx float64 // fractional index along the loop
	WallSide    int     // side of the wall last ground against

	wallHold      float64
	driftElapsed  float64
	announceWreck bool
	trackLen      int

	peakSpeed    float64
	longestDrift float64
	collisions   int
	pickups      int
}

// NewVehicle places a car on the grid. Slot i starts GridStagger segments
// past slot i-1, aligned with the track, at rest.
func NewVehicle(id string, bot bool, stats gameplay.Archetype, segs []track.Segment, gridSlot int) *VehicleState {
	v := &VehicleState{
		ID:       id,
		Bot:      bot,
		Stats:    stats,
		Nitro:    stats.NitroCapacity * NitroStartFrac,
		trackLen: len(segs),
	}
	if n := len(segs); n > 0 {
		idx := ((gridSlot * GridStagger) % n + n) % n
		seg := segs[idx]
		v.Position = seg.Center.Add(mgl64.Vec3{0, RideHeight, 0})
		v.Yaw = yawFromVec(seg.Forward)
		v.SegIdx = idx
		v.ProgressIdx = float64(idx)
	}
	return v
}

// Wreck puts the vehicle into the disabled countdown state. Only external
// hard-failure triggers call this; wall contact never wrecks a car.
func (v *VehicleState) Wreck() {
	if v.WreckTimer > 0 {
		return
	}
	v.WreckTimer = WreckDuration
	v.Speed = 0
	v.AngVel = 0
	v.Drifting = false
	v.Boosting = false
	v.announceWreck = true
}

// AddNitroRefill credits pickup nitro into the pending buffer. The buffer
// drains into the live reserve with an ease-out curve during Step and is
// bounded so a pickup spree cannot stockpile unbounded nitro.
func (v *VehicleState) AddNitroRefill(amount float64) {
	if amount <= 0 {
		return
	}
	v.NitroPending = math.Min(v.NitroPending+amount, v.Stats.NitroCapacity)
	v.pickups++
}

// StepOutcome bundles what one frame produced beyond the state mutation.
type StepOutcome struct {
	Telemetry types.VehicleTelemetry
	Events    []types.GameplayEvent
	Trauma    float64
}

// Step advances one vehicle by exactly one frame. It never rejects input:
// numeric state saturates to its bounds, and frames with an unusable dt are
// skipped outright instead of integrated.
func Step(v *VehicleState, in types.DriveInput, segs []track.Segment, rng *track.Rand, dt float64) StepOutcome {
	var out StepOutcome
	if dt <= 0 || dt > MaxFrameDelta || len(segs) == 0 {
		out.Telemetry = v.Telemetry()
		return out
	}
	v.trackLen = len(segs)

	if v.WreckTimer > 0 {
		stepWrecked(v, segs, dt, &out)
		out.Telemetry = v.Telemetry()
		return out
	}

	// 1. Damage recovers on its own over time.
	v.Damage = clamp(v.Damage-DamageDecayRate*dt, 0, DamageMax)

	// 2. Windowed nearest-segment search around the last known index. The
	// vehicle cannot teleport between frames, so a local scan is enough.
	n := len(segs)
	idx := track.NearestIndex(segs, v.Position, v.SegIdx, track.SearchWindow)

	// 3. Lap wrap detection, both directions.
	if d := track.LapDelta(v.SegIdx, idx, n); d != 0 {
		v.Lap += d
		if d > 0 {
			out.Events = append(out.Events, types.GameplayEvent{
				Type:      "lap",
				VehicleID: v.ID,
				Lap:       v.Lap,
				Position:  types.FromMgl(v.Position),
			})
		}
	}
	v.SegIdx = idx
	seg := segs[idx]

	// 4. Steering intent in [-1, 1], never into a wall being ground on.
	var steer float64
	wantBoost := in.Boost
	if v.Bot {
		steer, wantBoost = aiIntent(v, segs, idx)
	} else {
		if in.Left {
			steer -= 1
		}
		if in.Right {
			steer += 1
		}
	}
	if v.wallHold > 0 && float64(v.WallSide)*steer > 0 {
		steer = 0
	}
	v.wallHold = math.Max(0, v.wallHold-dt)
	if v.wallHold == 0 {
		v.WallSide = 0
	}

	// 5. Target speed: players drive by intent, bots by aggression.
	var target float64
	if v.Bot {
		target = v.Aggression * v.Stats.TopSpeed
	} else {
		switch {
		case in.Brake:
			target = 0
		case in.Forward:
			target = v.Stats.TopSpeed
		}
	}

	// 6. Nitro economy. The starved latch opens only when the button is
	// released, so an empty tank cannot flicker at the zero threshold.
	if !wantBoost {
		v.nitroStarved = false
	}
	boosting := wantBoost && !v.nitroStarved && v.Nitro > 0
	if boosting {
		v.Nitro -= NitroDrainRate * dt
		if v.Nitro <= 0 {
			v.Nitro = 0
			v.nitroStarved = true
		}
	} else if !wantBoost {
		v.Nitro = math.Min(v.Nitro+NitroRegenRate*dt, v.Stats.NitroCapacity)
	}
	if v.NitroPending > 0 {
		transfer := v.NitroPending * math.Min(1, NitroRefillRate*dt)
		if room := v.Stats.NitroCapacity - v.Nitro; transfer > room {
			transfer = room
		}
		v.Nitro += transfer
		v.NitroPending -= transfer
		if v.NitroPending < 0.01 {
			v.NitroPending = 0
		}
	}
	if boosting {
		target *= v.Stats.NitroBonus
	}
	v.Boosting = boosting

	// 7. Damage bleeds top speed, up to 20% when fully damaged.
	target *= 1 - DamageMaxPenalty*(v.Damage/DamageMax)

	// 8. Asymmetric speed integration: shedding speed is quicker than gaining
	// it. Brakes and an open throttle (boost running out, damage biting) snap
	// hard; a closed throttle falls off gentler.
	rate := 1 / math.Max(v.Stats.AccelTime, 0.05)
	if v.Speed > target {
		if !v.Bot && !in.Brake && !in.Forward {
			rate *= CoastSnapFactor
		} else {
			rate *= DecelSnapFactor
		}
	}
	v.Speed = blendTo(v.Speed, target, rate, dt)

	// 9. Steering integration: yaw velocity eases toward the intent instead
	// of snapping, then yaw integrates it.
	v.AngVel = blendTo(v.AngVel, steer*v.Stats.TurnRate, SteerResponse, dt)
	v.Yaw = wrapAngle(v.Yaw + v.AngVel*dt)

	// 10. Drift: blend chases the steering side while held above the speed
	// floor, and the blend drives a lateral slide. Feel, not tire physics.
	driftHeld := in.Drift && v.Speed > DriftMinSpeed
	if driftHeld {
		v.DriftBlend = blendTo(v.DriftBlend, steer, DriftBlendRate, dt)
	} else {
		v.DriftBlend = blendTo(v.DriftBlend, 0, DriftBlendRate, dt)
	}
	v.Drifting = driftHeld && math.Abs(v.DriftBlend) > DriftActiveMin
	if v.Drifting {
		v.driftElapsed += dt
		v.longestDrift = math.Max(v.longestDrift, v.driftElapsed)
	} else {
		v.driftElapsed = 0
	}

	forward := forwardFromYaw(v.Yaw)
	vel := forward.Mul(v.Speed)
	if math.Abs(v.DriftBlend) > 1e-4 {
		lateral := worldUp.Cross(forward)
		vel = vel.Add(lateral.Mul(-v.DriftBlend * DriftSlideSpeed))
	}

	// 11. Wall collision against the nearest segment.
	col := ResolveWallCollision(v.Position, vel, seg, v.Stats.HalfWidth)
	if col.Collided {
		v.Position = col.Position
		vel = col.Velocity
		v.AngVel = 0
		v.Speed = math.Hypot(vel.X(), vel.Z())
		if v.Speed > YawRealignMinSpeed {
			// Point down the corrected velocity so the next frame does not
			// drive straight back into the wall.
			v.Yaw = math.Atan2(vel.X(), vel.Z())
		}
		v.Damage = clamp(v.Damage+WallDamage, 0, DamageMax)
		v.WallSide = col.Side
		v.wallHold = WallContactHold
		v.collisions++
		out.Trauma += CollisionTrauma
		if rng != nil && rng.Chance(CollisionEventChance) {
			out.Events = append(out.Events, types.GameplayEvent{
				Type:      "wall_impact",
				VehicleID: v.ID,
				Position:  types.FromMgl(v.Position),
				SpeedKPH:  v.Speed * DisplaySpeedScale,
				Side:      col.Side,
			})
		}
	}

	// 12. Integrate position.
	v.Position = v.Position.Add(vel.Mul(dt))

	// 13. Arcade suspension: spring toward ride height near the surface,
	// free-fall above it, hard floor underneath.
	groundY := seg.Center.Y()
	restY := groundY + RideHeight
	y := v.Position.Y()
	if y > restY+SuspensionEngageHeight {
		v.VertVel -= Gravity * dt
		y += v.VertVel * dt
	} else {
		v.VertVel = 0
		y = blendTo(y, restY, SuspensionRate, dt)
		if math.Abs(y-restY) < FloorSnapDistance {
			y = restY
		}
	}
	if y < groundY {
		y = groundY
		v.VertVel = 0
	}
	v.Position = mgl64.Vec3{v.Position.X(), y, v.Position.Z()}

	// Fractional progress within the current segment, for telemetry.
	segLen := segs[(idx+1)%n].Center.Sub(seg.Center).Len()
	frac := 0.0
	if segLen > 1e-9 {
		frac = clamp(v.Position.Sub(seg.Center).Dot(seg.Forward)/segLen, -0.5, 0.5)
	}
	v.ProgressIdx = math.Mod(float64(idx)+frac+float64(n), float64(n))

	v.peakSpeed = math.Max(v.peakSpeed, v.Speed)

	// 14. Telemetry snapshot.
	out.Telemetry = v.Telemetry()
	return out
}

// stepWrecked spins the disabled car through its countdown, then drops it
// back on the centerline of its last segment with everything zeroed.
func stepWrecked(v *VehicleState, segs []track.Segment, dt float64, out *StepOutcome) {
	if v.announceWreck {
		v.announceWreck = false
		out.Events = append(out.Events, types.GameplayEvent{
			Type:      "wreck",
			VehicleID: v.ID,
			Position:  types.FromMgl(v.Position),
		})
	}

	v.Speed = 0
	v.AngVel = 0
	v.DriftBlend = 0
	v.Drifting = false
	v.driftElapsed = 0
	v.Yaw = wrapAngle(v.Yaw + WreckSpinRate*dt)

	v.WreckTimer -= dt
	if v.WreckTimer > 0 {
		return
	}
	v.WreckTimer = 0

	n := len(segs)
	idx := ((v.SegIdx % n) + n) % n
	seg := segs[idx]
	v.Position = seg.Center.Add(mgl64.Vec3{0, RideHeight, 0})
	v.Yaw = yawFromVec(seg.Forward)
	v.VertVel = 0
	v.WallSide = 0
	v.wallHold = 0
	v.nitroStarved = false
	v.SegIdx = idx
	v.ProgressIdx = float64(idx)
	out.Events = append(out.Events, types.GameplayEvent{
		Type:      "respawn",
		VehicleID: v.ID,
		Position:  types.FromMgl(v.Position),
	})
}

// Telemetry renders the display view of the state: km/h speed, degrees
// heading, normalized steer ratio, progress fraction, session stats.
func (v *VehicleState) Telemetry() types.VehicleTelemetry {
	steerRatio := 0.0
	if v.Stats.TurnRate > 0 {
		steerRatio = clamp(v.AngVel/v.Stats.TurnRate, -1, 1)
	}
	return types.VehicleTelemetry{
		ID:            v.ID,
		Archetype:     v.Stats.ID,
		Bot:           v.Bot,
		Position:      types.FromMgl(v.Position),
		HeadingDeg:    mgl64.RadToDeg(v.Yaw),
		SpeedKPH:      v.Speed * DisplaySpeedScale,
		Nitro:         v.Nitro,
		NitroPending:  v.NitroPending,
		Boosting:      v.Boosting,
		Lap:           v.Lap,
		ProgressIndex: v.ProgressIdx,
		ProgressFrac:  track.ProgressFrac(v.ProgressIdx, v.trackLen),
		SteerRatio:    steerRatio,
		DriftBlend:    v.DriftBlend,
		Drifting:      v.Drifting,
		DamagePct:     v.Damage,
		WallSide:      v.WallSide,
		Wrecked:       v.WreckTimer > 0,
		WreckSecLeft:  v.WreckTimer,
		Stats: types.SessionStats{
			PeakSpeedKPH:    v.peakSpeed * DisplaySpeedScale,
			LongestDriftSec: v.longestDrift,
			Collisions:      v.collisions,
			Pickups:         v.pickups,
		},
	}
}

func forwardFromYaw(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
}

func yawFromVec(v mgl64.Vec3) float64 {
	return math.Atan2(v.X(), v.Z())
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// blendTo moves cur toward target with a first-order response at the given
// rate. The factor clamp keeps large dt values from overshooting.
func blendTo(cur, target, rate, dt float64) float64 {
	f := rate * dt
	if f > 1 {
		f = 1
	}
	return cur + (target-cur)*f
}
