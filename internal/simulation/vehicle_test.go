package simulation

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"driftline/internal/gameplay"
	"driftline/internal/shared/types"
	"driftline/internal/track"
)

const stepDT = 1.0 / 120.0

func spawnTestVehicle(segs []track.Segment) *VehicleState {
	return NewVehicle("p1", false, gameplay.Default(), segs, 0)
}

func TestNitroDrainsWhileBoosting(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)
	start := v.Nitro

	in := types.DriveInput{Boost: true}
	for i := 0; i < 60; i++ {
		Step(v, in, segs, nil, stepDT)
	}
	if v.Nitro >= start {
		t.Fatalf("expected nitro to drain, start=%f now=%f", start, v.Nitro)
	}
	if !v.Boosting {
		t.Fatal("expected vehicle to report boosting while nitro remains")
	}
}

func TestNitroStarvationHoldsAtZeroWhileHeld(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)
	v.Nitro = 5

	in := types.DriveInput{Boost: true}
	for i := 0; i < 60; i++ {
		Step(v, in, segs, nil, stepDT)
	}
	if v.Nitro != 0 {
		t.Fatalf("expected empty tank, got=%f", v.Nitro)
	}

	// Still holding the button: no regeneration, no flicker at zero.
	for i := 0; i < 240; i++ {
		Step(v, in, segs, nil, stepDT)
		if v.Nitro != 0 {
			t.Fatalf("nitro crept above zero while starved and held, got=%f", v.Nitro)
		}
		if v.Boosting {
			t.Fatal("starved vehicle must not report boosting")
		}
	}

	// Release: regeneration resumes.
	in.Boost = false
	for i := 0; i < 120; i++ {
		Step(v, in, segs, nil, stepDT)
	}
	if v.Nitro <= 0 {
		t.Fatalf("expected regeneration after release, got=%f", v.Nitro)
	}

	// Fresh press on the rebuilt reserve boosts again.
	in.Boost = true
	Step(v, in, segs, nil, stepDT)
	if !v.Boosting {
		t.Fatal("expected boost to resume after release and re-press")
	}
}

func TestPickupCreditEasesIntoReserve(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)
	v.Nitro = 10
	v.AddNitroRefill(35)

	if v.NitroPending != 35 {
		t.Fatalf("expected pending credit of 35, got=%f", v.NitroPending)
	}

	var in types.DriveInput
	Step(v, in, segs, nil, stepDT)
	firstTransfer := 35 - v.NitroPending
	if firstTransfer <= 0 {
		t.Fatal("expected the pending buffer to start transferring immediately")
	}

	prev := v.NitroPending
	for i := 0; i < 600; i++ {
		Step(v, in, segs, nil, stepDT)
		if v.NitroPending > prev {
			t.Fatalf("pending buffer grew, prev=%f now=%f", prev, v.NitroPending)
		}
		prev = v.NitroPending
		if v.Nitro > v.Stats.NitroCapacity {
			t.Fatalf("reserve exceeded capacity, got=%f", v.Nitro)
		}
	}
	if v.NitroPending != 0 {
		t.Fatalf("expected pending buffer to flush out, got=%f", v.NitroPending)
	}
	if v.Nitro <= 40 {
		t.Fatalf("expected credit plus regen in the reserve, got=%f", v.Nitro)
	}
}

func TestDecelerationOutpacesAcceleration(t *testing.T) {
	segs := track.Generate(11)
	dt := 0.1

	accel := spawnTestVehicle(segs)
	Step(accel, types.DriveInput{Forward: true}, segs, nil, dt)
	gained := accel.Speed

	decel := spawnTestVehicle(segs)
	decel.Speed = decel.Stats.TopSpeed
	Step(decel, types.DriveInput{Brake: true}, segs, nil, dt)
	shed := decel.Stats.TopSpeed - decel.Speed

	if gained <= 0 {
		t.Fatalf("expected some acceleration, got=%f", gained)
	}
	ratio := shed / gained
	if math.Abs(ratio-DecelSnapFactor) > 1e-9 {
		t.Fatalf("expected shedding to outpace gaining by %.0fx, got=%f", DecelSnapFactor, ratio)
	}
}

func TestBrakingOutpacesCoasting(t *testing.T) {
	segs := track.Generate(11)
	dt := 0.1

	coast := spawnTestVehicle(segs)
	coast.Speed = coast.Stats.TopSpeed
	Step(coast, types.DriveInput{}, segs, nil, dt)
	coastShed := coast.Stats.TopSpeed - coast.Speed

	brake := spawnTestVehicle(segs)
	brake.Speed = brake.Stats.TopSpeed
	Step(brake, types.DriveInput{Brake: true}, segs, nil, dt)
	brakeShed := brake.Stats.TopSpeed - brake.Speed

	if coastShed <= 0 {
		t.Fatalf("expected a closed throttle to shed speed, got=%f", coastShed)
	}
	ratio := brakeShed / coastShed
	want := DecelSnapFactor / CoastSnapFactor
	if math.Abs(ratio-want) > 1e-9 {
		t.Fatalf("expected braking to outpace coasting by %.2fx, got=%f", want, ratio)
	}
}

func TestWreckCountdownThenCenterlineRespawn(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)

	in := types.DriveInput{Forward: true}
	for i := 0; i < 30; i++ {
		Step(v, in, segs, nil, stepDT)
	}

	v.Wreck()
	var sawWreck, sawRespawn bool
	var spun bool
	yawBefore := v.Yaw

	steps := int(WreckDuration/stepDT) + 2
	for i := 0; i < steps; i++ {
		out := Step(v, in, segs, nil, stepDT)
		for _, ev := range out.Events {
			switch ev.Type {
			case "wreck":
				sawWreck = true
			case "respawn":
				sawRespawn = true
			}
		}
		if v.WreckTimer > 0 {
			if v.Speed != 0 {
				t.Fatalf("wrecked vehicle must not move, speed=%f", v.Speed)
			}
			if v.Yaw != yawBefore {
				spun = true
			}
		}
		if sawRespawn {
			break
		}
	}

	if !sawWreck || !sawRespawn {
		t.Fatalf("expected wreck and respawn events, wreck=%v respawn=%v", sawWreck, sawRespawn)
	}
	if !spun {
		t.Fatal("expected visible spin during the countdown to move yaw")
	}
	if v.WreckTimer != 0 {
		t.Fatalf("expected countdown to finish, got=%f", v.WreckTimer)
	}

	seg := segs[v.SegIdx]
	want := seg.Center.Add(mgl64.Vec3{0, RideHeight, 0})
	if v.Position.Sub(want).Len() > 1e-9 {
		t.Fatalf("expected respawn on the centerline, got=%v want=%v", v.Position, want)
	}
}

func TestDriftNeedsCommitmentSpeed(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)

	// Crawling: drift input is ignored.
	in := types.DriveInput{Forward: true, Drift: true, Right: true}
	for i := 0; i < 10; i++ {
		Step(v, in, segs, nil, stepDT)
	}
	if v.Drifting || v.DriftBlend != 0 {
		t.Fatalf("drift engaged below the speed floor, blend=%f", v.DriftBlend)
	}

	// Get up to speed without steering, then commit.
	cruise := types.DriveInput{Forward: true}
	for i := 0; i < 600; i++ {
		Step(v, cruise, segs, nil, stepDT)
		if v.Speed > DriftMinSpeed+8 {
			break
		}
	}
	if v.Speed <= DriftMinSpeed {
		t.Fatalf("test vehicle failed to reach drift speed, got=%f", v.Speed)
	}

	for i := 0; i < 42; i++ {
		Step(v, in, segs, nil, stepDT)
	}
	if !v.Drifting {
		t.Fatalf("expected an active drift, blend=%f speed=%f", v.DriftBlend, v.Speed)
	}
	if v.DriftBlend <= DriftActiveMin {
		t.Fatalf("expected blend on the steering side, got=%f", v.DriftBlend)
	}

	// Release: the blend bleeds back to neutral.
	for i := 0; i < 240; i++ {
		Step(v, cruise, segs, nil, stepDT)
	}
	if v.Drifting {
		t.Fatal("expected drift to disengage after release")
	}
	if math.Abs(v.DriftBlend) > 0.05 {
		t.Fatalf("expected blend to settle near zero, got=%f", v.DriftBlend)
	}
}

func TestDamageDecaysOverTime(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)
	v.Damage = 50

	var in types.DriveInput
	for i := 0; i < 120; i++ {
		Step(v, in, segs, nil, stepDT)
	}
	want := 50 - DamageDecayRate
	if math.Abs(v.Damage-want) > 1e-6 {
		t.Fatalf("expected damage to decay to %f, got=%f", want, v.Damage)
	}
}

func TestDamageClampsAtMaxUnderSustainedWallContact(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)
	const idx = 300
	seg := segs[idx]
	v.SegIdx = idx
	v.ProgressIdx = float64(idx)
	v.Yaw = yawFromVec(seg.Forward)
	v.Speed = 20
	allowed := seg.Width/2 - v.Stats.HalfWidth/2

	in := types.DriveInput{Forward: true}
	for i := 0; i < 40; i++ {
		// Push the car back outside the boundary so every frame grinds.
		v.Position = seg.Center.Add(seg.Normal.Mul(allowed + 0.5)).Add(mgl64.Vec3{0, RideHeight, 0})
		Step(v, in, segs, nil, stepDT)
		if v.Damage > DamageMax {
			t.Fatalf("damage exceeded the cap, got=%f", v.Damage)
		}
	}
	if v.Damage != DamageMax {
		t.Fatalf("expected damage pinned at the cap, got=%f", v.Damage)
	}
	if v.collisions < 40 {
		t.Fatalf("expected a wall hit every frame, got=%d", v.collisions)
	}
}

func TestWallContactSuppressesSteeringIntoWall(t *testing.T) {
	segs := track.Generate(11)

	intoWall := spawnTestVehicle(segs)
	intoWall.WallSide = 1
	intoWall.wallHold = WallContactHold
	Step(intoWall, types.DriveInput{Right: true}, segs, nil, stepDT)
	if intoWall.AngVel != 0 {
		t.Fatalf("steering toward the contact wall must be ignored, angvel=%f", intoWall.AngVel)
	}

	awayFromWall := spawnTestVehicle(segs)
	awayFromWall.WallSide = 1
	awayFromWall.wallHold = WallContactHold
	Step(awayFromWall, types.DriveInput{Left: true}, segs, nil, stepDT)
	if awayFromWall.AngVel >= 0 {
		t.Fatalf("steering away from the wall must work, angvel=%f", awayFromWall.AngVel)
	}

	// The contact flag expires on its own.
	var neutral types.DriveInput
	for i := 0; i < 60; i++ {
		Step(intoWall, neutral, segs, nil, stepDT)
	}
	if intoWall.WallSide != 0 {
		t.Fatalf("expected wall contact to expire, side=%d", intoWall.WallSide)
	}
}

func TestDamageBleedsTopSpeed(t *testing.T) {
	segs := track.Generate(11)

	wounded := NewVehicle("b1", true, gameplay.Default(), segs, 0)
	wounded.Aggression = 1.0
	healthy := NewVehicle("b2", true, gameplay.Default(), segs, 0)
	healthy.Aggression = 1.0

	var in types.DriveInput
	for i := 0; i < 600; i++ {
		// Empty tanks keep the bot boost gate shut so the comparison is
		// purely about damage.
		wounded.Nitro = 0
		healthy.Nitro = 0
		wounded.Damage = DamageMax
		Step(wounded, in, segs, nil, stepDT)
		Step(healthy, in, segs, nil, stepDT)
	}

	cap := wounded.Stats.TopSpeed * (1 - DamageMaxPenalty)
	if wounded.Speed > cap+0.1 {
		t.Fatalf("damaged top speed above the penalty cap, got=%f cap=%f", wounded.Speed, cap)
	}
	if healthy.Speed <= wounded.Speed+2 {
		t.Fatalf("expected the healthy car to be clearly faster, healthy=%f wounded=%f", healthy.Speed, wounded.Speed)
	}
}

func TestStepSkipsUnusableDelta(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)
	pos := v.Position

	in := types.DriveInput{Forward: true}
	out := Step(v, in, segs, nil, 0)
	if v.Position != pos || v.Speed != 0 {
		t.Fatal("zero delta must not integrate")
	}
	if out.Telemetry.ID != "p1" {
		t.Fatal("skipped frame still reports telemetry")
	}

	Step(v, in, segs, nil, MaxFrameDelta+0.1)
	if v.Position != pos || v.Speed != 0 {
		t.Fatal("oversized delta must be skipped, not clamped")
	}

	Step(v, in, nil, nil, stepDT)
	if v.Position != pos {
		t.Fatal("empty track must not integrate")
	}
}

func TestSuspensionSettlesAtRideHeight(t *testing.T) {
	segs := track.Generate(11)
	v := spawnTestVehicle(segs)
	ground := segs[v.SegIdx].Center.Y()
	v.Position = mgl64.Vec3{v.Position.X(), ground + 8, v.Position.Z()}

	var in types.DriveInput
	for i := 0; i < 360; i++ {
		Step(v, in, segs, nil, stepDT)
		if v.Position.Y() < ground {
			t.Fatalf("vehicle fell through the floor, y=%f", v.Position.Y())
		}
	}
	if math.Abs(v.Position.Y()-(ground+RideHeight)) > 0.02 {
		t.Fatalf("expected settle at ride height, got y=%f want=%f", v.Position.Y(), ground+RideHeight)
	}
}
