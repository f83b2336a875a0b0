package simulation

// Simulation tuning. Exported so tests exercise the same values the loop
// runs with. Speeds are meters per second and angles radians unless the
// name says otherwise; all of it is hand-tuned for arcade feel, not realism.
const (
	// Frame pacing. Frames longer than MaxFrameDelta are skipped outright
	// rather than integrated, so a stall never teleports a car.
	MaxFrameDelta = 0.25

	// Speed integration.
	DecelSnapFactor   = 10.0 // braking/engine-braking sheds speed this much faster than gaining it
	CoastSnapFactor   = 3.0  // throttle-off falloff, gentler than the brakes
	DisplaySpeedScale = 3.6  // m/s -> km/h for telemetry

	// Steering.
	SteerResponse      = 9.0 // first-order response rate toward target yaw velocity
	YawRealignMinSpeed = 6.0 // above this, yaw snaps to the corrected velocity after a wall hit
	WallContactHold    = 0.3 // seconds a contact keeps suppressing steering toward that wall

	// Drift.
	DriftMinSpeed   = 14.0
	DriftBlendRate  = 2.2
	DriftSlideSpeed = 8.5 // lateral slide at full blend
	DriftActiveMin  = 0.15

	// Nitro.
	NitroDrainRate  = 34.0
	NitroRegenRate  = 8.0
	NitroRefillRate = 2.6 // fraction of the pending buffer transferred per second
	NitroStartFrac  = 0.5

	// Damage.
	DamageMax        = 100.0
	DamageDecayRate  = 4.0
	WallDamage       = 6.0
	DamageMaxPenalty = 0.20 // top-speed penalty at full damage

	// Wall response.
	WallRestitution  = 0.18
	MaxWallBounce    = 5.5
	WallFriction     = 0.90
	WallSafetyMargin = 0.05

	// Collision feedback.
	CollisionTrauma      = 0.35
	CollisionEventChance = 0.40

	// Suspension. Ground height comes from the nearest segment center.
	RideHeight             = 0.5
	SuspensionRate         = 12.0
	SuspensionEngageHeight = 2.5
	FloorSnapDistance      = 0.01
	Gravity                = 30.0

	// Wreck state.
	WreckDuration = 3.0
	WreckSpinRate = 7.0

	// AI driving.
	AILookahead      = 14  // segments ahead used as the pursuit target
	AISteerGainAngle = 0.6 // radians of heading error that saturate steering
	AIAggressionMin  = 0.62
	AIAggressionMax  = 0.94
	AIBoostNitroMin  = 60.0 // bots only boost on a comfortable reserve
	AIBoostMaxError  = 0.08 // bots only boost when pointed down the track

	// Race orchestration.
	MaxGridSize      = 8
	MaxTotalLaps     = 50
	GridStagger      = 6 // segments between grid slots
	MaxPendingEvents = 256
)
