package simulation

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"driftline/internal/gameplay"
	"driftline/internal/shared/types"
	"driftline/internal/track"
)

// raceRandSalt separates the race event stream from the track layout stream
// so both can fold the same seed without correlating.
const raceRandSalt = 0x9e3779b9

// Config describes one race session. AllBots hands the slot-zero vehicle to
// the bot driver too, for headless simulation runs.
type Config struct {
	RaceID    string
	Seed      int64
	TotalLaps int
	GridSize  int
	PlayerID  string
	Archetype string
	AllBots   bool
}

// Race is the authoritative state of one session: the generated track, every
// vehicle on it, and the gameplay events they produce. All methods are safe
// for concurrent use; the simulation itself runs single-threaded inside Tick.
type Race struct {
	mu sync.RWMutex

	raceID    string
	seed      int64
	totalLaps int
	playerID  string

	segments []track.Segment
	theme    string
	rng      *track.Rand
	vehicles []*VehicleState
	byID     map[string]*VehicleState

	input   map[string]types.DriveInput
	lastSeq map[string]uint64

	tick     uint64
	simTime  float64
	paused   bool
	finished bool
	winnerID string

	pending []types.GameplayEvent
	trauma  map[string]float64
}

// VehiclePoint is the minimal per-vehicle view handed to systems that only
// care about where cars are, in grid order.
type VehiclePoint struct {
	ID       string
	Position mgl64.Vec3
	Wrecked  bool
}

// NewRace generates the track for the seed and places the grid: the player
// in slot zero, bots behind. Out-of-range laps and grid sizes are clamped,
// never rejected.
func NewRace(cfg Config) *Race {
	laps := cfg.TotalLaps
	if laps < 1 {
		laps = 1
	}
	if laps > MaxTotalLaps {
		laps = MaxTotalLaps
	}
	grid := cfg.GridSize
	if grid < 1 {
		grid = 1
	}
	if grid > MaxGridSize {
		grid = MaxGridSize
	}
	playerID := cfg.PlayerID
	if playerID == "" {
		playerID = "player"
	}

	segs := track.Generate(cfg.Seed)
	rng := track.NewRand(cfg.Seed ^ raceRandSalt)

	r := &Race{
		raceID:    cfg.RaceID,
		seed:      cfg.Seed,
		totalLaps: laps,
		playerID:  playerID,
		segments:  segs,
		theme:     segs[0].Theme,
		rng:       rng,
		byID:      make(map[string]*VehicleState, grid),
		input:     make(map[string]types.DriveInput, grid),
		lastSeq:   make(map[string]uint64, grid),
		trauma:    make(map[string]float64, grid),
	}

	stats, _ := gameplay.ByID(cfg.Archetype)
	player := NewVehicle(playerID, cfg.AllBots, stats, segs, 0)
	if cfg.AllBots {
		player.Aggression = rng.Range(AIAggressionMin, AIAggressionMax)
	}
	r.vehicles = append(r.vehicles, player)
	r.byID[playerID] = player

	ids := gameplay.IDs()
	for i := 1; i < grid; i++ {
		botStats, _ := gameplay.ByID(ids[rng.Intn(len(ids))])
		bot := NewVehicle(fmt.Sprintf("bot_%d", i), true, botStats, segs, i)
		bot.Aggression = rng.Range(AIAggressionMin, AIAggressionMax)
		r.vehicles = append(r.vehicles, bot)
		r.byID[bot.ID] = bot
	}
	return r
}

// ApplyInput stores the latest player input. Stale packets, judged by the
// client sequence number, are dropped so an out-of-order frame cannot undo a
// newer one.
func (r *Race) ApplyInput(vehicleID string, in types.DriveInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byID[vehicleID]
	if !ok || v.Bot {
		return
	}
	if in.Sequence != 0 && in.Sequence <= r.lastSeq[vehicleID] {
		return
	}
	if in.Sequence != 0 {
		r.lastSeq[vehicleID] = in.Sequence
	}
	r.input[vehicleID] = in
}

// Tick advances the whole race by dt seconds. Vehicles step in grid order so
// identical seeds and inputs replay identically. Paused and finished races
// do not mutate at all, and an oversized dt skips the frame outright.
func (r *Race) Tick(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused || r.finished {
		return
	}
	if dt <= 0 || dt > MaxFrameDelta {
		return
	}

	r.tick++
	r.simTime += dt
	stampMS := int64(r.simTime * 1000)

	for _, v := range r.vehicles {
		out := Step(v, r.input[v.ID], r.segments, r.rng, dt)
		if out.Trauma > 0 {
			r.trauma[v.ID] += out.Trauma
		}
		for i := range out.Events {
			out.Events[i].OccurredMS = stampMS
		}
		r.appendLocked(out.Events)
	}

	for _, v := range r.vehicles {
		if v.Lap >= r.totalLaps {
			r.finished = true
			r.winnerID = v.ID
			r.appendLocked([]types.GameplayEvent{{
				Type:       "race_finish",
				VehicleID:  v.ID,
				Lap:        v.Lap,
				Position:   types.FromMgl(v.Position),
				OccurredMS: stampMS,
			}})
			break
		}
	}
}

// Snapshot returns a deep copy of the race for replication. Pending events
// are included but not consumed; DrainEvents is the consuming read.
func (r *Race) Snapshot() types.RaceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vehicles := make([]types.VehicleTelemetry, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		vehicles = append(vehicles, v.Telemetry())
	}
	events := make([]types.GameplayEvent, len(r.pending))
	copy(events, r.pending)

	return types.RaceSnapshot{
		RaceID:     r.raceID,
		Seed:       r.seed,
		Theme:      r.theme,
		Tick:       r.tick,
		SimTimeSec: r.simTime,
		TotalLaps:  r.totalLaps,
		Paused:     r.paused,
		Finished:   r.finished,
		WinnerID:   r.winnerID,
		Vehicles:   vehicles,
		Events:     events,
	}
}

// DrainEvents hands back everything accumulated since the previous drain and
// clears the buffer. Events survive across ticks until somebody drains them,
// so a slow reader misses nothing up to the buffer cap.
func (r *Race) DrainEvents() []types.GameplayEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

// AppendEvents injects events produced outside the vehicle step, such as
// pickups. Unstamped events get the current simulation clock.
func (r *Race) AppendEvents(events []types.GameplayEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stampMS := int64(r.simTime * 1000)
	for i := range events {
		if events[i].OccurredMS == 0 {
			events[i].OccurredMS = stampMS
		}
	}
	r.appendLocked(events)
}

func (r *Race) appendLocked(events []types.GameplayEvent) {
	if len(events) == 0 {
		return
	}
	r.pending = append(r.pending, events...)
	if over := len(r.pending) - MaxPendingEvents; over > 0 {
		r.pending = r.pending[over:]
	}
}

// TakeTrauma returns the camera shake accumulated for one vehicle since the
// previous call and resets it.
func (r *Race) TakeTrauma(vehicleID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.trauma[vehicleID]
	r.trauma[vehicleID] = 0
	return t
}

// AddNitroRefill credits pickup nitro to a vehicle's pending buffer.
func (r *Race) AddNitroRefill(vehicleID string, amount float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.byID[vehicleID]; ok {
		v.AddNitroRefill(amount)
	}
}

// WreckVehicle disables a vehicle for the wreck countdown. Idempotent while
// already wrecked.
func (r *Race) WreckVehicle(vehicleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.byID[vehicleID]; ok {
		v.Wreck()
	}
}

// SetPaused freezes or resumes the simulation clock.
func (r *Race) SetPaused(p bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = p
}

// Paused reports whether the simulation clock is frozen.
func (r *Race) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// Finished reports whether any vehicle completed the lap count, and which.
func (r *Race) Finished() (bool, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finished, r.winnerID
}

// SimTime is the accumulated simulation clock in seconds.
func (r *Race) SimTime() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.simTime
}

// PlayerID is the id of the grid-slot-zero vehicle.
func (r *Race) PlayerID() string {
	return r.playerID
}

// Segments exposes the generated centerline. Callers treat it as read-only.
func (r *Race) Segments() []track.Segment {
	return r.segments
}

// Positions lists every vehicle in grid order, for the pickup scanner and
// other systems that only need locations.
func (r *Race) Positions() []VehiclePoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VehiclePoint, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, VehiclePoint{ID: v.ID, Position: v.Position, Wrecked: v.WreckTimer > 0})
	}
	return out
}

// VehicleTelemetry renders the display view of one vehicle, if present.
func (r *Race) VehicleTelemetry(vehicleID string) (types.VehicleTelemetry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[vehicleID]
	if !ok {
		return types.VehicleTelemetry{}, false
	}
	return v.Telemetry(), true
}

// TrackInit renders the one-shot track description sent to clients when they
// join: every segment center, heading, and decoration in wire form.
func (r *Race) TrackInit() types.TrackInit {
	return TrackWire(r.seed, r.segments)
}

// TrackWire converts generated segments to their wire form. Tools that never
// start a race use it directly on a Generate result.
func TrackWire(seed int64, segs []track.Segment) types.TrackInit {
	points := make([]types.TrackPoint, 0, len(segs))
	theme := ""
	for _, s := range segs {
		theme = s.Theme
		p := types.TrackPoint{
			Index:      s.Index,
			Center:     types.FromMgl(s.Center),
			HeadingDeg: mgl64.RadToDeg(yawFromVec(s.Forward)),
		}
		if s.Decoration != nil {
			p.Decoration = &types.DecorationMarker{
				Symbol:      s.Decoration.Symbol,
				Offset:      s.Decoration.Offset,
				Size:        s.Decoration.Size,
				RotationDeg: s.Decoration.RotationDeg,
			}
		}
		points = append(points, p)
	}
	return types.TrackInit{
		Seed:     seed,
		Theme:    theme,
		Width:    track.Width,
		Count:    len(segs),
		Segments: points,
	}
}
