// Package pickups turns the nitro canisters the track generator placed into
// collectible objects: proximity detection, collection, timed respawn.
package pickups

import (
	"github.com/go-gl/mathgl/mgl64"

	"driftline/internal/track"
)

const (
	Radius       = 3.2 // planar trigger radius; ride height is ignored
	NitroAmount  = 35.0
	RespawnDelay = 12.0 // seconds before a collected canister returns
)

// Canister is one collectible bottle anchored to a track segment.
type Canister struct {
	SegIndex  int
	Position  mgl64.Vec3
	Active    bool
	respawnAt float64
}

// VehiclePos is the minimal per-vehicle view the scanner needs. Wrecked cars
// cannot collect.
type VehiclePos struct {
	ID       string
	Position mgl64.Vec3
	Wrecked  bool
}

// Grab records one collection.
type Grab struct {
	VehicleID string
	Amount    float64
	Position  mgl64.Vec3
	SegIndex  int
}

// Scanner owns every canister of one track. Not safe for concurrent use; the
// owner calls Scan from its simulation loop.
type Scanner struct {
	canisters []Canister
}

// NewScanner lifts the generator's canister decorations into world space.
// The canister sits at the segment's lateral offset, matching what clients
// render from the same decoration data.
func NewScanner(segs []track.Segment) *Scanner {
	var cans []Canister
	for _, s := range segs {
		if s.Decoration == nil || s.Decoration.Symbol != track.PickupSymbol {
			continue
		}
		cans = append(cans, Canister{
			SegIndex: s.Index,
			Position: s.Center.Add(s.Normal.Mul(s.Decoration.Offset)),
			Active:   true,
		})
	}
	return &Scanner{canisters: cans}
}

// Scan revives due canisters, then checks each active one against the
// vehicles in the order given. The first vehicle inside the radius takes it,
// so ties resolve by grid order, deterministically. now is the simulation
// clock in seconds.
func (s *Scanner) Scan(vehicles []VehiclePos, now float64) []Grab {
	var grabs []Grab
	for i := range s.canisters {
		c := &s.canisters[i]
		if !c.Active {
			if now < c.respawnAt {
				continue
			}
			c.Active = true
		}
		for _, v := range vehicles {
			if v.Wrecked {
				continue
			}
			dx := v.Position.X() - c.Position.X()
			dz := v.Position.Z() - c.Position.Z()
			if dx*dx+dz*dz > Radius*Radius {
				continue
			}
			c.Active = false
			c.respawnAt = now + RespawnDelay
			grabs = append(grabs, Grab{
				VehicleID: v.ID,
				Amount:    NitroAmount,
				Position:  c.Position,
				SegIndex:  c.SegIndex,
			})
			break
		}
	}
	return grabs
}

// Canisters exposes the current canister states for rendering and tests.
func (s *Scanner) Canisters() []Canister {
	out := make([]Canister, len(s.canisters))
	copy(out, s.canisters)
	return out
}

// ActiveCount is how many canisters are currently collectible.
func (s *Scanner) ActiveCount() int {
	n := 0
	for i := range s.canisters {
		if s.canisters[i].Active {
			n++
		}
	}
	return n
}
