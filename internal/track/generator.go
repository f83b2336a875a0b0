package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Track shape constants. Width is uniform across the loop in this design.
const (
	SegmentCount       = 1200
	Width              = 26.0
	DecorationInterval = 10
)

// PickupSymbol marks decorations the pickup scanner treats as collectible.
const PickupSymbol = "nitro"

// pickupShare is the fraction of decoration rolls that place a canister
// instead of scenery.
const pickupShare = 0.3

// Theme groups the decoration tuning for one race look.
type Theme struct {
	Name             string
	Symbols          []string // scenery pool; canisters are rolled separately
	DecorationChance float64
}

// Themes is the fixed pool a race theme is drawn from.
var Themes = []Theme{
	{Name: "sunset", Symbols: []string{"billboard", "palm", "pylon"}, DecorationChance: 0.45},
	{Name: "night", Symbols: []string{"neon_sign", "streetlight", "barrier"}, DecorationChance: 0.50},
	{Name: "desert", Symbols: []string{"cactus", "rock", "ruin"}, DecorationChance: 0.40},
	{Name: "alpine", Symbols: []string{"pine", "snowbank", "chalet"}, DecorationChance: 0.42},
}

// Decoration is a prop anchored to a segment, offset along its lateral axis.
type Decoration struct {
	Symbol      string
	Offset      float64 // signed lateral offset from the centerline
	Size        float64
	RotationDeg float64
}

// Segment is one discrete sample of the track centerline with its local
// orientation frame. Segments are immutable once generated and shared by
// reference across every simulator in a race.
type Segment struct {
	Index      int
	Center     mgl64.Vec3
	Forward    mgl64.Vec3 // unit tangent
	Normal     mgl64.Vec3 // unit lateral, positive toward the right wall
	Width      float64
	Theme      string
	Decoration *Decoration
}

var worldUp = mgl64.Vec3{0, 1, 0}

// Generate builds the closed segment loop for a seed. It is a total,
// referentially transparent function: the same seed always produces the
// identical sequence, which is what makes races and tests reproducible.
func Generate(seed int64) []Segment {
	rng := NewRand(seed)

	// Shape parameters come out of the stream first, so they are part of
	// the seed's identity just like the decorations.
	radiusX := rng.Range(440, 520)
	radiusZ := rng.Range(300, 380)
	noiseAmp := rng.Range(22, 46)
	noiseLobes := float64(3 + rng.Intn(4)) // integer lobe count keeps the loop closed
	noisePhase := rng.Range(0, 2*math.Pi)
	theme := Themes[rng.Intn(len(Themes))]

	centers := make([]mgl64.Vec3, SegmentCount)
	for i := range centers {
		theta := 2 * math.Pi * float64(i) / SegmentCount
		radial := noiseAmp * math.Sin(noiseLobes*theta+noisePhase)
		centers[i] = mgl64.Vec3{
			math.Cos(theta) * (radiusX + radial),
			0,
			math.Sin(theta) * (radiusZ + radial),
		}
	}

	segs := make([]Segment, SegmentCount)
	for i := range segs {
		prev := centers[(i-1+SegmentCount)%SegmentCount]
		next := centers[(i+1)%SegmentCount]
		forward := next.Sub(prev).Normalize()
		segs[i] = Segment{
			Index:   i,
			Center:  centers[i],
			Forward: forward,
			Normal:  worldUp.Cross(forward).Normalize(),
			Width:   Width,
			Theme:   theme.Name,
		}
	}

	// Decoration rolls run strictly in segment order so placement is as
	// reproducible as the shape.
	for i := 0; i < SegmentCount; i += DecorationInterval {
		if !rng.Chance(theme.DecorationChance) {
			continue
		}
		segs[i].Decoration = rollDecoration(rng, theme)
	}
	return segs
}

func rollDecoration(rng *Rand, theme Theme) *Decoration {
	d := &Decoration{}
	if rng.Chance(pickupShare) {
		// Canisters must be reachable, so they stay inside the walls.
		d.Symbol = PickupSymbol
		d.Offset = rng.Range(-(Width/2 - 3), Width/2-3)
	} else {
		d.Symbol = theme.Symbols[rng.Intn(len(theme.Symbols))]
		side := 1.0
		if rng.Chance(0.5) {
			side = -1
		}
		d.Offset = side * rng.Range(Width/2+3, Width/2+16)
	}
	d.Size = rng.Range(0.8, 2.2)
	d.RotationDeg = rng.Range(0, 360)
	return d
}
