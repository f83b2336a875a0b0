package gameplay

import (
	"encoding/json"
	"sort"
	"sync"

	_ "embed"
)

// DefaultArchetypeID is used whenever a caller does not name a sheet.
const DefaultArchetypeID = "roadster"

// Archetype is one vehicle stat sheet. TopSpeed is in m/s, AccelTime is the
// time constant (seconds) of the speed approach, TurnRate is in rad/s,
// HalfWidth in world units. NitroBonus multiplies top speed while boosting.
type Archetype struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	TopSpeed      float64 `json:"top_speed"`
	AccelTime     float64 `json:"accel_time"`
	TurnRate      float64 `json:"turn_rate"`
	HalfWidth     float64 `json:"half_width"`
	NitroCapacity float64 `json:"nitro_capacity"`
	NitroBonus    float64 `json:"nitro_bonus"`
}

//go:embed vehicles.json
var vehiclesPayload []byte

var (
	loadOnce sync.Once
	sheets   map[string]Archetype
	sheetIDs []string
	loadErr  error
)

func load() {
	loadOnce.Do(func() {
		var list []Archetype
		if loadErr = json.Unmarshal(vehiclesPayload, &list); loadErr != nil {
			return
		}
		sheets = make(map[string]Archetype, len(list))
		for _, a := range list {
			sheets[a.ID] = a
			sheetIDs = append(sheetIDs, a.ID)
		}
		sort.Strings(sheetIDs)
	})
	// A broken embedded sheet is a corrupt build, not a runtime input.
	if loadErr != nil {
		panic(loadErr)
	}
}

// ByID returns the named sheet. Unknown IDs report ok=false and return the
// default sheet so callers always hold usable stats.
func ByID(id string) (Archetype, bool) {
	load()
	if a, ok := sheets[id]; ok {
		return a, true
	}
	return sheets[DefaultArchetypeID], false
}

// Default returns the baseline sheet.
func Default() Archetype {
	a, _ := ByID(DefaultArchetypeID)
	return a
}

// IDs returns every archetype ID in stable order.
func IDs() []string {
	load()
	out := make([]string, len(sheetIDs))
	copy(out, sheetIDs)
	return out
}
