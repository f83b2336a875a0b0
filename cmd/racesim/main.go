// racesim runs a full race headless with every car bot-driven. It is the
// fastest way to watch a seed play out: lap times, wrecks, pickups, final
// standings, no server and no client.
package main

import (
	"flag"
	"fmt"
	"sort"

	"driftline/internal/camera"
	"driftline/internal/pickups"
	"driftline/internal/shared/logger"
	"driftline/internal/shared/types"
	"driftline/internal/simulation"
)

func main() {
	var (
		seed      int64
		laps      int
		grid      int
		tickRate  int
		duration  float64
		archetype string
	)
	flag.Int64Var(&seed, "seed", 42, "track seed")
	flag.IntVar(&laps, "laps", 3, "laps to race")
	flag.IntVar(&grid, "grid", 6, "grid size including the lead car")
	flag.IntVar(&tickRate, "tick", 120, "simulation ticks per second")
	flag.Float64Var(&duration, "duration", 600, "simulated seconds before giving up")
	flag.StringVar(&archetype, "archetype", "", "lead car archetype (empty for default)")
	flag.Parse()

	log := logger.New("racesim")

	race := simulation.NewRace(simulation.Config{
		RaceID:    fmt.Sprintf("sim_%d", seed),
		Seed:      seed,
		TotalLaps: laps,
		GridSize:  grid,
		PlayerID:  "lead",
		Archetype: archetype,
		AllBots:   true,
	})
	scanner := pickups.NewScanner(race.Segments())
	rig := camera.NewRig(seed)

	init := race.TrackInit()
	log.Printf("track generated seed=%d theme=%s segments=%d canisters=%d",
		init.Seed, init.Theme, init.Count, scanner.ActiveCount())

	dt := 1.0 / float64(tickRate)
	steps := int(duration * float64(tickRate))
	var pose types.CameraPose
	finished := false

	for i := 0; i < steps; i++ {
		race.Tick(dt)

		grabs := scanner.Scan(vehiclePoints(race.Positions()), race.SimTime())
		if len(grabs) > 0 {
			events := make([]types.GameplayEvent, 0, len(grabs))
			for _, g := range grabs {
				race.AddNitroRefill(g.VehicleID, g.Amount)
				events = append(events, types.GameplayEvent{
					Type:      "pickup",
					VehicleID: g.VehicleID,
					Position:  types.FromMgl(g.Position),
				})
			}
			race.AppendEvents(events)
		}

		rig.AddTrauma(race.TakeTrauma(race.PlayerID()))
		if tel, ok := race.VehicleTelemetry(race.PlayerID()); ok {
			pose = rig.Update(tel, dt)
		}

		for _, ev := range race.DrainEvents() {
			t := float64(ev.OccurredMS) / 1000
			switch ev.Type {
			case "lap":
				log.Printf("lap completed vehicle=%s lap=%d t=%.1fs", ev.VehicleID, ev.Lap, t)
			case "wreck", "respawn":
				log.Printf("%s vehicle=%s t=%.1fs", ev.Type, ev.VehicleID, t)
			case "race_finish":
				log.Printf("race finished winner=%s laps=%d t=%.1fs", ev.VehicleID, ev.Lap, t)
			}
		}

		if done, _ := race.Finished(); done {
			finished = true
			break
		}
	}

	printStandings(log, race.Snapshot())
	log.Printf("chase camera landed at (%.1f, %.1f, %.1f) fov=%.1f",
		pose.Position.X, pose.Position.Y, pose.Position.Z, pose.FOVDeg)

	if !finished {
		log.Fatalf("duration cap reached after %.0fs simulated without a finish", duration)
	}
}

func printStandings(log *logger.Logger, snap types.RaceSnapshot) {
	order := make([]types.VehicleTelemetry, len(snap.Vehicles))
	copy(order, snap.Vehicles)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Lap != order[j].Lap {
			return order[i].Lap > order[j].Lap
		}
		return order[i].ProgressFrac > order[j].ProgressFrac
	})

	log.Printf("standings race=%s sim_time=%.1fs", snap.RaceID, snap.SimTimeSec)
	for place, v := range order {
		log.Printf("  P%d %-8s %-12s lap=%d progress=%.1f%% peak=%.0fkph hits=%d pickups=%d",
			place+1, v.ID, v.Archetype, v.Lap, v.ProgressFrac*100,
			v.Stats.PeakSpeedKPH, v.Stats.Collisions, v.Stats.Pickups)
	}
}

func vehiclePoints(points []simulation.VehiclePoint) []pickups.VehiclePos {
	out := make([]pickups.VehiclePos, 0, len(points))
	for _, p := range points {
		out = append(out, pickups.VehiclePos{ID: p.ID, Position: p.Position, Wrecked: p.Wrecked})
	}
	return out
}
