package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"driftline/internal/camera"
	"driftline/internal/pickups"
	"driftline/internal/rotation"
	"driftline/internal/shared/logger"
	"driftline/internal/shared/types"
	"driftline/internal/simulation"
)

// cameraSeedSalt keeps the shake stream distinct from the track stream while
// still deriving from the race seed, so replays of a seed look identical.
const cameraSeedSalt = 0x1b56c4e9

type client struct {
	id     string
	driver bool
	conn   *websocket.Conn
	send   chan []byte
}

// session bundles everything that belongs to one race and is replaced
// wholesale when the rotation advances.
type session struct {
	plan    types.RacePlan
	race    *simulation.Race
	rig     *camera.Rig
	scanner *pickups.Scanner
}

type server struct {
	log      *logger.Logger
	upgrader websocket.Upgrader
	rot      *rotation.Manager
	stats    *statsStore

	tickRate int
	repRate  int
	holdSec  int

	mu       sync.RWMutex
	clients  map[string]*client
	driverID string

	sesMu     sync.RWMutex
	ses       *session
	holdUntil time.Time

	poseMu   sync.RWMutex
	lastPose types.CameraPose
}

func main() {
	log := logger.New("raceserver")
	addr := ":" + getEnv("PORT", "8090")
	tickRate := getEnvRate("TICK_RATE", 120)
	repRate := getEnvRate("REPLICATION_RATE", 20)
	seed := getEnvInt64("RACE_SEED", 0)
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	laps := getEnvInt("RACE_LAPS", 3)
	grid := getEnvInt("RACE_GRID", 6)
	holdSec := getEnvInt("ROTATION_HOLD_SEC", 8)

	rot := rotation.NewManager(rotation.Defaults{Laps: laps, GridSize: grid})
	bootPlan := types.RacePlan{
		RaceID:      fmt.Sprintf("race_%d", time.Now().UTC().UnixNano()),
		Seed:        seed,
		Laps:        laps,
		GridSize:    grid,
		RequestedBy: "boot",
		CreatedAt:   time.Now().UTC(),
	}

	s := &server{
		log:   log,
		rot:   rot,
		stats: newStatsStore(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		tickRate: tickRate,
		repRate:  repRate,
		holdSec:  holdSec,
		clients:  make(map[string]*client),
		ses:      newSession(bootPlan),
	}
	s.stats.addRace()

	ctx := context.Background()
	go rot.Run(ctx, 5*time.Second)
	go s.runSimulationLoop()
	go s.runReplicationLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/rotation", s.handleRotation)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("race server listening on %s (race=%s seed=%d laps=%d grid=%d)",
		addr, bootPlan.RaceID, bootPlan.Seed, bootPlan.Laps, bootPlan.GridSize)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func newSession(plan types.RacePlan) *session {
	race := simulation.NewRace(simulation.Config{
		RaceID:    plan.RaceID,
		Seed:      plan.Seed,
		TotalLaps: plan.Laps,
		GridSize:  plan.GridSize,
		PlayerID:  "player",
	})
	return &session{
		plan:    plan,
		race:    race,
		rig:     camera.NewRig(plan.Seed ^ cameraSeedSalt),
		scanner: pickups.NewScanner(race.Segments()),
	}
}

func (s *server) session() *session {
	s.sesMu.RLock()
	defer s.sesMu.RUnlock()
	return s.ses
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("player_id")
	if id == "" {
		id = fmt.Sprintf("guest_%d", time.Now().UTC().UnixNano())
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{id: id, conn: conn, send: make(chan []byte, 64)}
	s.register(c)

	ses := s.session()
	role := "spectator"
	vehicleID := c.id
	if c.driver {
		role = "driver"
		vehicleID = ses.race.PlayerID()
	}
	s.log.Printf("client connected id=%s role=%s remote=%s", c.id, role, r.RemoteAddr)

	welcome := types.ServerEnvelope{
		Type:     "welcome",
		PlayerID: vehicleID,
		Message:  role,
		ServerMS: time.Now().UTC().UnixMilli(),
	}
	s.enqueue(c, welcome)
	s.enqueue(c, trackEnvelope(ses))

	go s.writePump(c)
	s.readPump(c)
}

// register hands the driver seat to the first connection that finds it open.
func (s *server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driverID == "" {
		s.driverID = c.id
		c.driver = true
	}
	s.clients[c.id] = c
}

func (s *server) unregister(id string) {
	s.mu.Lock()
	c, ok := s.clients[id]
	if ok {
		close(c.send)
		delete(s.clients, id)
	}
	wasDriver := ok && c.driver
	if wasDriver {
		s.driverID = ""
	}
	s.mu.Unlock()

	if wasDriver {
		// Neutral input so the abandoned car coasts to a stop instead of
		// holding the last packet forever.
		ses := s.session()
		ses.race.ApplyInput(ses.race.PlayerID(), types.DriveInput{})
	}
}

func (s *server) readPump(c *client) {
	defer func() {
		s.unregister(c.id)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("client disconnected id=%s", c.id)
				return
			}
			s.log.Printf("read error id=%s err=%v", c.id, err)
			return
		}

		var in types.ClientEnvelope
		if err := json.Unmarshal(msg, &in); err != nil {
			s.sendNotice(c, "bad_payload")
			continue
		}

		switch in.Type {
		case "input":
			if in.Input == nil {
				s.sendNotice(c, "missing_input")
				continue
			}
			if !c.driver {
				s.sendNotice(c, "spectators_cannot_drive")
				continue
			}
			ses := s.session()
			ses.race.ApplyInput(ses.race.PlayerID(), *in.Input)
		case "pause":
			if in.Pause == nil {
				s.sendNotice(c, "missing_pause")
				continue
			}
			if !c.driver {
				s.sendNotice(c, "spectators_cannot_pause")
				continue
			}
			s.session().race.SetPaused(*in.Pause)
		case "ping":
			pong := types.ServerEnvelope{
				Type:      "pong",
				PongNonce: in.PingNonce,
				ServerMS:  time.Now().UTC().UnixMilli(),
			}
			s.enqueue(c, pong)
		default:
			s.sendNotice(c, "unsupported_message_type")
		}
	}
}

func (s *server) writePump(c *client) {
	ticker := time.NewTicker(20 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		}
	}
}

func (s *server) enqueue(c *client, env types.ServerEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (s *server) sendNotice(c *client, message string) {
	s.enqueue(c, types.ServerEnvelope{Type: "notice", Message: message})
}

func (s *server) broadcast(env types.ServerEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.log.Printf("marshal broadcast failed: %v", err)
		return
	}
	s.mu.RLock()
	for _, c := range s.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
	s.mu.RUnlock()
}

func trackEnvelope(ses *session) types.ServerEnvelope {
	init := ses.race.TrackInit()
	return types.ServerEnvelope{
		Type:     "track_init",
		Track:    &init,
		ServerMS: time.Now().UTC().UnixMilli(),
	}
}

func (s *server) runSimulationLoop() {
	ticker := time.NewTicker(time.Second / time.Duration(s.tickRate))
	defer ticker.Stop()
	dt := 1.0 / float64(s.tickRate)

	for range ticker.C {
		ses := s.session()
		ses.race.Tick(dt)
		s.stats.addTick()

		if ses.race.Paused() {
			continue
		}

		grabs := ses.scanner.Scan(vehiclePoints(ses.race.Positions()), ses.race.SimTime())
		if len(grabs) > 0 {
			events := make([]types.GameplayEvent, 0, len(grabs))
			for _, g := range grabs {
				ses.race.AddNitroRefill(g.VehicleID, g.Amount)
				events = append(events, types.GameplayEvent{
					Type:      "pickup",
					VehicleID: g.VehicleID,
					Position:  types.FromMgl(g.Position),
				})
			}
			ses.race.AppendEvents(events)
		}

		ses.rig.AddTrauma(ses.race.TakeTrauma(ses.race.PlayerID()))
		if tel, ok := ses.race.VehicleTelemetry(ses.race.PlayerID()); ok {
			pose := ses.rig.Update(tel, dt)
			s.poseMu.Lock()
			s.lastPose = pose
			s.poseMu.Unlock()
		}

		s.maybeRotate(ses)
	}
}

// maybeRotate swaps in the next planned race once the finished race has been
// on display for the hold period.
func (s *server) maybeRotate(ses *session) {
	finished, winner := ses.race.Finished()
	if !finished {
		return
	}

	s.sesMu.Lock()
	if s.holdUntil.IsZero() {
		s.holdUntil = time.Now().Add(time.Duration(s.holdSec) * time.Second)
		s.sesMu.Unlock()
		s.log.Printf("race finished race=%s winner=%s, rotating in %ds", ses.plan.RaceID, winner, s.holdSec)
		return
	}
	if time.Now().Before(s.holdUntil) {
		s.sesMu.Unlock()
		return
	}

	plan := s.rot.Next()
	s.ses = newSession(plan)
	s.holdUntil = time.Time{}
	next := s.ses
	s.sesMu.Unlock()

	s.stats.addRace()
	s.log.Printf("rotation advanced race=%s seed=%d laps=%d grid=%d requested_by=%s",
		plan.RaceID, plan.Seed, plan.Laps, plan.GridSize, plan.RequestedBy)
	s.broadcast(trackEnvelope(next))
}

func (s *server) runReplicationLoop() {
	ticker := time.NewTicker(time.Second / time.Duration(s.repRate))
	defer ticker.Stop()

	for range ticker.C {
		ses := s.session()
		events := ses.race.DrainEvents()
		s.stats.ingestEvents(events)

		snap := ses.race.Snapshot()
		snap.Events = events

		s.poseMu.RLock()
		pose := s.lastPose
		s.poseMu.RUnlock()

		env := types.ServerEnvelope{
			Type:     "state",
			Race:     &snap,
			Camera:   &pose,
			ServerMS: time.Now().UTC().UnixMilli(),
		}
		payload, err := json.Marshal(env)
		if err != nil {
			s.log.Printf("marshal state failed: %v", err)
			continue
		}

		s.mu.RLock()
		for _, c := range s.clients {
			select {
			case c.send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
		s.stats.addSnapshot()
	}
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	ses := s.session()
	snap := ses.race.Snapshot()

	s.mu.RLock()
	clients := len(s.clients)
	driver := s.driverID
	s.mu.RUnlock()

	sum := s.stats.summary()
	next, hasNext := s.rot.Peek()

	resp := map[string]interface{}{
		"race_id":          snap.RaceID,
		"seed":             snap.Seed,
		"theme":            snap.Theme,
		"tick":             snap.Tick,
		"sim_time_sec":     snap.SimTimeSec,
		"finished":         snap.Finished,
		"winner_id":        snap.WinnerID,
		"vehicles":         len(snap.Vehicles),
		"clients":          clients,
		"driver":           driver,
		"races_run":        sum.Races,
		"ticks_total":      sum.Ticks,
		"snapshots_total":  sum.Snapshots,
		"events_total":     sum.EventsTotal,
		"events_by_type":   sum.ByType,
		"recent_events":    sum.Recent,
		"rotation_pending": s.rot.Pending(),
	}
	if hasNext {
		resp["rotation_next"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	sum := s.stats.summary()

	s.mu.RLock()
	clients := len(s.clients)
	s.mu.RUnlock()

	_, _ = fmt.Fprintln(w, "# HELP driftline_ticks_total Simulation ticks advanced")
	_, _ = fmt.Fprintln(w, "# TYPE driftline_ticks_total counter")
	_, _ = fmt.Fprintf(w, "driftline_ticks_total %d\n", sum.Ticks)
	_, _ = fmt.Fprintln(w, "# HELP driftline_snapshots_total State snapshots replicated")
	_, _ = fmt.Fprintln(w, "# TYPE driftline_snapshots_total counter")
	_, _ = fmt.Fprintf(w, "driftline_snapshots_total %d\n", sum.Snapshots)
	_, _ = fmt.Fprintln(w, "# HELP driftline_races_total Races hosted since boot")
	_, _ = fmt.Fprintln(w, "# TYPE driftline_races_total counter")
	_, _ = fmt.Fprintf(w, "driftline_races_total %d\n", sum.Races)
	_, _ = fmt.Fprintln(w, "# HELP driftline_events_total Gameplay events emitted")
	_, _ = fmt.Fprintln(w, "# TYPE driftline_events_total counter")
	_, _ = fmt.Fprintf(w, "driftline_events_total %d\n", sum.EventsTotal)
	for typ, count := range sum.ByType {
		_, _ = fmt.Fprintf(w, "driftline_events_by_type{event_type=%q} %d\n", typ, count)
	}
	_, _ = fmt.Fprintln(w, "# HELP driftline_clients Connected websocket clients")
	_, _ = fmt.Fprintln(w, "# TYPE driftline_clients gauge")
	_, _ = fmt.Fprintf(w, "driftline_clients %d\n", clients)
}

func (s *server) handleRotation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req types.RotationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
			return
		}
		plan, queued := s.rot.Submit(req)
		status := http.StatusAccepted
		if !queued {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]interface{}{
			"queued": queued,
			"plan":   plan,
		})
	case http.MethodGet:
		resp := map[string]interface{}{"pending": s.rot.Pending()}
		if next, ok := s.rot.Peek(); ok {
			resp["next"] = next
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	}
}

func vehiclePoints(points []simulation.VehiclePoint) []pickups.VehiclePos {
	out := make([]pickups.VehiclePos, 0, len(points))
	for _, p := range points {
		out = append(out, pickups.VehiclePos{ID: p.ID, Position: p.Position, Wrecked: p.Wrecked})
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvRate reads a per-second loop rate, floored at 1 so the tickers always
// get a positive interval.
func getEnvRate(key string, fallback int) int {
	n := getEnvInt(key, fallback)
	if n < 1 {
		return 1
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
