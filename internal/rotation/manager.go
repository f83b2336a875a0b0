// Package rotation queues the upcoming race plans for a server. Operators
// push plans over the admin endpoint; when the queue runs dry the manager
// synthesizes one, so the server always has a next race to start.
package rotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"driftline/internal/shared/types"
	"driftline/internal/simulation"
)

// Defaults fill the fields a rotation request leaves at zero.
type Defaults struct {
	Laps     int
	GridSize int
}

// Manager provides in-memory race rotation for a single server process.
type Manager struct {
	mu       sync.Mutex
	upcoming []types.RacePlan
	defaults Defaults
	seq      uint64
}

func NewManager(d Defaults) *Manager {
	if d.Laps < 1 {
		d.Laps = 3
	}
	if d.GridSize < 1 {
		d.GridSize = 6
	}
	return &Manager{defaults: d}
}

func nextID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UTC().UnixNano())
}

// Submit queues a plan built from the request. A request whose seed is
// already waiting is not queued twice; the existing plan comes back and the
// second return reports false.
func (m *Manager) Submit(req types.RotationRequest) (types.RacePlan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.upcoming {
		if p.Seed == req.Seed {
			return p, false
		}
	}

	plan := m.planFromRequest(req)
	m.upcoming = append(m.upcoming, plan)
	return plan, true
}

// Next pops the head of the queue, synthesizing a plan when it is empty.
// It never blocks and never returns a zero plan.
func (m *Manager) Next() types.RacePlan {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.upcoming) == 0 {
		return m.synthesizeLocked()
	}
	plan := m.upcoming[0]
	m.upcoming = m.upcoming[1:]
	return plan
}

// Peek reports the head of the queue without consuming it.
func (m *Manager) Peek() (types.RacePlan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.upcoming) == 0 {
		return types.RacePlan{}, false
	}
	return m.upcoming[0], true
}

// Pending is the number of queued plans.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upcoming)
}

// Run keeps the queue topped with at least one plan so Peek always has
// something to show between operator submissions.
func (m *Manager) Run(ctx context.Context, cadence time.Duration) {
	if cadence <= 0 {
		cadence = time.Second
	}
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			if len(m.upcoming) == 0 {
				m.upcoming = append(m.upcoming, m.synthesizeLocked())
			}
			m.mu.Unlock()
		}
	}
}

func (m *Manager) planFromRequest(req types.RotationRequest) types.RacePlan {
	laps := req.Laps
	if laps < 1 {
		laps = m.defaults.Laps
	}
	if laps > simulation.MaxTotalLaps {
		laps = simulation.MaxTotalLaps
	}
	grid := req.GridSize
	if grid < 1 {
		grid = m.defaults.GridSize
	}
	if grid > simulation.MaxGridSize {
		grid = simulation.MaxGridSize
	}
	requestedBy := req.RequestedBy
	if requestedBy == "" {
		requestedBy = "operator"
	}
	return types.RacePlan{
		RaceID:      nextID("race"),
		Seed:        req.Seed,
		Laps:        laps,
		GridSize:    grid,
		RequestedBy: requestedBy,
		CreatedAt:   time.Now().UTC(),
	}
}

func (m *Manager) synthesizeLocked() types.RacePlan {
	m.seq++
	return types.RacePlan{
		RaceID:      nextID("race"),
		Seed:        time.Now().UTC().UnixNano() + int64(m.seq),
		Laps:        m.defaults.Laps,
		GridSize:    m.defaults.GridSize,
		RequestedBy: "auto",
		CreatedAt:   time.Now().UTC(),
	}
}
