package main

import (
	"sync"

	"driftline/internal/shared/types"
)

const recentEventCap = 64

// statsStore keeps the operational counters behind /stats and /metrics.
type statsStore struct {
	mu          sync.RWMutex
	ticks       int64
	snapshots   int64
	races       int64
	eventsTotal int64
	byType      map[string]int64
	recent      []types.GameplayEvent
}

type statsSummary struct {
	Ticks       int64
	Snapshots   int64
	Races       int64
	EventsTotal int64
	ByType      map[string]int64
	Recent      []types.GameplayEvent
}

func newStatsStore() *statsStore {
	return &statsStore{
		byType: make(map[string]int64),
		recent: make([]types.GameplayEvent, 0, recentEventCap),
	}
}

func (s *statsStore) addTick() {
	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()
}

func (s *statsStore) addSnapshot() {
	s.mu.Lock()
	s.snapshots++
	s.mu.Unlock()
}

func (s *statsStore) addRace() {
	s.mu.Lock()
	s.races++
	s.mu.Unlock()
}

func (s *statsStore) ingestEvents(events []types.GameplayEvent) {
	if len(events) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsTotal += int64(len(events))
	for _, ev := range events {
		s.byType[ev.Type]++
	}
	s.recent = append(s.recent, events...)
	if len(s.recent) > recentEventCap {
		s.recent = s.recent[len(s.recent)-recentEventCap:]
	}
}

func (s *statsStore) summary() statsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byType := make(map[string]int64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}
	recent := make([]types.GameplayEvent, len(s.recent))
	copy(recent, s.recent)
	return statsSummary{
		Ticks:       s.ticks,
		Snapshots:   s.snapshots,
		Races:       s.races,
		EventsTotal: s.eventsTotal,
		ByType:      byType,
		Recent:      recent,
	}
}
