package system

import (
	"time"

	"github.com/driftsim/server/internal/core/event"
	coresys "github.com/driftsim/server/internal/core/system"
	"github.com/driftsim/server/internal/world"
	"go.uber.org/zap"
)

// StatsSystem logs tick metrics and sweeps hierarchy invariants at a fixed
// interval. Phase 4 (Output) — it runs after traversal, so grid membership is
// current when it reads. Invariant violations are defect signals: logged and
// tolerated, never fatal.
type StatsSystem struct {
	world    *world.State
	log      *zap.Logger
	interval int
	ticks    int

	crossings int // grid changes since last report
}

func NewStatsSystem(ws *world.State, bus *event.Bus, interval int, log *zap.Logger) *StatsSystem {
	if interval <= 0 {
		interval = 150
	}
	s := &StatsSystem{world: ws, log: log, interval: interval}
	event.Subscribe(bus, func(event.ChangedGrid) {
		s.crossings++
	})
	return s
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *StatsSystem) Update(_ time.Duration) {
	s.ticks++
	if s.ticks < s.interval {
		return
	}
	s.ticks = 0

	for _, err := range s.world.CheckInvariants() {
		s.log.Error("hierarchy invariant violated", zap.Error(err))
	}

	s.log.Info("world stats",
		zap.Int("entities", s.world.ECS().Pool().Count()),
		zap.Int("maps", s.world.MapCount()),
		zap.Int("grids", s.world.GridCount()),
		zap.Int("stores", s.world.ECS().Registry().StoreCount()),
		zap.Int("grid_crossings", s.crossings),
	)
	s.crossings = 0
}
