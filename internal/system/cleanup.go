package system

import (
	"time"

	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/core/event"
	coresys "github.com/driftsim/server/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end and
// announces each destruction on the deferred event path. Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	bus   *event.Bus
}

func NewCleanupSystem(world *ecs.World, bus *event.Bus) *CleanupSystem {
	return &CleanupSystem{world: world, bus: bus}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, id := range s.world.FlushDestroyQueue() {
		event.Emit(s.bus, event.EntityDestroyed{Entity: id})
	}
}
