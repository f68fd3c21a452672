package system

import (
	"time"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/core/event"
	coresys "github.com/driftsim/server/internal/core/system"
	"github.com/driftsim/server/internal/vmath"
	"github.com/driftsim/server/internal/world"
	"go.uber.org/zap"
)

// MovementSystem integrates body velocities into transforms and raises a
// Moved notification for every entity it touched. Phase 2 (Update). It is the
// movement event source for traversal: reparenting never happens here.
type MovementSystem struct {
	world *world.State
	bus   *event.Bus
	log   *zap.Logger
}

func NewMovementSystem(ws *world.State, bus *event.Bus, log *zap.Logger) *MovementSystem {
	return &MovementSystem{world: ws, bus: bus, log: log}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(dt time.Duration) {
	ws := s.world
	step := dt.Seconds()

	ecs.Each3(ws.Transforms(), ws.Physics(), ws.Metadata(),
		func(id ecs.EntityID, tr *component.Transform, body *component.Physics, meta *component.Metadata) {
			if tr.Anchored || meta.InContainer || ws.Terminating(id) {
				return
			}
			if body.Velocity == (vmath.Vec2{}) {
				return
			}
			if err := ws.Translate(id, body.Velocity.Scale(step)); err != nil {
				s.log.Warn("movement: translate failed",
					zap.Uint64("entity", uint64(id)),
					zap.Error(err),
				)
				return
			}
			_, pos, err := ws.MapPosition(id)
			if err != nil {
				s.log.Warn("movement: position unresolved after translate",
					zap.Uint64("entity", uint64(id)),
					zap.Error(err),
				)
				return
			}
			event.Publish(s.bus, event.Moved{Entity: id, Position: pos})
		})
}
