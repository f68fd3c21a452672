package event

import (
	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/vmath"
)

// Moved is raised by the movement phase whenever an entity's transform
// changes. Position is advisory: traversal re-reads the live transform when
// it processes the notification, so only the identity of the moved entity
// matters for correctness.
type Moved struct {
	Entity   ecs.EntityID
	Position vmath.Vec2 // map-space position at the time of the move
}

// ChangedGrid is published synchronously after an entity has been reparented
// between map and grid (or grid and grid). Old or New is GridNone for the
// map side of a transition.
type ChangedGrid struct {
	Entity  ecs.EntityID
	OldGrid component.GridID
	NewGrid component.GridID
}

// EntityDestroyed is emitted (deferred, readable next tick) when the cleanup
// phase destroys an entity.
type EntityDestroyed struct {
	Entity ecs.EntityID
}
