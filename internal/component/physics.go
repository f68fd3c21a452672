package component

import "github.com/driftsim/server/internal/vmath"

// Physics carries the minimal body state the simulation integrates each tick.
// Velocity is in map-space units per second regardless of the entity's parent
// frame.
type Physics struct {
	Velocity vmath.Vec2

	// Layers is the collision layer mask this body tests against. A grid is
	// only a traversal candidate for this body when the grid's layers
	// intersect this mask.
	Layers uint32
}

// LayersAll matches every grid layer. Entities without a Physics component
// behave as if they carried this mask.
const LayersAll uint32 = ^uint32(0)
