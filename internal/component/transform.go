package component

import (
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/vmath"
)

// MapID identifies a top-level map. Maps host grids plus the entities not
// standing on any grid.
type MapID int16

// GridID identifies a grid within the world. GridNone means "directly on the
// map, not on any grid".
type GridID uint32

const GridNone GridID = 0

// ParentKind tags the spatial parent reference of a transform.
type ParentKind uint8

const (
	ParentNone ParentKind = iota
	ParentMap
	ParentGrid
	ParentEntity
)

// ParentRef is a closed variant over the three legal spatial parents.
// Exactly the field selected by Kind is meaningful; hierarchy code switches
// on Kind rather than type-probing.
type ParentRef struct {
	Kind   ParentKind
	Map    MapID
	Grid   GridID
	Entity ecs.EntityID
}

func MapParent(id MapID) ParentRef   { return ParentRef{Kind: ParentMap, Map: id} }
func GridParent(id GridID) ParentRef { return ParentRef{Kind: ParentGrid, Grid: id} }
func EntityParent(id ecs.EntityID) ParentRef {
	return ParentRef{Kind: ParentEntity, Entity: id}
}

// Transform stores an entity's place in the spatial hierarchy.
// Pure data, zero methods — all mutations happen in world.State and Systems.
type Transform struct {
	Parent ParentRef
	Local  vmath.Vec2 // position in the parent's coordinate frame

	// Anchored locks the entity to its current grid: movement integration and
	// grid traversal both skip it while set.
	Anchored bool

	// Grid caches the grid the entity currently resolves to, GridNone when
	// parented straight to a map. Kept in sync by reparent operations.
	Grid GridID
}
