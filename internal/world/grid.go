package world

import (
	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/vmath"
)

// Grid is a spatial partition of a map with its own local coordinate frame.
// Origin and Rotation place the local frame in map-space; Bounds is declared
// in local coordinates. Bounds geometry comes from world data — this package
// only consumes it.
type Grid struct {
	ID       component.GridID
	Map      component.MapID
	Name     string
	Origin   vmath.Vec2 // map-space position of the local frame's origin
	Rotation float64    // radians, CCW
	Bounds   vmath.AABB // in local coordinates
	Layers   uint32     // collision layers this grid occupies

	// Entity is the grid's node in the spatial hierarchy. Grids are entities
	// too; traversal skips them explicitly.
	Entity ecs.EntityID
}

// ToMap converts a point in the grid's local frame to map-space.
func (g *Grid) ToMap(local vmath.Vec2) vmath.Vec2 {
	return local.Rotate(g.Rotation).Add(g.Origin)
}

// ToLocal converts a map-space point into the grid's local frame.
func (g *Grid) ToLocal(mapPoint vmath.Vec2) vmath.Vec2 {
	return mapPoint.Sub(g.Origin).Rotate(-g.Rotation)
}

// ContainsMapPoint checks whether a map-space point lies within the grid's
// bounds. The test happens in local coordinates so rotated grids are exact,
// not approximated by their enclosing box.
func (g *Grid) ContainsMapPoint(mapPoint vmath.Vec2) bool {
	return g.Bounds.Contains(g.ToLocal(mapPoint))
}

// WorldBounds returns the map-space AABB enclosing the grid's (possibly
// rotated) local bounds. Used for broadphase cell insertion only — exact
// containment always goes through ContainsMapPoint.
func (g *Grid) WorldBounds() vmath.AABB {
	c := g.Bounds.Corners()
	return vmath.Enclosing(
		g.ToMap(c[0]),
		g.ToMap(c[1]),
		g.ToMap(c[2]),
		g.ToMap(c[3]),
	)
}

// Map is a top-level spatial container hosting grids and the entities not
// standing on any grid.
type Map struct {
	ID   component.MapID
	Name string

	// Entity is the map's root node in the spatial hierarchy: entities leaving
	// all grids are reparented to it.
	Entity ecs.EntityID
}
