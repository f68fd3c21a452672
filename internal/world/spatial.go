package world

import (
	"math"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/vmath"
)

// GridIndex answers "which grid contains this map-space point". It keeps a
// cell-hash broadphase over grid world bounds: a grid is registered in every
// cell its enclosing AABB overlaps, so a point query touches exactly one cell
// before exact containment tests. Accessed only from the game loop goroutine —
// no locks.

const defaultCellSize = 32.0

type cellKey struct {
	mapID component.MapID
	cx    int32
	cy    int32
}

type cellSpan struct {
	mapID component.MapID
	minX  int32
	minY  int32
	maxX  int32
	maxY  int32
}

type GridIndex struct {
	cellSize float64
	cells    map[cellKey][]component.GridID
	grids    map[component.GridID]*Grid

	// spans records the cell range each grid was inserted under, so removal
	// stays correct even after the grid's frame has been mutated.
	spans map[component.GridID]cellSpan
}

func NewGridIndex(cellSize float64) *GridIndex {
	if cellSize <= 0 {
		cellSize = defaultCellSize
	}
	return &GridIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey][]component.GridID),
		grids:    make(map[component.GridID]*Grid, 16),
		spans:    make(map[component.GridID]cellSpan, 16),
	}
}

func (x *GridIndex) cellCoord(v float64) int32 {
	return int32(math.Floor(v / x.cellSize))
}

// Insert registers a grid's current world bounds with the index.
func (x *GridIndex) Insert(g *Grid) {
	x.grids[g.ID] = g
	wb := g.WorldBounds()
	span := cellSpan{
		mapID: g.Map,
		minX:  x.cellCoord(wb.Min.X),
		minY:  x.cellCoord(wb.Min.Y),
		maxX:  x.cellCoord(wb.Max.X),
		maxY:  x.cellCoord(wb.Max.Y),
	}
	x.spans[g.ID] = span
	for cx := span.minX; cx <= span.maxX; cx++ {
		for cy := span.minY; cy <= span.maxY; cy++ {
			k := cellKey{mapID: span.mapID, cx: cx, cy: cy}
			x.cells[k] = append(x.cells[k], g.ID)
		}
	}
}

// Remove takes a grid out of the index entirely.
func (x *GridIndex) Remove(id component.GridID) {
	span, ok := x.spans[id]
	if !ok {
		return
	}
	delete(x.grids, id)
	delete(x.spans, id)
	for cx := span.minX; cx <= span.maxX; cx++ {
		for cy := span.minY; cy <= span.maxY; cy++ {
			k := cellKey{mapID: span.mapID, cx: cx, cy: cy}
			cell := x.cells[k]
			for i, gid := range cell {
				if gid == id {
					x.cells[k] = append(cell[:i], cell[i+1:]...)
					break
				}
			}
			if len(x.cells[k]) == 0 {
				delete(x.cells, k)
			}
		}
	}
}

// Refresh re-registers a grid after its origin, rotation, or bounds changed.
func (x *GridIndex) Refresh(g *Grid) {
	x.Remove(g.ID)
	x.Insert(g)
}

// GridAt returns the grid on the given map whose bounds contain the point,
// considering only grids whose layers intersect mask. When multiple grids
// overlap at the point, the smallest-area grid wins and ties break toward the
// lowest id, so the result is deterministic for any candidate set.
func (x *GridIndex) GridAt(mapID component.MapID, p vmath.Vec2, mask uint32) (component.GridID, bool) {
	k := cellKey{mapID: mapID, cx: x.cellCoord(p.X), cy: x.cellCoord(p.Y)}

	var best *Grid
	for _, gid := range x.cells[k] {
		g := x.grids[gid]
		if g == nil || g.Layers&mask == 0 {
			continue
		}
		if !g.ContainsMapPoint(p) {
			continue
		}
		if best == nil {
			best = g
			continue
		}
		ba, ga := best.Bounds.Area(), g.Bounds.Area()
		if ga < ba || (ga == ba && g.ID < best.ID) {
			best = g
		}
	}
	if best == nil {
		return component.GridNone, false
	}
	return best.ID, true
}

// Count returns the number of registered grids.
func (x *GridIndex) Count() int {
	return len(x.grids)
}
