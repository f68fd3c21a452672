package world

import (
	"errors"
	"fmt"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/vmath"
	"go.uber.org/zap"
)

var (
	ErrUnknownMap  = errors.New("unknown map")
	ErrUnknownGrid = errors.New("unknown grid")
	ErrNoTransform = errors.New("entity has no transform")
	ErrBrokenChain = errors.New("broken parent chain")
)

// maxParentDepth bounds parent-chain walks so a corrupted (cyclic) hierarchy
// degrades into a loud per-entity error instead of hanging the tick.
const maxParentDepth = 64

// State owns the spatial hierarchy: maps, grids, per-entity transforms, and
// the grid index. It is the sole writer of grid parentage. Accessed only from
// the game loop goroutine.
type State struct {
	ecs *ecs.World
	log *zap.Logger

	maps  map[component.MapID]*Map
	grids map[component.GridID]*Grid

	// Reverse lookups: which entities are hierarchy nodes themselves.
	mapEntities  map[ecs.EntityID]component.MapID
	gridEntities map[ecs.EntityID]component.GridID

	index *GridIndex

	transforms *ecs.Store[component.Transform]
	physics    *ecs.Store[component.Physics]
	meta       *ecs.Store[component.Metadata]
}

func NewState(w *ecs.World, cellSize float64, log *zap.Logger) *State {
	s := &State{
		ecs:          w,
		log:          log,
		maps:         make(map[component.MapID]*Map, 4),
		grids:        make(map[component.GridID]*Grid, 16),
		mapEntities:  make(map[ecs.EntityID]component.MapID, 4),
		gridEntities: make(map[ecs.EntityID]component.GridID, 16),
		index:        NewGridIndex(cellSize),
		transforms:   ecs.NewStore[component.Transform](),
		physics:      ecs.NewStore[component.Physics](),
		meta:         ecs.NewStore[component.Metadata](),
	}
	w.Registry().Register(s.transforms)
	w.Registry().Register(s.physics)
	w.Registry().Register(s.meta)
	return s
}

func (s *State) ECS() *ecs.World   { return s.ecs }
func (s *State) Index() *GridIndex { return s.index }

func (s *State) Transforms() *ecs.Store[component.Transform] { return s.transforms }
func (s *State) Physics() *ecs.Store[component.Physics]      { return s.physics }
func (s *State) Metadata() *ecs.Store[component.Metadata]    { return s.meta }

// ── Maps and grids ────────────────────────────────────────────────

// AddMap registers a map and spawns its root entity.
func (s *State) AddMap(id component.MapID, name string) (*Map, error) {
	if _, dup := s.maps[id]; dup {
		return nil, fmt.Errorf("map %d already registered", id)
	}
	root := s.ecs.CreateEntity()
	s.meta.Set(root, &component.Metadata{Name: name})
	m := &Map{ID: id, Name: name, Entity: root}
	s.maps[id] = m
	s.mapEntities[root] = id
	return m, nil
}

// AddGrid registers a grid on an existing map, spawns the grid's hierarchy
// entity, and inserts the grid into the index. The caller supplies id, origin,
// rotation, bounds, and layers; Entity is assigned here.
func (s *State) AddGrid(g *Grid) error {
	if g.ID == component.GridNone {
		return fmt.Errorf("grid id 0 is reserved")
	}
	if _, dup := s.grids[g.ID]; dup {
		return fmt.Errorf("grid %d already registered", g.ID)
	}
	if _, ok := s.maps[g.Map]; !ok {
		return fmt.Errorf("grid %d: %w: %d", g.ID, ErrUnknownMap, g.Map)
	}
	if g.Layers == 0 {
		g.Layers = component.LayersAll
	}
	ent := s.ecs.CreateEntity()
	s.meta.Set(ent, &component.Metadata{Name: g.Name})
	s.transforms.Set(ent, &component.Transform{
		Parent: component.MapParent(g.Map),
		Local:  g.Origin,
		Grid:   g.ID,
	})
	g.Entity = ent
	s.grids[g.ID] = g
	s.gridEntities[ent] = g.ID
	s.index.Insert(g)
	return nil
}

func (s *State) MapByID(id component.MapID) *Map      { return s.maps[id] }
func (s *State) GridByID(id component.GridID) *Grid   { return s.grids[id] }
func (s *State) MapCount() int                        { return len(s.maps) }
func (s *State) GridCount() int                       { return len(s.grids) }
func (s *State) IsMap(id ecs.EntityID) bool           { _, ok := s.mapEntities[id]; return ok }
func (s *State) IsGrid(id ecs.EntityID) bool          { _, ok := s.gridEntities[id]; return ok }

// MapRoot resolves a map's root hierarchy entity. Failing here means the
// hierarchy is already inconsistent: callers must surface it, not swallow it.
func (s *State) MapRoot(id component.MapID) (ecs.EntityID, error) {
	m, ok := s.maps[id]
	if !ok {
		return 0, fmt.Errorf("map root: %w: %d", ErrUnknownMap, id)
	}
	if !s.ecs.Alive(m.Entity) {
		return 0, fmt.Errorf("map root: map %d root entity is dead", id)
	}
	return m.Entity, nil
}

// ── Entities ──────────────────────────────────────────────────────

// Spawn creates an entity parented directly to the given map.
func (s *State) Spawn(name string, mapID component.MapID, pos vmath.Vec2) (ecs.EntityID, error) {
	if _, ok := s.maps[mapID]; !ok {
		return 0, fmt.Errorf("spawn %q: %w: %d", name, ErrUnknownMap, mapID)
	}
	id := s.ecs.CreateEntity()
	s.meta.Set(id, &component.Metadata{Name: name})
	s.transforms.Set(id, &component.Transform{
		Parent: component.MapParent(mapID),
		Local:  pos,
		Grid:   component.GridNone,
	})
	return id, nil
}

// Despawn queues an entity for end-of-tick destruction.
func (s *State) Despawn(id ecs.EntityID) {
	s.ecs.MarkForDestruction(id)
}

func (s *State) Alive(id ecs.EntityID) bool       { return s.ecs.Alive(id) }
func (s *State) Terminating(id ecs.EntityID) bool { return s.ecs.Terminating(id) }

func (s *State) Transform(id ecs.EntityID) (*component.Transform, bool) {
	return s.transforms.Get(id)
}

func (s *State) Meta(id ecs.EntityID) (*component.Metadata, bool) {
	return s.meta.Get(id)
}

// SetVelocity attaches or updates a physics body on the entity.
func (s *State) SetVelocity(id ecs.EntityID, v vmath.Vec2) error {
	if !s.transforms.Has(id) {
		return fmt.Errorf("set velocity: %w", ErrNoTransform)
	}
	if body, ok := s.physics.Get(id); ok {
		body.Velocity = v
		return nil
	}
	s.physics.Set(id, &component.Physics{Velocity: v, Layers: component.LayersAll})
	return nil
}

// SetLayers restricts which grid layers the entity's body tests against.
func (s *State) SetLayers(id ecs.EntityID, mask uint32) {
	if body, ok := s.physics.Get(id); ok {
		body.Layers = mask
		return
	}
	s.physics.Set(id, &component.Physics{Layers: mask})
}

// SetAnchored locks or releases the entity on its current grid.
func (s *State) SetAnchored(id ecs.EntityID, anchored bool) error {
	tr, ok := s.transforms.Get(id)
	if !ok {
		return fmt.Errorf("anchor: %w", ErrNoTransform)
	}
	tr.Anchored = anchored
	return nil
}

// SetContained marks the entity as owned by a container.
func (s *State) SetContained(id ecs.EntityID, contained bool) {
	if m, ok := s.meta.Get(id); ok {
		m.InContainer = contained
		return
	}
	s.meta.Set(id, &component.Metadata{InContainer: contained})
}

// ── Hierarchy resolution ──────────────────────────────────────────

// MapPosition resolves an entity's map identifier and map-space position by
// walking its parent chain. Depth is bounded; a cycle or dangling reference
// comes back as ErrBrokenChain.
func (s *State) MapPosition(id ecs.EntityID) (component.MapID, vmath.Vec2, error) {
	var offset vmath.Vec2
	cur := id
	for depth := 0; depth < maxParentDepth; depth++ {
		tr, ok := s.transforms.Get(cur)
		if !ok {
			return 0, vmath.Vec2{}, fmt.Errorf("entity %d: %w", cur, ErrNoTransform)
		}
		switch tr.Parent.Kind {
		case component.ParentMap:
			return tr.Parent.Map, tr.Local.Add(offset), nil
		case component.ParentGrid:
			g, ok := s.grids[tr.Parent.Grid]
			if !ok {
				return 0, vmath.Vec2{}, fmt.Errorf("entity %d: %w: %d", cur, ErrUnknownGrid, tr.Parent.Grid)
			}
			return g.Map, g.ToMap(tr.Local.Add(offset)), nil
		case component.ParentEntity:
			offset = offset.Add(tr.Local)
			cur = tr.Parent.Entity
		default:
			return 0, vmath.Vec2{}, fmt.Errorf("entity %d: parentless transform: %w", cur, ErrBrokenChain)
		}
	}
	return 0, vmath.Vec2{}, fmt.Errorf("entity %d: parent chain too deep: %w", id, ErrBrokenChain)
}

// Translate moves an entity by a map-space delta, expressed in its parent's
// frame. Rotated grid frames get the inverse rotation applied so the motion
// stays map-space-correct.
func (s *State) Translate(id ecs.EntityID, delta vmath.Vec2) error {
	tr, ok := s.transforms.Get(id)
	if !ok {
		return fmt.Errorf("translate: %w", ErrNoTransform)
	}
	if tr.Parent.Kind == component.ParentGrid {
		if g, ok := s.grids[tr.Parent.Grid]; ok {
			delta = delta.Rotate(-g.Rotation)
		}
	}
	tr.Local = tr.Local.Add(delta)
	return nil
}

// ── Reparenting ───────────────────────────────────────────────────

// ReparentToGrid moves the entity under the given grid's hierarchy node,
// preserving its map-space position, and updates the cached grid id. The
// whole update happens before control returns — observers never see a
// half-written transform.
func (s *State) ReparentToGrid(id ecs.EntityID, gridID component.GridID) error {
	g, ok := s.grids[gridID]
	if !ok {
		return fmt.Errorf("reparent entity %d: %w: %d", id, ErrUnknownGrid, gridID)
	}
	tr, ok := s.transforms.Get(id)
	if !ok {
		return fmt.Errorf("reparent entity %d: %w", id, ErrNoTransform)
	}
	_, mapPos, err := s.MapPosition(id)
	if err != nil {
		return fmt.Errorf("reparent entity %d: %w", id, err)
	}
	tr.Parent = component.GridParent(gridID)
	tr.Local = g.ToLocal(mapPos)
	tr.Grid = gridID
	return nil
}

// ReparentToMap moves the entity onto the map root, preserving its map-space
// position, and clears the cached grid id. Fails when the map's root entity
// cannot be resolved.
func (s *State) ReparentToMap(id ecs.EntityID, mapID component.MapID) error {
	if _, err := s.MapRoot(mapID); err != nil {
		return fmt.Errorf("reparent entity %d: %w", id, err)
	}
	tr, ok := s.transforms.Get(id)
	if !ok {
		return fmt.Errorf("reparent entity %d: %w", id, ErrNoTransform)
	}
	_, mapPos, err := s.MapPosition(id)
	if err != nil {
		return fmt.Errorf("reparent entity %d: %w", id, err)
	}
	tr.Parent = component.MapParent(mapID)
	tr.Local = mapPos
	tr.Grid = component.GridNone
	return nil
}

// ── Invariant checks ──────────────────────────────────────────────

// CheckInvariants sweeps the hierarchy for programming-defect signals:
// anchored entities whose cached grid disagrees with their parent, and parent
// chains that no longer resolve. Violations are returned, not panicked on —
// production tolerates and logs them.
func (s *State) CheckInvariants() []error {
	var errs []error
	s.transforms.Each(func(id ecs.EntityID, tr *component.Transform) {
		if tr.Anchored {
			parentGrid := component.GridNone
			if tr.Parent.Kind == component.ParentGrid {
				parentGrid = tr.Parent.Grid
			}
			if tr.Grid != parentGrid {
				errs = append(errs, fmt.Errorf(
					"entity %d: anchored with cached grid %d but parent grid %d",
					id, tr.Grid, parentGrid))
			}
		}
		if _, _, err := s.MapPosition(id); err != nil {
			errs = append(errs, err)
		}
	})
	return errs
}
