package system

import (
	"time"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/core/event"
	coresys "github.com/driftsim/server/internal/core/system"
	"github.com/driftsim/server/internal/world"
	"go.uber.org/zap"
)

// TraversalSystem detects entities crossing between grids, or off all grids
// onto the open map, and reparents them accordingly. Phase 3 (PostUpdate):
// runs after movement has committed final positions and before anything that
// depends on grid membership being current.
//
// Move notifications raised during the update phase are only buffered here;
// acting on them mid-phase could invalidate iteration state or double-apply
// motion. The buffer is drained once per tick, deduplicated per entity, and
// the live transform is re-read at resolution time — the event's position
// payload is advisory.
type TraversalSystem struct {
	world *world.State
	bus   *event.Bus
	log   *zap.Logger

	// queue is drained last-in-first-processed; order is irrelevant to
	// correctness since only final transform state is read. Both containers
	// are reused across ticks to avoid per-tick allocation.
	queue   []ecs.EntityID
	handled map[ecs.EntityID]struct{}
}

func NewTraversalSystem(ws *world.State, bus *event.Bus, log *zap.Logger) *TraversalSystem {
	t := &TraversalSystem{
		world:   ws,
		bus:     bus,
		log:     log,
		queue:   make([]ecs.EntityID, 0, 256),
		handled: make(map[ecs.EntityID]struct{}, 256),
	}
	event.Subscribe(bus, t.onMoved)
	return t
}

func (t *TraversalSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// onMoved buffers a movement notification. Many per entity per tick is fine.
func (t *TraversalSystem) onMoved(ev event.Moved) {
	t.queue = append(t.queue, ev.Entity)
}

// Update drains the buffer and resolves each distinct entity exactly once.
// Running again in the same tick with no new events is a no-op.
func (t *TraversalSystem) Update(_ time.Duration) {
	for len(t.queue) > 0 {
		id := t.queue[len(t.queue)-1]
		t.queue = t.queue[:len(t.queue)-1]
		if _, done := t.handled[id]; done {
			continue
		}
		t.handled[id] = struct{}{}
		t.resolve(id)
	}
	clear(t.handled)
}

// resolve decides the correct spatial parent for one entity and applies the
// change. Skippable preconditions are steady-state, not errors. A failure
// resolving one entity never aborts the remaining queued entities.
func (t *TraversalSystem) resolve(id ecs.EntityID) {
	ws := t.world

	if !ws.Alive(id) || ws.Terminating(id) {
		return
	}
	if m, ok := ws.Meta(id); ok && m.InContainer {
		return
	}
	if ws.IsMap(id) || ws.IsGrid(id) {
		return
	}
	tr, ok := ws.Transform(id)
	if !ok || tr.Anchored {
		return
	}

	// Traversal only applies to entities attached directly to the map/grid
	// layer of the hierarchy.
	var mapID component.MapID
	switch tr.Parent.Kind {
	case component.ParentMap:
		mapID = tr.Parent.Map
	case component.ParentGrid:
		g := ws.GridByID(tr.Parent.Grid)
		if g == nil {
			t.log.Error("traversal: transform references unknown grid",
				zap.Uint64("entity", uint64(id)),
				zap.Uint32("grid", uint32(tr.Parent.Grid)),
			)
			return
		}
		mapID = g.Map
	default:
		return
	}

	_, pos, err := ws.MapPosition(id)
	if err != nil {
		t.log.Error("traversal: cannot resolve map position",
			zap.Uint64("entity", uint64(id)),
			zap.Error(err),
		)
		return
	}

	mask := component.LayersAll
	if body, ok := ws.Physics().Get(id); ok {
		mask = body.Layers
	}

	newGrid, found := ws.Index().GridAt(mapID, pos, mask)
	oldGrid := tr.Grid

	switch {
	case found && newGrid != oldGrid:
		if err := ws.ReparentToGrid(id, newGrid); err != nil {
			t.log.Error("traversal: reparent to grid failed",
				zap.Uint64("entity", uint64(id)),
				zap.Uint32("grid", uint32(newGrid)),
				zap.Error(err),
			)
			return
		}
		event.Publish(t.bus, event.ChangedGrid{Entity: id, OldGrid: oldGrid, NewGrid: newGrid})

	case !found && oldGrid != component.GridNone:
		// The map root going missing here means the hierarchy is already
		// inconsistent — surface it loudly, abort this entity only.
		if err := ws.ReparentToMap(id, mapID); err != nil {
			t.log.Error("traversal: reparent to map failed",
				zap.Uint64("entity", uint64(id)),
				zap.Int16("map", int16(mapID)),
				zap.Error(err),
			)
			return
		}
		event.Publish(t.bus, event.ChangedGrid{Entity: id, OldGrid: oldGrid, NewGrid: component.GridNone})
	}
	// No containing grid and none cached: nothing to do.
}

// Pending returns the number of buffered, not-yet-drained notifications.
func (t *TraversalSystem) Pending() int {
	return len(t.queue)
}
