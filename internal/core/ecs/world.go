package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed by CleanupSystem at tick
// end. Entities queued for destruction are still alive until the flush but are
// marked terminating, so in-flight work scheduled earlier in the tick can skip
// them.
type World struct {
	pool        *EntityPool
	registry    *Registry
	terminating map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		pool:        NewEntityPool(),
		registry:    NewRegistry(),
		terminating: make(map[EntityID]struct{}, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup. The entity is
// considered terminating from this point on.
func (w *World) MarkForDestruction(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	w.terminating[id] = struct{}{}
}

// Terminating reports whether the entity is queued for destruction this tick.
func (w *World) Terminating(id EntityID) bool {
	_, ok := w.terminating[id]
	return ok
}

// FlushDestroyQueue destroys all queued entities, clears their components, and
// returns the destroyed ids. Called by CleanupSystem at the end of each tick.
func (w *World) FlushDestroyQueue() []EntityID {
	if len(w.terminating) == 0 {
		return nil
	}
	destroyed := make([]EntityID, 0, len(w.terminating))
	for id := range w.terminating {
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
		destroyed = append(destroyed, id)
	}
	clear(w.terminating)
	return destroyed
}
