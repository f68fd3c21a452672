package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityPoolGenerations(t *testing.T) {
	p := NewEntityPool()

	a := p.Create()
	require.True(t, p.Alive(a))
	require.Equal(t, uint32(0), a.Generation())

	p.Destroy(a)
	require.False(t, p.Alive(a))

	// Slot reuse bumps the generation: the stale id must stay dead.
	b := p.Create()
	require.Equal(t, a.Index(), b.Index())
	require.Equal(t, uint32(1), b.Generation())
	require.True(t, p.Alive(b))
	require.False(t, p.Alive(a))
}

func TestEntityPoolStaleDestroy(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	p.Destroy(a)
	b := p.Create()

	// Destroying a stale id twice must not kill the recycled slot.
	p.Destroy(a)
	require.True(t, p.Alive(b))
	require.Equal(t, 1, p.Count())
}

type health struct{ HP int }
type tag struct{}

func TestWorldDestroyFlow(t *testing.T) {
	w := NewWorld()
	healths := NewStore[health]()
	tags := NewStore[tag]()
	w.Registry().Register(healths)
	w.Registry().Register(tags)

	a := w.CreateEntity()
	b := w.CreateEntity()
	healths.Set(a, &health{HP: 10})
	healths.Set(b, &health{HP: 20})
	tags.Set(a, &tag{})

	w.MarkForDestruction(a)
	require.True(t, w.Alive(a), "terminating entities stay alive until the flush")
	require.True(t, w.Terminating(a))
	require.False(t, w.Terminating(b))

	destroyed := w.FlushDestroyQueue()
	require.Equal(t, []EntityID{a}, destroyed)
	require.False(t, w.Alive(a))
	require.False(t, w.Terminating(a))
	require.False(t, healths.Has(a), "registry clears every store on flush")
	require.False(t, tags.Has(a))
	require.True(t, healths.Has(b))

	require.Nil(t, w.FlushDestroyQueue(), "empty queue flushes to nothing")
}

func TestMarkForDestructionDeadEntity(t *testing.T) {
	w := NewWorld()
	a := w.CreateEntity()
	w.MarkForDestruction(a)
	w.FlushDestroyQueue()

	w.MarkForDestruction(a)
	require.False(t, w.Terminating(a))
	require.Nil(t, w.FlushDestroyQueue())
}

func TestQueryIteratesIntersection(t *testing.T) {
	w := NewWorld()
	healths := NewStore[health]()
	tags := NewStore[tag]()

	a := w.CreateEntity()
	b := w.CreateEntity()
	c := w.CreateEntity()
	healths.Set(a, &health{HP: 1})
	healths.Set(b, &health{HP: 2})
	healths.Set(c, &health{HP: 3})
	tags.Set(b, &tag{})

	seen := map[EntityID]int{}
	Each2(healths, tags, func(id EntityID, h *health, _ *tag) {
		seen[id] = h.HP
	})
	require.Equal(t, map[EntityID]int{b: 2}, seen)
}
