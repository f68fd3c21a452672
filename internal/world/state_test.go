package world

import (
	"math"
	"testing"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/vmath"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestState(t *testing.T) (*State, *ecs.World) {
	t.Helper()
	w := ecs.NewWorld()
	ws := NewState(w, 32, zap.NewNop())
	_, err := ws.AddMap(1, "overworld")
	require.NoError(t, err)
	return ws, w
}

func TestStateMapAndGridNodes(t *testing.T) {
	ws, _ := newTestState(t)

	require.NoError(t, ws.AddGrid(&Grid{
		ID: 1, Map: 1, Name: "a",
		Bounds: vmath.NewAABB(0, 0, 10, 10),
	}))

	m := ws.MapByID(1)
	require.NotNil(t, m)
	require.True(t, ws.IsMap(m.Entity))

	g := ws.GridByID(1)
	require.NotNil(t, g)
	require.True(t, ws.IsGrid(g.Entity))
	require.False(t, ws.IsMap(g.Entity))

	// Grid node's own transform sits on the map layer with its id cached.
	tr, ok := ws.Transform(g.Entity)
	require.True(t, ok)
	require.Equal(t, component.ParentMap, tr.Parent.Kind)
	require.Equal(t, component.GridID(1), tr.Grid)

	root, err := ws.MapRoot(1)
	require.NoError(t, err)
	require.Equal(t, m.Entity, root)

	_, err = ws.MapRoot(42)
	require.ErrorIs(t, err, ErrUnknownMap)
}

func TestStateGridValidation(t *testing.T) {
	ws, _ := newTestState(t)

	require.Error(t, ws.AddGrid(&Grid{ID: 0, Map: 1}))
	require.ErrorIs(t, ws.AddGrid(&Grid{ID: 1, Map: 9}), ErrUnknownMap)

	require.NoError(t, ws.AddGrid(&Grid{ID: 1, Map: 1, Bounds: vmath.NewAABB(0, 0, 1, 1)}))
	require.Error(t, ws.AddGrid(&Grid{ID: 1, Map: 1, Bounds: vmath.NewAABB(0, 0, 1, 1)}))
}

func TestReparentPreservesWorldPosition(t *testing.T) {
	ws, _ := newTestState(t)

	// Rotated grid: origin (20,20), quarter turn CCW.
	require.NoError(t, ws.AddGrid(&Grid{
		ID: 1, Map: 1,
		Origin:   vmath.Vec2{X: 20, Y: 20},
		Rotation: math.Pi / 2,
		Bounds:   vmath.NewAABB(-10, -10, 10, 10),
	}))

	id, err := ws.Spawn("e", 1, vmath.Vec2{X: 22, Y: 25})
	require.NoError(t, err)

	require.NoError(t, ws.ReparentToGrid(id, 1))
	tr, _ := ws.Transform(id)
	require.Equal(t, component.GridID(1), tr.Grid)

	_, pos, err := ws.MapPosition(id)
	require.NoError(t, err)
	require.True(t, pos.ApproxEqual(vmath.Vec2{X: 22, Y: 25}, 1e-9),
		"map position drifted across reparent: %+v", pos)

	require.NoError(t, ws.ReparentToMap(id, 1))
	tr, _ = ws.Transform(id)
	require.Equal(t, component.GridNone, tr.Grid)
	require.Equal(t, component.ParentMap, tr.Parent.Kind)

	_, pos, err = ws.MapPosition(id)
	require.NoError(t, err)
	require.True(t, pos.ApproxEqual(vmath.Vec2{X: 22, Y: 25}, 1e-9))
}

func TestMapPositionThroughEntityChain(t *testing.T) {
	ws, _ := newTestState(t)
	require.NoError(t, ws.AddGrid(&Grid{
		ID: 1, Map: 1,
		Origin: vmath.Vec2{X: 10, Y: 0},
		Bounds: vmath.NewAABB(0, 0, 20, 20),
	}))

	rider, err := ws.Spawn("rider", 1, vmath.Vec2{})
	require.NoError(t, err)
	require.NoError(t, ws.ReparentToGrid(rider, 1))
	tr, _ := ws.Transform(rider)
	tr.Local = vmath.Vec2{X: 5, Y: 5}

	// Child carried by the rider: its map position composes both locals.
	carried, err := ws.Spawn("carried", 1, vmath.Vec2{})
	require.NoError(t, err)
	ctr, _ := ws.Transform(carried)
	ctr.Parent = component.EntityParent(rider)
	ctr.Local = vmath.Vec2{X: 1, Y: 0}

	mapID, pos, err := ws.MapPosition(carried)
	require.NoError(t, err)
	require.Equal(t, component.MapID(1), mapID)
	require.True(t, pos.ApproxEqual(vmath.Vec2{X: 16, Y: 5}, 1e-9))
}

func TestMapPositionBrokenChain(t *testing.T) {
	ws, _ := newTestState(t)

	a, err := ws.Spawn("a", 1, vmath.Vec2{})
	require.NoError(t, err)
	b, err := ws.Spawn("b", 1, vmath.Vec2{})
	require.NoError(t, err)

	// Force a cycle: a → b → a.
	atr, _ := ws.Transform(a)
	btr, _ := ws.Transform(b)
	atr.Parent = component.EntityParent(b)
	btr.Parent = component.EntityParent(a)

	_, _, err = ws.MapPosition(a)
	require.ErrorIs(t, err, ErrBrokenChain)
}

func TestTranslateInRotatedFrame(t *testing.T) {
	ws, _ := newTestState(t)
	require.NoError(t, ws.AddGrid(&Grid{
		ID: 1, Map: 1,
		Origin:   vmath.Vec2{X: 0, Y: 0},
		Rotation: math.Pi / 2,
		Bounds:   vmath.NewAABB(-50, -50, 50, 50),
	}))

	id, err := ws.Spawn("e", 1, vmath.Vec2{X: 3, Y: 4})
	require.NoError(t, err)
	require.NoError(t, ws.ReparentToGrid(id, 1))

	// A map-space +X step must still be a map-space +X step after passing
	// through the grid's rotated frame.
	require.NoError(t, ws.Translate(id, vmath.Vec2{X: 1, Y: 0}))
	_, pos, err := ws.MapPosition(id)
	require.NoError(t, err)
	require.True(t, pos.ApproxEqual(vmath.Vec2{X: 4, Y: 4}, 1e-9), "got %+v", pos)
}

func TestCheckInvariants(t *testing.T) {
	ws, _ := newTestState(t)
	require.NoError(t, ws.AddGrid(&Grid{ID: 1, Map: 1, Bounds: vmath.NewAABB(0, 0, 10, 10)}))

	id, err := ws.Spawn("e", 1, vmath.Vec2{X: 5, Y: 5})
	require.NoError(t, err)
	require.NoError(t, ws.ReparentToGrid(id, 1))
	require.NoError(t, ws.SetAnchored(id, true))
	require.Empty(t, ws.CheckInvariants())

	// Desync the cache behind the hierarchy's back.
	tr, _ := ws.Transform(id)
	tr.Grid = component.GridNone
	errs := ws.CheckInvariants()
	require.NotEmpty(t, errs)
}

func TestDespawnFlow(t *testing.T) {
	ws, w := newTestState(t)

	id, err := ws.Spawn("e", 1, vmath.Vec2{})
	require.NoError(t, err)
	require.True(t, ws.Alive(id))
	require.False(t, ws.Terminating(id))

	ws.Despawn(id)
	require.True(t, ws.Alive(id), "terminating entities stay alive until tick end")
	require.True(t, ws.Terminating(id))

	destroyed := w.FlushDestroyQueue()
	require.Equal(t, []ecs.EntityID{id}, destroyed)
	require.False(t, ws.Alive(id))
	_, ok := ws.Transform(id)
	require.False(t, ok, "components cleared on flush")
}
