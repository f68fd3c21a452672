package scripting_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/core/event"
	"github.com/driftsim/server/internal/scripting"
	"github.com/driftsim/server/internal/system"
	"github.com/driftsim/server/internal/vmath"
	"github.com/driftsim/server/internal/world"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	scen := filepath.Join(dir, "scenario")
	require.NoError(t, os.MkdirAll(scen, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scen, "boot.lua"), []byte(body), 0o644))
	return dir
}

// Boot wiring order: traversal subscribes before scenario scripts run, so a
// stationary entity boot-spawned inside a grid gets resolved on the first
// tick instead of staying off-grid forever.
func TestBootSpawnReachesTraversal(t *testing.T) {
	dir := writeScenario(t, `world.spawn(1, 5, 5, "keeper")`)

	w := ecs.NewWorld()
	bus := event.NewBus()
	ws := world.NewState(w, 32, zap.NewNop())
	_, err := ws.AddMap(1, "m")
	require.NoError(t, err)
	require.NoError(t, ws.AddGrid(&world.Grid{
		ID: 1, Map: 1, Name: "home",
		Bounds: vmath.NewAABB(0, 0, 10, 10),
	}))

	traversal := system.NewTraversalSystem(ws, bus, zap.NewNop())
	movement := system.NewMovementSystem(ws, bus, zap.NewNop())

	var spawned []ecs.EntityID
	event.Subscribe(bus, func(ev event.Moved) {
		spawned = append(spawned, ev.Entity)
	})

	eng, err := scripting.NewEngine(dir, ws, bus, zap.NewNop())
	require.NoError(t, err)
	defer eng.Close()

	require.Len(t, spawned, 1, "boot spawn publishes a movement notification")
	require.Equal(t, 1, traversal.Pending())

	tick := 50 * time.Millisecond
	for i := 0; i < 3; i++ {
		movement.Update(tick)
		traversal.Update(tick)
	}

	tr, ok := ws.Transform(spawned[0])
	require.True(t, ok)
	require.Equal(t, component.GridID(1), tr.Grid)
	require.Equal(t, component.ParentGrid, tr.Parent.Kind)
}

// world.move on an entity whose parent chain no longer resolves still applied
// the translate; the dropped notification must at least be logged.
func TestMoveWarnsOnUnresolvedPosition(t *testing.T) {
	w := ecs.NewWorld()
	bus := event.NewBus()
	ws := world.NewState(w, 32, zap.NewNop())
	_, err := ws.AddMap(1, "m")
	require.NoError(t, err)

	a, err := ws.Spawn("a", 1, vmath.Vec2{})
	require.NoError(t, err)
	b, err := ws.Spawn("b", 1, vmath.Vec2{})
	require.NoError(t, err)
	atr, _ := ws.Transform(a)
	btr, _ := ws.Transform(b)
	atr.Parent = component.EntityParent(b)
	btr.Parent = component.EntityParent(a)

	dir := writeScenario(t, fmt.Sprintf(`world.move(%d, 1, 0)`, uint64(a)))

	core, logs := observer.New(zapcore.WarnLevel)
	eng, err := scripting.NewEngine(dir, ws, bus, zap.New(core))
	require.NoError(t, err)
	defer eng.Close()

	entries := logs.FilterMessage("lua move: position unresolved after translate").All()
	require.Len(t, entries, 1)
	require.Equal(t, vmath.Vec2{X: 1, Y: 0}, atr.Local, "translate itself went through")
}
