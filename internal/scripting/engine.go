package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftsim/server/internal/component"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/core/event"
	"github.com/driftsim/server/internal/vmath"
	"github.com/driftsim/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for scenario logic. Boot scripts
// populate the world; an optional global on_tick(dt) drives runtime motion.
// Single-goroutine access only (game loop).
type Engine struct {
	vm     *lua.LState
	ws     *world.State
	bus    *event.Bus
	log    *zap.Logger
	onTick lua.LValue
}

// NewEngine creates a Lua engine, binds the world API, and loads all scripts
// from the given directory. Scenario scripts live in <dir>/scenario; the
// directory is optional.
func NewEngine(scriptsDir string, ws *world.State, bus *event.Bus, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, ws: ws, bus: bus, log: log}
	e.registerWorldAPI()

	if err := e.loadDir(filepath.Join(scriptsDir, "scenario")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scenario scripts: %w", err)
	}

	// Cache the tick hook if a script defined one.
	if fn := vm.GetGlobal("on_tick"); fn.Type() == lua.LTFunction {
		e.onTick = fn
	}

	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// OnTick invokes the script tick hook, if any. Script errors are logged and
// the hook is disabled rather than failing the tick again every 50ms.
func (e *Engine) OnTick(dt float64) {
	if e.onTick == nil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      e.onTick,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt)); err != nil {
		e.log.Error("lua on_tick failed, disabling hook", zap.Error(err))
		e.onTick = nil
	}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// registerWorldAPI exposes the world module to scripts:
//
//	id = world.spawn(map_id, x, y [, name])
//	world.despawn(id)
//	world.set_velocity(id, vx, vy)
//	world.set_layers(id, mask)
//	world.set_anchored(id, bool)
//	world.set_contained(id, bool)
//	world.move(id, dx, dy)          -- teleport by map-space delta
//	map_id, x, y = world.position(id)
//	grid = world.grid_of(id)        -- 0 when on the open map
func (e *Engine) registerWorldAPI() {
	mod := e.vm.NewTable()

	e.vm.SetField(mod, "spawn", e.vm.NewFunction(func(L *lua.LState) int {
		mapID := component.MapID(L.CheckInt(1))
		x := float64(L.CheckNumber(2))
		y := float64(L.CheckNumber(3))
		name := L.OptString(4, "")
		id, err := e.ws.Spawn(name, mapID, vmath.Vec2{X: x, Y: y})
		if err != nil {
			L.RaiseError("spawn: %v", err)
			return 0
		}
		// Spawning at a position is a movement for traversal purposes.
		event.Publish(e.bus, event.Moved{Entity: id, Position: vmath.Vec2{X: x, Y: y}})
		L.Push(lua.LNumber(id))
		return 1
	}))

	e.vm.SetField(mod, "despawn", e.vm.NewFunction(func(L *lua.LState) int {
		e.ws.Despawn(ecs.EntityID(L.CheckNumber(1)))
		return 0
	}))

	e.vm.SetField(mod, "set_velocity", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		v := vmath.Vec2{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))}
		if err := e.ws.SetVelocity(id, v); err != nil {
			L.RaiseError("set_velocity: %v", err)
		}
		return 0
	}))

	e.vm.SetField(mod, "set_layers", e.vm.NewFunction(func(L *lua.LState) int {
		e.ws.SetLayers(ecs.EntityID(L.CheckNumber(1)), uint32(L.CheckInt64(2)))
		return 0
	}))

	e.vm.SetField(mod, "set_anchored", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		if err := e.ws.SetAnchored(id, L.CheckBool(2)); err != nil {
			L.RaiseError("set_anchored: %v", err)
		}
		return 0
	}))

	e.vm.SetField(mod, "set_contained", e.vm.NewFunction(func(L *lua.LState) int {
		e.ws.SetContained(ecs.EntityID(L.CheckNumber(1)), L.CheckBool(2))
		return 0
	}))

	e.vm.SetField(mod, "move", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		delta := vmath.Vec2{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))}
		if err := e.ws.Translate(id, delta); err != nil {
			L.RaiseError("move: %v", err)
			return 0
		}
		if _, pos, err := e.ws.MapPosition(id); err == nil {
			event.Publish(e.bus, event.Moved{Entity: id, Position: pos})
		} else {
			// The translate went through; consumers just cannot be told.
			e.log.Warn("lua move: position unresolved after translate",
				zap.Uint64("entity", uint64(id)),
				zap.Error(err),
			)
		}
		return 0
	}))

	e.vm.SetField(mod, "position", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		mapID, pos, err := e.ws.MapPosition(id)
		if err != nil {
			L.RaiseError("position: %v", err)
			return 0
		}
		L.Push(lua.LNumber(mapID))
		L.Push(lua.LNumber(pos.X))
		L.Push(lua.LNumber(pos.Y))
		return 3
	}))

	e.vm.SetField(mod, "grid_of", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		if tr, ok := e.ws.Transform(id); ok {
			L.Push(lua.LNumber(tr.Grid))
		} else {
			L.Push(lua.LNumber(0))
		}
		return 1
	}))

	e.vm.SetGlobal("world", mod)
}
