package system

import (
	"time"

	coresys "github.com/driftsim/server/internal/core/system"
	"github.com/driftsim/server/internal/scripting"
)

// ScriptSystem runs the scenario on_tick hook. Phase 0 (Input) — scripted
// commands land before movement integrates and traversal resolves, so their
// effects are visible within the same tick.
type ScriptSystem struct {
	engine *scripting.Engine
}

func NewScriptSystem(engine *scripting.Engine) *ScriptSystem {
	return &ScriptSystem{engine: engine}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptSystem) Update(dt time.Duration) {
	s.engine.OnTick(dt.Seconds())
}
