package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: scripting hooks, operator commands
	PhasePreUpdate               // 1: dispatch last tick's deferred events
	PhaseUpdate                  // 2: movement/physics integration
	PhasePostUpdate              // 3: grid traversal resolution
	PhaseOutput                  // 4: stats, membership-dependent consumers
	PhasePersist                 // 5: snapshot + audit batch save
	PhaseCleanup                 // 6: destroy queued entities
)

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
