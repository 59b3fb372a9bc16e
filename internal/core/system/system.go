package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: dispatch last tick's events
	PhasePreUpdate               // 1: AI orders, firing
	PhaseUpdate                  // 2: motion + grid/visibility reconcile
	PhasePostUpdate              // 3: combat resolution
	PhaseOutput                  // 4: spectator + overview snapshots
	PhasePersist                 // 5: journal flush
	PhaseCleanup                 // 6: destroy queued entities
)

// System is the interface every ECS system implements. now is the tick's
// timestamp; systems never read the wall clock themselves.
type System interface {
	Phase() Phase
	Update(now time.Time)
}
