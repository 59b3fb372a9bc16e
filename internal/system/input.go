package system

import (
	"time"

	"github.com/tankwar/server/internal/core/event"
	coresys "github.com/tankwar/server/internal/core/system"
)

// EventDispatchSystem makes last tick's events visible and delivers them to
// subscribers. Phase 0 (Input).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *EventDispatchSystem) Update(_ time.Time) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
