package system

import (
	"time"

	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/world"
)

// SnapshotSink receives a copy of the world. Implementations must not
// block the game loop.
type SnapshotSink interface {
	Publish(snap world.Snapshot)
}

// SnapshotSinkFunc adapts a function to SnapshotSink.
type SnapshotSinkFunc func(world.Snapshot)

func (f SnapshotSinkFunc) Publish(snap world.Snapshot) { f(snap) }

// SnapshotSystem copies the world every interval ticks and hands it to a
// sink: the spectator hub or the terminal overview. Phase 4 (Output).
type SnapshotSystem struct {
	state    *world.State
	sink     SnapshotSink
	interval int
	ticks    uint64
}

func NewSnapshotSystem(state *world.State, sink SnapshotSink, interval int) *SnapshotSystem {
	return &SnapshotSystem{state: state, sink: sink, interval: max(interval, 1)}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *SnapshotSystem) Update(_ time.Time) {
	tick := s.ticks
	s.ticks++
	if tick%uint64(s.interval) != 0 {
		return
	}
	s.sink.Publish(s.state.Snapshot(tick))
}
