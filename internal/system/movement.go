package system

import (
	"time"

	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
)

// MovementSystem advances every unit to now and reconciles the map for each
// one that moved. Units run in ascending id order so visibility hooks fire
// in the same order on every run. Phase 2 (Update).
type MovementSystem struct {
	state *world.State
	log   *zap.Logger
}

func NewMovementSystem(state *world.State, log *zap.Logger) *MovementSystem {
	return &MovementSystem{state: state, log: log}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(now time.Time) {
	m := s.state.Map()
	s.state.EachUnit(func(u world.Unit) {
		if !s.state.Alive(u.ID()) {
			return
		}
		if !u.Position().Update(now) {
			return
		}
		if err := m.UnitMoved(u); err != nil {
			s.log.Warn("unit moved but not reconciled", zap.Uint64("id", uint64(u.ID())), zap.Error(err))
		}
	})
}
