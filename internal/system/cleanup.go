package system

import (
	"time"

	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred destruction queue at tick end: each
// queued unit leaves its store and the map. Phase 6 (Cleanup).
type CleanupSystem struct {
	state *world.State
	log   *zap.Logger
}

func NewCleanupSystem(state *world.State, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{state: state, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Time) {
	if n := s.state.Flush(); n > 0 {
		s.log.Debug("units removed", zap.Int("count", n))
	}
}
