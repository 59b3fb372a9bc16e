package system

import (
	"slices"
	"time"

	"github.com/tankwar/server/internal/core/ecs"
	"github.com/tankwar/server/internal/core/event"
	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
)

// CombatSystem resolves the contacts bullets collected during movement.
// A bullet destroys at most one tank, the lowest contact id that is still
// alive and not its shooter; bullets at the end of their flight expire.
// Phase 3 (PostUpdate).
type CombatSystem struct {
	state *world.State
	log   *zap.Logger
}

func NewCombatSystem(state *world.State, log *zap.Logger) *CombatSystem {
	return &CombatSystem{state: state, log: log}
}

func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *CombatSystem) Update(_ time.Time) {
	s.state.EachBullet(func(b *world.Bullet) {
		if !s.state.Alive(b.ID()) {
			return
		}
		contacts := b.TakeContacts()
		slices.Sort(contacts)
		for _, id := range contacts {
			t, ok := s.state.Tank(id)
			if !ok || !s.state.Alive(id) || !t.CanBeDestroyedBy(b) {
				continue
			}
			s.hit(b, t)
			return
		}
		if b.Spent() {
			s.destroy(b, ecs.KindBullet, 0)
		}
	})
}

func (s *CombatSystem) hit(b *world.Bullet, t *world.Tank) {
	s.destroy(t, ecs.KindTank, b.Owner())
	s.destroy(b, ecs.KindBullet, b.Owner())
	s.log.Info("tank destroyed",
		zap.Uint64("tank", uint64(t.ID())),
		zap.Uint64("by", uint64(b.Owner())),
		zap.Uint64("bullet", uint64(b.ID())))
}

func (s *CombatSystem) destroy(u world.Unit, kind ecs.Kind, by ecs.EntityID) {
	x, y := u.Position().XY()
	s.state.Destroy(u.ID())
	event.Emit(s.state.Bus(), event.UnitDestroyed{ID: u.ID(), Kind: kind, By: by, X: x, Y: y})
}
