package system

import (
	"errors"
	"math"
	"time"

	"github.com/tankwar/server/internal/core/ecs"
	"github.com/tankwar/server/internal/core/event"
	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/scripting"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// AISystem gives orders to idle tanks that no player controls. Go collects
// what a tank can see; the decision comes from Lua tank_ai when a script is
// loaded, otherwise from a seeded random wander. Reload timers count down
// every tick; decisions run every interval ticks. Phase 1 (PreUpdate).
type AISystem struct {
	state    *world.State
	engine   *scripting.Engine // nil = wander only
	rng      *rand.Rand
	interval int
	log      *zap.Logger

	tickCount int
	sighted   map[ecs.EntityID][]ecs.EntityID // viewer -> tanks sighted since its last decision
}

func NewAISystem(state *world.State, engine *scripting.Engine, rng *rand.Rand, interval int, log *zap.Logger) *AISystem {
	s := &AISystem{
		state:    state,
		engine:   engine,
		rng:      rng,
		interval: max(interval, 1),
		log:      log,
		sighted:  make(map[ecs.EntityID][]ecs.EntityID),
	}
	event.Subscribe(state.Bus(), s.onSighted)
	event.Subscribe(state.Bus(), s.onDestroyed)
	return s
}

func (s *AISystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *AISystem) onSighted(e event.UnitSighted) {
	s.sighted[e.Viewer] = append(s.sighted[e.Viewer], e.Target)
}

func (s *AISystem) onDestroyed(e event.UnitDestroyed) {
	delete(s.sighted, e.ID)
}

func (s *AISystem) Update(now time.Time) {
	s.state.EachTank(func(t *world.Tank) { t.TickReload() })

	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	scripted := s.engine != nil && s.engine.HasTankAI()
	s.state.EachTank(func(t *world.Tank) {
		if t.Controlled() || t.Position().Moving() || !s.state.Alive(t.ID()) {
			return
		}
		var cmds []scripting.AICommand
		if scripted {
			cmds = s.engine.RunTankAI(s.buildContext(t))
		} else {
			cmds = s.wander(t)
		}
		delete(s.sighted, t.ID())
		s.execute(t, cmds, now)
	})
}

// buildContext packs what tank t knows about the world.
func (s *AISystem) buildContext(t *world.Tank) scripting.TankAIContext {
	x, y := t.Position().XY()
	w, h := s.state.Map().Size()
	ctx := scripting.TankAIContext{
		TankID:    uint64(t.ID()),
		X:         x,
		Y:         y,
		Angle:     t.Position().Angle(),
		MapWidth:  w,
		MapHeight: h,
		ViewRange: t.View().Range(),
		CanFire:   t.CanFire(),
	}
	for _, en := range s.enemies(t) {
		ex, ey := en.Position().XY()
		ctx.Enemies = append(ctx.Enemies, scripting.EnemyInfo{
			ID:   uint64(en.ID()),
			X:    ex,
			Y:    ey,
			Dist: math.Hypot(float64(ex)-float64(x), float64(ey)-float64(y)),
		})
	}
	for _, id := range s.sighted[t.ID()] {
		ctx.Sighted = append(ctx.Sighted, uint64(id))
	}
	return ctx
}

// enemies returns the live tanks t currently sees, ascending by id.
func (s *AISystem) enemies(t *world.Tank) []*world.Tank {
	var out []*world.Tank
	for _, id := range t.View().IDs() {
		if en, ok := s.state.Tank(id); ok && s.state.Alive(id) {
			out = append(out, en)
		}
	}
	return out
}

// wander turns toward the nearest visible enemy and fires when loaded,
// otherwise heads for a random point on the map.
func (s *AISystem) wander(t *world.Tank) []scripting.AICommand {
	if t.CanFire() {
		if en := s.nearest(t); en != nil {
			ex, ey := en.Position().XY()
			return []scripting.AICommand{
				{Type: scripting.CmdMoveTo, X: ex, Y: ey},
				{Type: scripting.CmdFire},
			}
		}
	}
	w, h := s.state.Map().Size()
	return []scripting.AICommand{{
		Type: scripting.CmdMoveTo,
		X:    uint32(s.rng.Int63n(int64(w))),
		Y:    uint32(s.rng.Int63n(int64(h))),
	}}
}

func (s *AISystem) nearest(t *world.Tank) *world.Tank {
	x, y := t.Position().XY()
	var best *world.Tank
	bestD := math.Inf(1)
	for _, en := range s.enemies(t) {
		ex, ey := en.Position().XY()
		if d := math.Hypot(float64(ex)-float64(x), float64(ey)-float64(y)); d < bestD {
			best, bestD = en, d
		}
	}
	return best
}

func (s *AISystem) execute(t *world.Tank, cmds []scripting.AICommand, now time.Time) {
	for _, cmd := range cmds {
		switch cmd.Type {
		case scripting.CmdMoveTo:
			if err := s.state.MoveTank(t, cmd.X, cmd.Y, now); err != nil {
				s.log.Debug("ai move refused", zap.Uint64("tank", uint64(t.ID())), zap.Error(err))
			}
		case scripting.CmdFire:
			if _, err := s.state.Fire(t, now); err != nil && !errors.Is(err, world.ErrReloading) {
				s.log.Warn("ai fire failed", zap.Uint64("tank", uint64(t.ID())), zap.Error(err))
			}
		case scripting.CmdWait:
			return
		}
	}
}
