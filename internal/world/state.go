package world

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/tankwar/server/internal/core/ecs"
	"github.com/tankwar/server/internal/core/event"
	"github.com/tankwar/server/internal/data"
	"go.uber.org/zap"
)

var ErrReloading = errors.New("world: tank is reloading")

// State is the scene: it owns every unit, allocates ids and routes all
// placement and removal through the Map. Destruction is deferred to the
// end of the tick so systems can destroy units while iterating them.
// Single-goroutine access only (game loop).
type State struct {
	ecs     *ecs.World
	gameMap *Map
	bus     *event.Bus
	log     *zap.Logger

	tanks   *ecs.PtrComponentStore[Tank]
	bullets *ecs.PtrComponentStore[Bullet]
}

func NewState(m *Map, bus *event.Bus, log *zap.Logger) *State {
	s := &State{
		ecs:     ecs.NewWorld(),
		gameMap: m,
		bus:     bus,
		log:     log,
		tanks:   ecs.NewPtrComponentStore[Tank](),
		bullets: ecs.NewPtrComponentStore[Bullet](),
	}
	reg := s.ecs.Registry()
	reg.Register(s.tanks)
	reg.Register(s.bullets)
	reg.Register(m)
	return s
}

func (s *State) Map() *Map        { return s.gameMap }
func (s *State) Bus() *event.Bus  { return s.bus }
func (s *State) TankCount() int   { return s.tanks.Len() }
func (s *State) BulletCount() int { return s.bullets.Len() }

// SpawnTank creates a tank with a fresh id at (x, y), clamped to the map.
func (s *State) SpawnTank(tpl *data.TankTemplate, x, y uint32, controlled bool) (*Tank, error) {
	x, y = s.clamp(x, y)
	id := s.ecs.CreateEntity()
	t := &Tank{
		unitBase: unitBase{
			id:   id,
			pos:  NewPosition(x, y, 0),
			view: NewView(tpl.ViewRange),
		},
		tpl:        tpl,
		controlled: controlled,
		bus:        s.bus,
	}
	if err := s.gameMap.Add(t); err != nil {
		s.ecs.Pool().Destroy(id)
		return nil, err
	}
	s.tanks.Set(id, t)
	event.Emit(s.bus, event.UnitSpawned{ID: id, Kind: ecs.KindTank, X: x, Y: y})
	s.log.Debug("tank spawned",
		zap.Uint64("id", uint64(id)),
		zap.String("template", tpl.Name),
		zap.Uint32("x", x), zap.Uint32("y", y))
	return t, nil
}

// MoveTank sends a tank toward (x, y) at its template speed.
func (s *State) MoveTank(t *Tank, x, y uint32, now time.Time) error {
	if t.Destroyed() || !s.Alive(t.id) {
		return ErrUnitDestroyed
	}
	x, y = s.clamp(x, y)
	return t.pos.MoveTo(x, y, t.tpl.Speed, now)
}

// Fire launches a bullet from the tank along its heading. The flight ends
// range units away or at the map edge, whichever comes first.
func (s *State) Fire(t *Tank, now time.Time) (*Bullet, error) {
	if t.Destroyed() || !s.Alive(t.id) {
		return nil, ErrUnitDestroyed
	}
	if !t.CanFire() {
		return nil, ErrReloading
	}
	bt := t.tpl.Bullet
	x, y := t.pos.XY()
	angle := t.pos.Angle()
	tx := float64(x) + math.Cos(angle)*float64(bt.Range)
	ty := float64(y) + math.Sin(angle)*float64(bt.Range)
	endX, endY := s.clampFloat(tx, ty)

	id := s.ecs.CreateEntity()
	b := &Bullet{
		unitBase: unitBase{
			id:   id,
			pos:  NewPosition(x, y, angle),
			view: NewView(bt.HitRadius),
		},
		owner: t.id,
		tpl:   bt,
	}
	if err := b.pos.MoveTo(endX, endY, bt.Speed, now); err != nil {
		s.ecs.Pool().Destroy(id)
		return nil, err
	}
	if err := s.gameMap.Add(b); err != nil {
		s.ecs.Pool().Destroy(id)
		return nil, err
	}
	s.bullets.Set(id, b)
	t.reload = t.tpl.ReloadTicks
	event.Emit(s.bus, event.ShotFired{Tank: t.id, Bullet: id, X: x, Y: y})
	return b, nil
}

// Destroy queues a unit for removal at the end of the tick. The unit stays
// on the map until Flush, so iteration in progress is not disturbed.
func (s *State) Destroy(id ecs.EntityID) {
	s.ecs.MarkForDestruction(id)
}

// Alive reports whether id is live and not queued for destruction.
func (s *State) Alive(id ecs.EntityID) bool {
	return s.ecs.Alive(id) && !s.ecs.PendingDestruction(id)
}

// Flush removes every queued unit from its store and from the map.
func (s *State) Flush() int {
	return s.ecs.FlushDestroyQueue()
}

func (s *State) Tank(id ecs.EntityID) (*Tank, bool)     { return s.tanks.Get(id) }
func (s *State) Bullet(id ecs.EntityID) (*Bullet, bool) { return s.bullets.Get(id) }

// Unit returns the unit with id regardless of kind.
func (s *State) Unit(id ecs.EntityID) (Unit, bool) {
	if t, ok := s.tanks.Get(id); ok {
		return t, true
	}
	if b, ok := s.bullets.Get(id); ok {
		return b, true
	}
	return nil, false
}

// EachTank visits tanks in ascending id order.
func (s *State) EachTank(fn func(*Tank)) {
	s.tanks.Each(func(_ ecs.EntityID, t *Tank) { fn(t) })
}

// EachBullet visits bullets in ascending id order.
func (s *State) EachBullet(fn func(*Bullet)) {
	s.bullets.Each(func(_ ecs.EntityID, b *Bullet) { fn(b) })
}

// EachUnit visits all units of every kind in ascending id order.
func (s *State) EachUnit(fn func(Unit)) {
	ids := append(s.tanks.IDs(), s.bullets.IDs()...)
	slices.Sort(ids)
	for _, id := range ids {
		if u, ok := s.Unit(id); ok {
			fn(u)
		}
	}
}

func (s *State) clamp(x, y uint32) (uint32, uint32) {
	w, h := s.gameMap.Size()
	return min(x, w-1), min(y, h-1)
}

func (s *State) clampFloat(x, y float64) (uint32, uint32) {
	w, h := s.gameMap.Size()
	x = math.Round(math.Min(math.Max(x, 0), float64(w-1)))
	y = math.Round(math.Min(math.Max(y, 0), float64(h-1)))
	return uint32(x), uint32(y)
}
