package world

import (
	"fmt"

	"github.com/tankwar/server/internal/core/ecs"
	"github.com/tankwar/server/internal/core/event"
	"github.com/tankwar/server/internal/data"
)

// Tank is a mobile unit with sight that fires bullets.
type Tank struct {
	unitBase
	tpl        *data.TankTemplate
	controlled bool
	reload     int // ticks until the next shot is allowed
	bus        *event.Bus
}

func (t *Tank) Kind() ecs.Kind                  { return ecs.KindTank }
func (t *Tank) Template() *data.TankTemplate    { return t.tpl }
func (t *Tank) Controlled() bool                { return t.controlled }
func (t *Tank) CanFire() bool                   { return t.reload <= 0 }
func (t *Tank) CanBeDestroyedBy(b *Bullet) bool { return b.owner != t.id }
func (t *Tank) String() string                  { return fmt.Sprintf("tank(%d)", t.id) }

// TickReload counts the reload timer down by one tick.
func (t *Tank) TickReload() {
	if t.reload > 0 {
		t.reload--
	}
}

// ViewEnter reports other tanks to the bus; AI reacts to it next tick.
func (t *Tank) ViewEnter(other Unit) {
	if other.Kind() == ecs.KindTank && t.bus != nil {
		event.Emit(t.bus, event.UnitSighted{Viewer: t.id, Target: other.ID()})
	}
}

func (t *Tank) ViewLeave(other Unit) {
	if other.Kind() == ecs.KindTank && t.bus != nil {
		event.Emit(t.bus, event.UnitLost{Viewer: t.id, Target: other.ID()})
	}
}
