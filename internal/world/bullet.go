package world

import (
	"fmt"

	"github.com/tankwar/server/internal/core/ecs"
	"github.com/tankwar/server/internal/data"
)

// Bullet is a short-lived unit flying a straight line from its tank.
// Its view range is the hit radius: a tank coming into view is a contact.
type Bullet struct {
	unitBase
	owner    ecs.EntityID
	tpl      data.BulletTemplate
	contacts []ecs.EntityID
}

func (b *Bullet) Kind() ecs.Kind                { return ecs.KindBullet }
func (b *Bullet) Owner() ecs.EntityID           { return b.owner }
func (b *Bullet) Template() data.BulletTemplate { return b.tpl }
func (b *Bullet) String() string                { return fmt.Sprintf("bullet(%d)", b.id) }

// Spent reports whether the bullet has reached the end of its flight.
func (b *Bullet) Spent() bool { return !b.pos.Moving() }

// ViewEnter records tanks other than the shooter as contacts.
func (b *Bullet) ViewEnter(other Unit) {
	if other.Kind() == ecs.KindTank && other.ID() != b.owner {
		b.contacts = append(b.contacts, other.ID())
	}
}

func (b *Bullet) ViewLeave(Unit) {}

// TakeContacts returns the contacts recorded since the last call and resets them.
func (b *Bullet) TakeContacts() []ecs.EntityID {
	c := b.contacts
	b.contacts = nil
	return c
}
