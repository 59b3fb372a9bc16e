package world

import "github.com/tankwar/server/internal/core/ecs"

// Unit is the capability set the Map needs from anything placed on it.
//
// The interface is sealed (markDestroyed is unexported): the unit kinds are
// the closed set Tank and Bullet, and kind-specific behaviour switches on
// Kind(). The Map keeps units only in its arena and refers to them by id
// everywhere else.
//
// ViewEnter and ViewLeave are called on the viewer with the unit that came
// into or dropped out of its view. They run inside Map operations and must
// not call back into the Map.
type Unit interface {
	ID() ecs.EntityID
	Kind() ecs.Kind
	Position() *Position
	View() *View // nil when the unit has no sight
	ViewEnter(other Unit)
	ViewLeave(other Unit)
	Destroyed() bool
	markDestroyed()
}

// unitBase carries the state every unit kind shares.
type unitBase struct {
	id        ecs.EntityID
	pos       Position
	view      *View
	destroyed bool
}

func (b *unitBase) ID() ecs.EntityID    { return b.id }
func (b *unitBase) Position() *Position { return &b.pos }
func (b *unitBase) View() *View         { return b.view }
func (b *unitBase) Destroyed() bool     { return b.destroyed }
func (b *unitBase) markDestroyed()      { b.destroyed = true }
