package world

import (
	"slices"

	"github.com/tankwar/server/internal/core/ecs"
)

// View is a unit's sight: a range and the ids it currently sees.
// Only Map changes the visible set.
type View struct {
	rng     uint32
	visible map[ecs.EntityID]struct{}
}

func NewView(rng uint32) *View {
	return &View{rng: rng, visible: make(map[ecs.EntityID]struct{})}
}

func (v *View) Range() uint32 { return v.rng }

func (v *View) Contains(id ecs.EntityID) bool {
	_, ok := v.visible[id]
	return ok
}

func (v *View) Len() int { return len(v.visible) }

// IDs returns the visible ids in ascending order.
func (v *View) IDs() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(v.visible))
	for id := range v.visible {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (v *View) add(id ecs.EntityID)    { v.visible[id] = struct{}{} }
func (v *View) remove(id ecs.EntityID) { delete(v.visible, id) }
func (v *View) clear()                 { clear(v.visible) }
