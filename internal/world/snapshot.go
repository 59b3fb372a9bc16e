package world

import "github.com/tankwar/server/internal/core/ecs"

// UnitSnapshot is a copy of one unit's observable state.
type UnitSnapshot struct {
	ID         ecs.EntityID   `json:"id"`
	Kind       string         `json:"kind"`
	X          uint32         `json:"x"`
	Y          uint32         `json:"y"`
	Angle      float64        `json:"angle"`
	Visible    []ecs.EntityID `json:"visible,omitempty"`
	Owner      ecs.EntityID   `json:"owner,omitempty"`
	Controlled bool           `json:"controlled,omitempty"`
}

// Snapshot is an immutable copy of the world, safe to hand to other goroutines.
type Snapshot struct {
	Tick     uint64         `json:"tick"`
	Width    uint32         `json:"width"`
	Height   uint32         `json:"height"`
	CellSize uint32         `json:"cell_size"`
	Units    []UnitSnapshot `json:"units"`
}

// Snapshot copies the live units, ascending by id.
func (s *State) Snapshot(tick uint64) Snapshot {
	w, h := s.gameMap.Size()
	snap := Snapshot{
		Tick:     tick,
		Width:    w,
		Height:   h,
		CellSize: s.gameMap.CellSize(),
		Units:    make([]UnitSnapshot, 0, s.tanks.Len()+s.bullets.Len()),
	}
	s.EachUnit(func(u Unit) {
		pos := u.Position()
		us := UnitSnapshot{
			ID:    u.ID(),
			Kind:  u.Kind().String(),
			X:     pos.X(),
			Y:     pos.Y(),
			Angle: pos.Angle(),
		}
		switch u := u.(type) {
		case *Tank:
			us.Visible = u.View().IDs()
			us.Controlled = u.Controlled()
		case *Bullet:
			us.Owner = u.Owner()
		}
		snap.Units = append(snap.Units, us)
	})
	return snap
}
