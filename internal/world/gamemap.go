package world

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/tankwar/server/internal/config"
	"github.com/tankwar/server/internal/core/ecs"
)

var (
	ErrInvalidMapConfig = errors.New("world: map width, height and cell size must be positive")
	ErrUnitPlaced       = errors.New("world: unit already placed")
	ErrUnitDestroyed    = errors.New("world: unit is destroyed")
	ErrUnitNotPlaced    = errors.New("world: unit not placed")

	// ErrMapTooLarge wraps ErrInvalidMapConfig.
	ErrMapTooLarge = fmt.Errorf("%w: grid exceeds %d cells", ErrInvalidMapConfig, config.MaxMapCells)
)

type cellPos struct{ row, col int }

// Map owns the grid and every unit's visible set.
//
// Units live in the arena (units); the grid, the views and the watcher
// index hold ids only. Destroy is the one way out of the arena and unwinds
// every reference to the id, so no cell or view can point at a dead unit.
// Accessed only from the game loop goroutine; no locks.
type Map struct {
	width, height uint32
	cellSize      uint32
	grid          *Grid

	units    map[ecs.EntityID]Unit
	cells    map[ecs.EntityID]cellPos
	watchers map[ecs.EntityID]map[ecs.EntityID]struct{} // target -> viewers that see it
	maxRange uint32                                     // largest view range ever placed
}

// NewMap sizes the grid from the configured world rectangle.
func NewMap(cfg config.MapConfig) (*Map, error) {
	if cfg.Width == 0 || cfg.Height == 0 || cfg.CellSize == 0 {
		return nil, ErrInvalidMapConfig
	}
	if cfg.Cells() > config.MaxMapCells {
		return nil, ErrMapTooLarge
	}
	rows := divCeil(cfg.Height, cfg.CellSize)
	cols := divCeil(cfg.Width, cfg.CellSize)
	return &Map{
		width:    cfg.Width,
		height:   cfg.Height,
		cellSize: cfg.CellSize,
		grid:     NewGrid(int(rows), int(cols)),
		units:    make(map[ecs.EntityID]Unit, 256),
		cells:    make(map[ecs.EntityID]cellPos, 256),
		watchers: make(map[ecs.EntityID]map[ecs.EntityID]struct{}, 256),
	}, nil
}

func divCeil(a, b uint32) uint32 {
	return uint32((uint64(a) + uint64(b) - 1) / uint64(b))
}

// Size returns the world dimensions.
func (m *Map) Size() (width, height uint32) { return m.width, m.height }

// CellSize returns the edge length of one cell in world units.
func (m *Map) CellSize() uint32 { return m.cellSize }

// Dims returns the grid dimensions in cells.
func (m *Map) Dims() (rows, cols int) { return m.grid.Rows(), m.grid.Cols() }

// Len returns the number of placed units.
func (m *Map) Len() int { return len(m.units) }

// CellFor maps world coordinates to the (clamped) cell holding them.
func (m *Map) CellFor(x, y uint32) (row, col int) {
	return m.grid.Clamp(int(y/m.cellSize), int(x/m.cellSize))
}

// CellOf returns the cell a placed unit occupies.
func (m *Map) CellOf(id ecs.EntityID) (row, col int, ok bool) {
	c, ok := m.cells[id]
	return c.row, c.col, ok
}

// CellLen returns how many units occupy a cell.
func (m *Map) CellLen(row, col int) int { return m.grid.CellLen(row, col) }

// UnitsIn returns the ids in one cell, ascending.
func (m *Map) UnitsIn(row, col int) []ecs.EntityID {
	ids := slices.Collect(m.grid.Neighbors(row, col, 0))
	slices.Sort(ids)
	return ids
}

// Unit looks up a placed unit.
func (m *Map) Unit(id ecs.EntityID) (Unit, bool) {
	u, ok := m.units[id]
	return u, ok
}

// Visible returns the ids unit id currently sees, ascending.
func (m *Map) Visible(id ecs.EntityID) []ecs.EntityID {
	u, ok := m.units[id]
	if !ok || u.View() == nil {
		return nil
	}
	return u.View().IDs()
}

// Watchers returns the ids of units that currently see id, ascending.
func (m *Map) Watchers(id ecs.EntityID) []ecs.EntityID {
	return sortedKeys(m.watchers[id])
}

// Add places a unit in its home cell and computes visibility in both
// directions against everything already on the map.
func (m *Map) Add(u Unit) error {
	if u.Destroyed() {
		return ErrUnitDestroyed
	}
	id := u.ID()
	if _, ok := m.units[id]; ok {
		return ErrUnitPlaced
	}
	m.units[id] = u
	row, col := m.CellFor(u.Position().XY())
	m.grid.Add(row, col, id)
	m.cells[id] = cellPos{row, col}
	if v := u.View(); v != nil && v.Range() > m.maxRange {
		m.maxRange = v.Range()
	}
	m.refresh(u)
	return nil
}

// UnitMoved reconciles a unit after its Position reported a change: the
// unit moves between cells when its home cell changed, and visibility is
// recomputed either way since view ranges usually span several cells.
func (m *Map) UnitMoved(u Unit) error {
	id := u.ID()
	if _, ok := m.units[id]; !ok {
		if u.Destroyed() {
			return ErrUnitDestroyed
		}
		return ErrUnitNotPlaced
	}
	row, col := m.CellFor(u.Position().XY())
	if old := m.cells[id]; old.row != row || old.col != col {
		m.grid.Remove(old.row, old.col, id)
		m.grid.Add(row, col, id)
		m.cells[id] = cellPos{row, col}
	}
	m.refresh(u)
	return nil
}

// Destroy takes a unit off the map for good. Every viewer that saw it loses
// it (ViewLeave fires on each, ascending id), its own visible set is
// cleared and its cell entry removed. Reports false for unknown ids.
func (m *Map) Destroy(id ecs.EntityID) bool {
	u, ok := m.units[id]
	if !ok {
		return false
	}
	u.markDestroyed()
	c := m.cells[id]
	m.grid.Remove(c.row, c.col, id)
	delete(m.cells, id)
	delete(m.units, id)

	for _, wid := range sortedKeys(m.watchers[id]) {
		w := m.units[wid]
		w.View().remove(id)
		w.ViewLeave(u)
	}
	delete(m.watchers, id)

	if v := u.View(); v != nil {
		for _, tid := range v.IDs() {
			m.unwatch(tid, id)
		}
		v.clear()
	}
	return true
}

// Remove implements ecs.Removable so the destroy queue reaches the map.
func (m *Map) Remove(id ecs.EntityID) {
	m.Destroy(id)
}

// refresh recomputes every visibility relation that involves u.
func (m *Map) refresh(u Unit) {
	id := u.ID()
	x, y := u.Position().XY()

	// What u sees.
	if v := u.View(); v != nil {
		cands := m.candidates(id, x, y, v.Range(), nil)
		next := make(map[ecs.EntityID]struct{}, len(cands))
		for _, oid := range cands {
			ox, oy := m.units[oid].Position().XY()
			if within(x, y, ox, oy, v.Range()) {
				next[oid] = struct{}{}
			}
		}
		for _, oid := range v.IDs() {
			if _, still := next[oid]; !still {
				v.remove(oid)
				m.unwatch(oid, id)
				u.ViewLeave(m.units[oid])
			}
		}
		for _, oid := range cands {
			if _, in := next[oid]; in && !v.Contains(oid) {
				v.add(oid)
				m.watch(oid, id)
				u.ViewEnter(m.units[oid])
			}
		}
	}

	// Who sees u. Anyone outside the widest view window cannot, except
	// current watchers, which must be re-checked so they can lose sight.
	for _, oid := range m.candidates(id, x, y, m.maxRange, m.watchers[id]) {
		o := m.units[oid]
		ov := o.View()
		if ov == nil {
			continue
		}
		ox, oy := o.Position().XY()
		should := within(ox, oy, x, y, ov.Range())
		has := ov.Contains(id)
		switch {
		case should && !has:
			ov.add(id)
			m.watch(id, oid)
			o.ViewEnter(u)
		case !should && has:
			ov.remove(id)
			m.unwatch(id, oid)
			o.ViewLeave(u)
		}
	}
}

// candidates lists, ascending and without self, the ids in the cell window
// [(x-r)/C, (x+r)/C] x [(y-r)/C, (y+r)/C] plus any extra ids.
func (m *Map) candidates(self ecs.EntityID, x, y, r uint32, extra map[ecs.EntityID]struct{}) []ecs.EntityID {
	x1, x2 := satSub(x, r), satAdd(x, r)
	y1, y2 := satSub(y, r), satAdd(y, r)
	cs := m.cellSize
	var ids []ecs.EntityID
	for oid := range m.grid.Window(int(y1/cs), int(x1/cs), int(y2/cs), int(x2/cs)) {
		if oid != self {
			ids = append(ids, oid)
		}
	}
	for oid := range extra {
		if oid == self {
			continue
		}
		row, col := m.cells[oid].row, m.cells[oid].col
		if !m.inWindow(row, col, x1, y1, x2, y2) {
			ids = append(ids, oid)
		}
	}
	slices.Sort(ids)
	return ids
}

func (m *Map) inWindow(row, col int, x1, y1, x2, y2 uint32) bool {
	r1, c1 := m.grid.Clamp(int(y1/m.cellSize), int(x1/m.cellSize))
	r2, c2 := m.grid.Clamp(int(y2/m.cellSize), int(x2/m.cellSize))
	return row >= r1 && row <= r2 && col >= c1 && col <= c2
}

func (m *Map) watch(target, viewer ecs.EntityID) {
	w := m.watchers[target]
	if w == nil {
		w = make(map[ecs.EntityID]struct{})
		m.watchers[target] = w
	}
	w[viewer] = struct{}{}
}

func (m *Map) unwatch(target, viewer ecs.EntityID) {
	if w := m.watchers[target]; w != nil {
		delete(w, viewer)
		if len(w) == 0 {
			delete(m.watchers, target)
		}
	}
}

// within reports whether (bx, by) lies within Euclidean distance r of (ax, ay).
func within(ax, ay, bx, by, r uint32) bool {
	dx := absDiff(ax, bx)
	dy := absDiff(ay, by)
	d2, carry := bits.Add64(dx*dx, dy*dy, 0)
	if carry != 0 {
		return false
	}
	return d2 <= uint64(r)*uint64(r)
}

func absDiff(a, b uint32) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}

func satSub(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

func satAdd(a, b uint32) uint32 {
	s := a + b
	if s < a {
		return ^uint32(0)
	}
	return s
}

func sortedKeys(set map[ecs.EntityID]struct{}) []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
