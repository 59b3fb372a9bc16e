package world

import (
	"iter"

	"github.com/tankwar/server/internal/core/ecs"
)

// Grid is a rows x cols array of cells; each cell holds the ids of the units
// whose position maps into it. Row and column arguments are clamped to the
// grid, so callers never index out of bounds.
// Accessed only from the game loop goroutine; no locks.
type Grid struct {
	rows, cols int
	cells      []map[ecs.EntityID]struct{} // index = row*cols + col, nil until first use
}

// NewGrid returns an empty grid. rows and cols below 1 are raised to 1.
func NewGrid(rows, cols int) *Grid {
	rows = max(rows, 1)
	cols = max(cols, 1)
	return &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]map[ecs.EntityID]struct{}, rows*cols),
	}
}

// Rows returns the number of cell rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of cell columns.
func (g *Grid) Cols() int { return g.cols }

// Clamp saturates (row, col) to the nearest valid cell.
func (g *Grid) Clamp(row, col int) (int, int) {
	return min(max(row, 0), g.rows-1), min(max(col, 0), g.cols-1)
}

func (g *Grid) index(row, col int) int {
	row, col = g.Clamp(row, col)
	return row*g.cols + col
}

// Add places an id into a cell.
func (g *Grid) Add(row, col int, id ecs.EntityID) {
	i := g.index(row, col)
	cell := g.cells[i]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[i] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an id out of a cell. No-op if absent.
func (g *Grid) Remove(row, col int, id ecs.EntityID) {
	cell := g.cells[g.index(row, col)]
	if cell != nil {
		delete(cell, id)
	}
}

// Contains reports whether the cell holds id.
func (g *Grid) Contains(row, col int, id ecs.EntityID) bool {
	_, ok := g.cells[g.index(row, col)][id]
	return ok
}

// CellLen returns the number of ids in a cell.
func (g *Grid) CellLen(row, col int) int {
	return len(g.cells[g.index(row, col)])
}

// Window yields every id in the rectangle [row1, row2] x [col1, col2],
// clipped to the grid. The sequence is lazy and single pass; call Window
// again to restart. Ids are yielded cell by cell in no particular order
// within a cell.
func (g *Grid) Window(row1, col1, row2, col2 int) iter.Seq[ecs.EntityID] {
	row1, col1 = g.Clamp(row1, col1)
	row2, col2 = g.Clamp(row2, col2)
	return func(yield func(ecs.EntityID) bool) {
		for r := row1; r <= row2; r++ {
			for c := col1; c <= col2; c++ {
				for id := range g.cells[r*g.cols+c] {
					if !yield(id) {
						return
					}
				}
			}
		}
	}
}

// Neighbors yields every id within radius cells of (row, col), i.e. the
// (2*radius+1)^2 window clipped to the grid. Caller does fine-grained
// distance filtering.
func (g *Grid) Neighbors(row, col, radius int) iter.Seq[ecs.EntityID] {
	radius = max(radius, 0)
	return g.Window(row-radius, col-radius, row+radius, col+radius)
}
