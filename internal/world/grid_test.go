package world

import (
	"slices"
	"testing"

	"github.com/tankwar/server/internal/core/ecs"
)

func TestGridClampsOutOfBounds(t *testing.T) {
	g := NewGrid(2, 3)
	g.Add(-4, 99, 1)
	if !g.Contains(0, 2, 1) {
		t.Fatalf("id not clamped into cell (0,2)")
	}
	g.Remove(-1, 50, 1)
	if g.CellLen(0, 2) != 0 {
		t.Errorf("clamped remove did not reach cell (0,2)")
	}
	g.Remove(1, 1, 42) // absent: no-op
}

func TestGridNeighborsWindow(t *testing.T) {
	g := NewGrid(5, 5)
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			g.Add(r, c, ecs.EntityID(r*10+c+1))
		}
	}

	got := slices.Sorted(g.Neighbors(0, 0, 1))
	want := []ecs.EntityID{1, 2, 11, 12}
	if !slices.Equal(got, want) {
		t.Errorf("corner neighbours = %v, want %v", got, want)
	}

	if n := len(slices.Collect(g.Neighbors(2, 2, 1))); n != 9 {
		t.Errorf("centre neighbours = %d ids, want 9", n)
	}
	if n := len(slices.Collect(g.Neighbors(2, 2, 10))); n != 25 {
		t.Errorf("oversized radius = %d ids, want 25 (clipped)", n)
	}
}

func TestGridWindowStopsEarly(t *testing.T) {
	g := NewGrid(1, 4)
	for c := 0; c < 4; c++ {
		g.Add(0, c, ecs.EntityID(c+1))
	}
	n := 0
	for range g.Window(0, 0, 0, 3) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iteration did not stop at break")
	}
}
