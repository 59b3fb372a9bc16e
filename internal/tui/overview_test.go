package tui

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
)

func testSnapshot() world.Snapshot {
	return world.Snapshot{
		Tick: 3, Width: 1000, Height: 600, CellSize: 256,
		Units: []world.UnitSnapshot{
			{ID: 1, Kind: "tank", X: 10, Y: 10},
			{ID: 2, Kind: "tank", X: 20, Y: 30},
			{ID: 3, Kind: "bullet", X: 300, Y: 10},
			{ID: 4, Kind: "tank", X: 999, Y: 599},
		},
	}
}

func TestCountCells(t *testing.T) {
	occ := CountCells(testSnapshot())
	if occ.Rows != 3 || occ.Cols != 4 {
		t.Fatalf("grid = %dx%d, want 3x4", occ.Rows, occ.Cols)
	}
	if occ.Tanks[0] != 2 || occ.Bullets[1] != 1 || occ.Tanks[2*4+3] != 1 {
		t.Errorf("occupancy = %+v", occ)
	}
}

func TestRenderDrawsCells(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	screen.SetSize(40, 10)
	o := New(screen, zap.NewNop())
	defer o.Close()

	o.Render(testSnapshot())

	want := map[[2]int]rune{
		{0, 1}: '2', // two tanks in cell (0,0)
		{1, 1}: '*',
		{2, 1}: '.',
		{3, 3}: '1',
	}
	for pos, r := range want {
		got, _, _, _ := screen.GetContent(pos[0], pos[1])
		if got != r {
			t.Errorf("cell at screen (%d,%d) = %q, want %q", pos[0], pos[1], got, r)
		}
	}
	if got, _, _, _ := screen.GetContent(0, 0); got != 't' {
		t.Errorf("header starts with %q", got)
	}
}

func TestPollQuitOnKey(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	o := New(screen, zap.NewNop())

	quit := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		o.PollQuit(func() { quit <- struct{}{} })
		close(done)
	}()
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	<-quit
	o.Close()
	<-done
}
