package tui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
)

var (
	styleEmpty  = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleTank   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleBullet = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleHeader = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

// Occupancy counts units per grid cell.
type Occupancy struct {
	Rows, Cols int
	Tanks      []int // index = row*Cols + col
	Bullets    []int
}

// CountCells buckets every unit of snap into its grid cell.
func CountCells(snap world.Snapshot) Occupancy {
	if snap.CellSize == 0 {
		return Occupancy{}
	}
	rows := int((uint64(snap.Height) + uint64(snap.CellSize) - 1) / uint64(snap.CellSize))
	cols := int((uint64(snap.Width) + uint64(snap.CellSize) - 1) / uint64(snap.CellSize))
	rows, cols = max(rows, 1), max(cols, 1)
	o := Occupancy{Rows: rows, Cols: cols, Tanks: make([]int, rows*cols), Bullets: make([]int, rows*cols)}
	for _, u := range snap.Units {
		r := min(int(u.Y/snap.CellSize), rows-1)
		c := min(int(u.X/snap.CellSize), cols-1)
		switch u.Kind {
		case "tank":
			o.Tanks[r*cols+c]++
		case "bullet":
			o.Bullets[r*cols+c]++
		}
	}
	return o
}

// Overview draws grid occupancy to a terminal screen.
// Render runs on the game loop; the key poller runs on its own goroutine.
type Overview struct {
	screen tcell.Screen
	log    *zap.Logger
	once   sync.Once
}

// Open initialises the real terminal.
func Open(log *zap.Logger) (*Overview, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	return New(screen, log), nil
}

// New wraps an initialised screen.
func New(screen tcell.Screen, log *zap.Logger) *Overview {
	screen.HideCursor()
	screen.Clear()
	return &Overview{screen: screen, log: log}
}

// Render draws one snapshot: a header line and one glyph per cell. Grids
// larger than the terminal are cut at the screen edge.
func (o *Overview) Render(snap world.Snapshot) {
	occ := CountCells(snap)
	w, h := o.screen.Size()
	o.screen.Clear()

	tanks, bullets := 0, 0
	for i := range occ.Tanks {
		tanks += occ.Tanks[i]
		bullets += occ.Bullets[i]
	}
	drawText(o.screen, 0, 0, w, styleHeader,
		fmt.Sprintf("tick %d  tanks %d  bullets %d  grid %dx%d  [q] quit", snap.Tick, tanks, bullets, occ.Rows, occ.Cols))

	for r := 0; r < occ.Rows && r+1 < h; r++ {
		for c := 0; c < occ.Cols && c < w; c++ {
			ch, style := glyph(occ.Tanks[r*occ.Cols+c], occ.Bullets[r*occ.Cols+c])
			o.screen.SetContent(c, r+1, ch, nil, style)
		}
	}
	o.screen.Show()
}

// glyph picks the rune for a cell: tank count first, then bullets.
func glyph(tanks, bullets int) (rune, tcell.Style) {
	switch {
	case tanks > 9:
		return '#', styleTank
	case tanks > 0:
		return rune('0' + tanks), styleTank
	case bullets > 0:
		return '*', styleBullet
	}
	return '.', styleEmpty
}

func drawText(s tcell.Screen, x, y, maxW int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= maxW {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// PollQuit reads terminal events until the screen is closed and calls quit
// once on Escape, Ctrl-C or 'q'.
func (o *Overview) PollQuit(quit func()) {
	for {
		ev := o.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				o.log.Info("quit requested from terminal")
				quit()
			}
		case *tcell.EventResize:
			o.screen.Sync()
		}
	}
}

// Close restores the terminal. Safe to call more than once.
func (o *Overview) Close() {
	o.once.Do(o.screen.Fini)
}
