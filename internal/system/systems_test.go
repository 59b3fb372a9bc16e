package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/tankwar/server/internal/config"
	"github.com/tankwar/server/internal/core/ecs"
	"github.com/tankwar/server/internal/core/event"
	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/data"
	"github.com/tankwar/server/internal/persist"
	"github.com/tankwar/server/internal/scripting"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const tick = 50 * time.Millisecond

func tpl() *data.TankTemplate {
	return &data.TankTemplate{
		Name:        "test",
		Speed:       200,
		ViewRange:   300,
		ReloadTicks: 2,
		Bullet:      data.BulletTemplate{Speed: 500, Range: 400, HitRadius: 20},
	}
}

func newState(t *testing.T) *world.State {
	t.Helper()
	m, err := world.NewMap(config.MapConfig{Width: 2048, Height: 2048, CellSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	return world.NewState(m, event.NewBus(), zap.NewNop())
}

func spawn(t *testing.T, s *world.State, x, y uint32, controlled bool) *world.Tank {
	t.Helper()
	tk, err := s.SpawnTank(tpl(), x, y, controlled)
	if err != nil {
		t.Fatal(err)
	}
	return tk
}

func coreRunner(s *world.State, extra ...coresys.System) *coresys.Runner {
	r := coresys.NewRunner()
	r.Register(NewCleanupSystem(s, zap.NewNop()))
	r.Register(NewCombatSystem(s, zap.NewNop()))
	r.Register(NewMovementSystem(s, zap.NewNop()))
	r.Register(NewEventDispatchSystem(s.Bus()))
	for _, sys := range extra {
		r.Register(sys)
	}
	return r
}

func run(r *coresys.Runner, from time.Time, n int) time.Time {
	now := from
	for range n {
		now = now.Add(tick)
		r.Tick(now)
	}
	return now
}

func TestBulletDestroysEnemyTank(t *testing.T) {
	s := newState(t)
	shooter := spawn(t, s, 100, 100, true)
	enemy := spawn(t, s, 300, 100, true)

	var destroyed []event.UnitDestroyed
	event.Subscribe(s.Bus(), func(e event.UnitDestroyed) { destroyed = append(destroyed, e) })

	r := coreRunner(s)
	b, err := s.Fire(shooter, t0)
	if err != nil {
		t.Fatal(err)
	}
	run(r, t0, 20)

	if _, ok := s.Tank(enemy.ID()); ok {
		t.Fatal("enemy tank survived the hit")
	}
	if _, ok := s.Tank(shooter.ID()); !ok {
		t.Fatal("shooter destroyed by its own bullet")
	}
	if s.BulletCount() != 0 {
		t.Errorf("bullets left = %d", s.BulletCount())
	}
	want := []event.UnitDestroyed{
		{ID: enemy.ID(), Kind: ecs.KindTank, By: shooter.ID()},
		{ID: b.ID(), Kind: ecs.KindBullet, By: shooter.ID()},
	}
	if len(destroyed) != 2 {
		t.Fatalf("destroyed events = %+v", destroyed)
	}
	for i := range want {
		got := destroyed[i]
		if got.ID != want[i].ID || got.Kind != want[i].Kind || got.By != want[i].By {
			t.Errorf("event %d = %+v, want %+v", i, got, want[i])
		}
	}
	if slices.Contains(s.Map().Visible(shooter.ID()), enemy.ID()) {
		t.Errorf("shooter still sees the destroyed enemy")
	}
}

func TestBulletExpiresAtEndOfFlight(t *testing.T) {
	s := newState(t)
	shooter := spawn(t, s, 100, 100, true)
	r := coreRunner(s)
	if _, err := s.Fire(shooter, t0); err != nil {
		t.Fatal(err)
	}
	// 400 units at 500/s: 0.8 s = 16 ticks.
	now := run(r, t0, 15)
	if s.BulletCount() != 1 {
		t.Fatalf("bullet gone early, count=%d", s.BulletCount())
	}
	run(r, now, 2)
	if s.BulletCount() != 0 {
		t.Errorf("bullet did not expire, count=%d", s.BulletCount())
	}
	if s.Map().Len() != 1 {
		t.Errorf("map holds %d units, want 1", s.Map().Len())
	}
}

func TestWanderOrdersOnlyAITanks(t *testing.T) {
	s := newState(t)
	ai := spawn(t, s, 1000, 1000, false)
	player := spawn(t, s, 10, 10, true)

	aiSys := NewAISystem(s, nil, rand.New(rand.NewSource(7)), 1, zap.NewNop())
	aiSys.Update(t0)

	if !ai.Position().Moving() {
		t.Error("AI tank got no order")
	}
	if player.Position().Moving() {
		t.Error("controlled tank got an AI order")
	}
	tx, ty, _ := ai.Position().Target()
	if tx >= 2048 || ty >= 2048 {
		t.Errorf("wander target (%d,%d) off map", tx, ty)
	}

	// Same seed, same order.
	s2 := newState(t)
	ai2 := spawn(t, s2, 1000, 1000, false)
	NewAISystem(s2, nil, rand.New(rand.NewSource(7)), 1, zap.NewNop()).Update(t0)
	tx2, ty2, _ := ai2.Position().Target()
	if tx != tx2 || ty != ty2 {
		t.Errorf("seeded wander differs: (%d,%d) vs (%d,%d)", tx, ty, tx2, ty2)
	}
}

func TestWanderEngagesVisibleEnemy(t *testing.T) {
	s := newState(t)
	ai := spawn(t, s, 100, 100, false)
	enemy := spawn(t, s, 100, 250, true)

	NewAISystem(s, nil, rand.New(rand.NewSource(1)), 1, zap.NewNop()).Update(t0)

	tx, ty, _ := ai.Position().Target()
	if ex, ey := enemy.Position().XY(); tx != ex || ty != ey {
		t.Errorf("AI heads to (%d,%d), want enemy at (%d,%d)", tx, ty, ex, ey)
	}
	if s.BulletCount() != 1 || ai.CanFire() {
		t.Errorf("AI did not fire: bullets=%d", s.BulletCount())
	}
}

func TestAIIntervalAndReload(t *testing.T) {
	s := newState(t)
	ai := spawn(t, s, 100, 100, false)
	spawn(t, s, 100, 250, true)
	sys := NewAISystem(s, nil, rand.New(rand.NewSource(1)), 3, zap.NewNop())

	sys.Update(t0)
	sys.Update(t0)
	if ai.Position().Moving() {
		t.Fatal("AI decided before its interval")
	}
	sys.Update(t0)
	if s.BulletCount() != 1 {
		t.Fatalf("bullets = %d after first decision", s.BulletCount())
	}
	if ai.CanFire() {
		t.Fatal("reload not started")
	}
	sys.Update(t0)
	sys.Update(t0)
	if !ai.CanFire() {
		t.Error("reload not finished after ReloadTicks updates")
	}
}

func TestLuaScriptDrivesTank(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "ai"), 0o755); err != nil {
		t.Fatal(err)
	}
	src := `
function tank_ai(ctx)
  if #ctx.sighted > 0 then
    return {{type="move_to", x=ctx.map_width - 1, y=0}, {type="wait"}, {type="fire"}}
  end
  return {{type="move_to", x=500, y=600}}
end
`
	if err := os.WriteFile(filepath.Join(dir, "ai", "tank.lua"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	engine, err := scripting.NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	s := newState(t)
	ai := spawn(t, s, 100, 100, false)
	r := coreRunner(s, NewAISystem(s, engine, rand.New(rand.NewSource(1)), 1, zap.NewNop()))

	spawn(t, s, 150, 100, true) // sighted on spawn, delivered next tick
	r.Tick(t0)

	tx, ty, ok := ai.Position().Target()
	if !ok || tx != 2047 || ty != 0 {
		t.Errorf("target = (%d,%d,%v), want (2047,0,true)", tx, ty, ok)
	}
	if s.BulletCount() != 0 {
		t.Errorf("fire after wait was executed")
	}
}

type fakeWriter struct {
	batches [][]persist.JournalEntry
	err     error
}

func (w *fakeWriter) WriteEntries(_ context.Context, entries []persist.JournalEntry) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, slices.Clone(entries))
	return nil
}

func TestJournalBatchesEvents(t *testing.T) {
	s := newState(t)
	w := &fakeWriter{}
	journal := NewJournalSystem(s.Bus(), w, 2, time.Second, zap.NewNop())
	r := coreRunner(s, journal)

	a := spawn(t, s, 100, 100, true)
	spawn(t, s, 300, 100, true)
	if _, err := s.Fire(a, t0); err != nil {
		t.Fatal(err)
	}
	now := run(r, t0, 2)

	if len(w.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(w.batches))
	}
	var kinds []string
	for _, e := range w.batches[0] {
		kinds = append(kinds, e.Event)
		if e.Tick != 0 || !e.At.Equal(t0.Add(tick)) {
			t.Errorf("entry %+v stamped wrong", e)
		}
	}
	if !slices.Equal(kinds, []string{persist.EventSpawn, persist.EventSpawn, persist.EventShot}) {
		t.Errorf("events = %v", kinds)
	}

	run(r, now, 20)
	var destroys int
	for _, b := range w.batches[1:] {
		for _, e := range b {
			if e.Event == persist.EventDestroy {
				destroys++
			}
		}
	}
	if destroys != 2 {
		t.Errorf("destroy entries = %d, want 2 (tank and bullet)", destroys)
	}
}

func TestJournalKeepsBacklogOnFailure(t *testing.T) {
	bus := event.NewBus()
	w := &fakeWriter{err: errors.New("db down")}
	journal := NewJournalSystem(bus, w, 1, time.Second, zap.NewNop())

	event.Emit(bus, event.UnitSpawned{ID: 1, Kind: ecs.KindTank})
	bus.SwapBuffers()
	bus.DispatchAll()
	journal.Update(t0)
	if journal.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", journal.Pending())
	}

	w.err = nil
	if err := journal.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if journal.Pending() != 0 || len(w.batches) != 1 {
		t.Errorf("pending=%d batches=%d after recovery", journal.Pending(), len(w.batches))
	}
}

func TestSnapshotSystemInterval(t *testing.T) {
	s := newState(t)
	spawn(t, s, 10, 10, true)
	var ticks []uint64
	sys := NewSnapshotSystem(s, SnapshotSinkFunc(func(snap world.Snapshot) {
		ticks = append(ticks, snap.Tick)
		if len(snap.Units) != 1 {
			t.Errorf("snapshot units = %d", len(snap.Units))
		}
	}), 3)
	for range 7 {
		sys.Update(t0)
	}
	if !slices.Equal(ticks, []uint64{0, 3, 6}) {
		t.Errorf("snapshot ticks = %v", ticks)
	}
}
