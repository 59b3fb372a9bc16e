package main

import (
	"math"
	"testing"

	"github.com/tankwar/server/internal/config"
	"github.com/tankwar/server/internal/core/event"
	"github.com/tankwar/server/internal/data"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

func TestSpreadStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for range 1000 {
		if v := spread(100, 20, rng); v < 80 || v > 120 {
			t.Fatalf("spread(100, 20) = %d", v)
		}
		if v := spread(5, 20, rng); v > 25 {
			t.Fatalf("spread(5, 20) = %d", v)
		}
		if v := spread(math.MaxUint32-1, 20, rng); v < math.MaxUint32-21 {
			t.Fatalf("spread near max = %d", v)
		}
	}
	if v := spread(7, 0, rng); v != 7 {
		t.Errorf("spread without radius = %d", v)
	}
}

func TestSpawnTanksFromList(t *testing.T) {
	tanks, err := data.ParseTankTable([]byte(`
tanks:
  - name: light
    speed: 120
    view_range: 300
    reload_ticks: 10
    bullet: {speed: 600, range: 500, hit_radius: 16}
`))
	if err != nil {
		t.Fatal(err)
	}
	m, err := world.NewMap(config.MapConfig{Width: 1024, Height: 1024, CellSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	state := world.NewState(m, event.NewBus(), zap.NewNop())
	spawns := []data.SpawnEntry{
		{Tank: "light", X: 500, Y: 500, Count: 5, RandomX: 100, RandomY: 100},
		{Tank: "light", X: 10, Y: 10, Count: 1, Controlled: true},
	}
	n := spawnTanks(state, tanks, spawns, rand.New(rand.NewSource(1)), zap.NewNop())
	if n != 6 || state.TankCount() != 6 {
		t.Errorf("spawned %d, state holds %d, want 6", n, state.TankCount())
	}
	controlled := 0
	state.EachTank(func(tk *world.Tank) {
		if tk.Controlled() {
			controlled++
		}
	})
	if controlled != 1 {
		t.Errorf("controlled tanks = %d, want 1", controlled)
	}
}
