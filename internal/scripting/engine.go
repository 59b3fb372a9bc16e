package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Engine wraps a single gopher-lua VM for game logic execution.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
	rng *rand.Rand
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// Missing directories are skipped, so an empty scripts dir gives an engine
// without a tank_ai function.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, rng: rand.New(rand.NewSource(1))}
	vm.SetGlobal("rand_int", vm.NewFunction(e.luaRandInt))

	// Load core helpers first, then AI scripts
	for _, sub := range []string{"core", "ai"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// SetRand replaces the source behind the Lua rand_int(n) helper so script
// decisions follow the server seed.
func (e *Engine) SetRand(r *rand.Rand) {
	e.rng = r
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// luaRandInt implements rand_int(n): a value in [0, n), or 0 for n <= 0.
func (e *Engine) luaRandInt(L *lua.LState) int {
	n := L.CheckInt(1)
	if n <= 0 {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(e.rng.Intn(n)))
	return 1
}

// --- Tank AI Bridge ---

// EnemyInfo is one enemy tank inside the deciding tank's view.
type EnemyInfo struct {
	ID   uint64
	X, Y uint32
	Dist float64
}

// TankAIContext holds pre-packed data for one tank's decision.
type TankAIContext struct {
	TankID    uint64
	X, Y      uint32
	Angle     float64
	MapWidth  uint32
	MapHeight uint32
	ViewRange uint32
	CanFire   bool

	// Enemies currently visible, ascending by id.
	Enemies []EnemyInfo
	// Tanks that came into view since the last decision.
	Sighted []uint64
}

// AI command types returned by tank_ai.
const (
	CmdMoveTo = "move_to"
	CmdFire   = "fire"
	CmdWait   = "wait"
)

// AICommand is a single action returned by Lua AI.
type AICommand struct {
	Type string // CmdMoveTo, CmdFire, CmdWait
	X, Y uint32 // destination for CmdMoveTo
}

// HasTankAI reports whether a tank_ai function is loaded.
func (e *Engine) HasTankAI() bool {
	return e.vm.GetGlobal("tank_ai") != lua.LNil
}

// RunTankAI calls Lua tank_ai(ctx) and returns a list of commands.
// Unknown command types are dropped; a script error yields no commands.
func (e *Engine) RunTankAI(ctx TankAIContext) []AICommand {
	fn := e.vm.GetGlobal("tank_ai")
	if fn == lua.LNil {
		return nil
	}

	// Build context table
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(ctx.TankID))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("angle", lua.LNumber(ctx.Angle))
	t.RawSetString("map_width", lua.LNumber(ctx.MapWidth))
	t.RawSetString("map_height", lua.LNumber(ctx.MapHeight))
	t.RawSetString("view_range", lua.LNumber(ctx.ViewRange))
	t.RawSetString("can_fire", lua.LBool(ctx.CanFire))

	enemies := e.vm.NewTable()
	for i, en := range ctx.Enemies {
		row := e.vm.NewTable()
		row.RawSetString("id", lua.LNumber(en.ID))
		row.RawSetString("x", lua.LNumber(en.X))
		row.RawSetString("y", lua.LNumber(en.Y))
		row.RawSetString("dist", lua.LNumber(en.Dist))
		enemies.RawSetInt(i+1, row)
	}
	t.RawSetString("enemies", enemies)

	sighted := e.vm.NewTable()
	for i, id := range ctx.Sighted {
		sighted.RawSetInt(i+1, lua.LNumber(id))
	}
	t.RawSetString("sighted", sighted)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua tank_ai error", zap.Error(err), zap.Uint64("tank_id", ctx.TankID))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	// Parse commands array in order
	var cmds []AICommand
	for i := 1; i <= rt.Len(); i++ {
		row, ok := rt.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}
		cmd := AICommand{Type: lStr(row, "type")}
		switch cmd.Type {
		case CmdMoveTo:
			cmd.X = lCoord(row, "x")
			cmd.Y = lCoord(row, "y")
		case CmdFire, CmdWait:
		default:
			e.log.Warn("unknown tank_ai command", zap.String("type", cmd.Type), zap.Uint64("tank_id", ctx.TankID))
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// --- Lua helpers ---

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// lCoord reads a coordinate field, saturating negatives to 0.
func lCoord(t *lua.LTable, key string) uint32 {
	v := float64(lua.LVAsNumber(t.RawGetString(key)))
	switch {
	case !(v > 0):
		return 0
	case v >= float64(^uint32(0)):
		return ^uint32(0)
	}
	return uint32(v)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
