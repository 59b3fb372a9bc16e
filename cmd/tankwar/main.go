package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tankwar/server/internal/config"
	"github.com/tankwar/server/internal/core/event"
	coresys "github.com/tankwar/server/internal/core/system"
	"github.com/tankwar/server/internal/data"
	"github.com/tankwar/server/internal/persist"
	"github.com/tankwar/server/internal/scripting"
	"github.com/tankwar/server/internal/spectate"
	"github.com/tankwar/server/internal/system"
	"github.com/tankwar/server/internal/tui"
	"github.com/tankwar/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/exp/rand"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              tankwar  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("TANKWAR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	seed := cfg.Server.Seed
	if seed == 0 {
		seed = uint64(cfg.Server.StartTime)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Battle journal (optional)
	var journalRepo *persist.JournalRepo
	if cfg.Journal.Enabled {
		printSection("journal")
		connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(connectCtx, cfg.Journal, log)
		if err != nil {
			connectCancel()
			return fmt.Errorf("connect journal db: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(connectCtx, db.Pool, log); err != nil {
			connectCancel()
			return fmt.Errorf("migrate journal db: %w", err)
		}
		connectCancel()
		journalRepo = persist.NewJournalRepo(db)
		printOK("PostgreSQL connected, migrations applied")
	}

	// 4. Load static data
	printSection("data")
	tanks, err := data.LoadTankTable(cfg.Data.TankList)
	if err != nil {
		return fmt.Errorf("load tanks: %w", err)
	}
	printStat("tank templates", tanks.Count())
	spawns, err := data.LoadSpawnList(cfg.Data.SpawnList, tanks)
	if err != nil {
		return fmt.Errorf("load spawns: %w", err)
	}
	printStat("spawn entries", len(spawns))

	// 5. Scripting
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("init lua: %w", err)
	}
	defer engine.Close()
	engine.SetRand(rand.New(rand.NewSource(seed + 1)))
	if engine.HasTankAI() {
		printOK("Lua tank_ai loaded")
	} else {
		printOK("no tank_ai script, tanks wander")
	}

	// 6. World
	printSection("world")
	gameMap, err := world.NewMap(cfg.Map)
	if err != nil {
		return fmt.Errorf("create map: %w", err)
	}
	bus := event.NewBus()
	state := world.NewState(gameMap, bus, log)
	rng := rand.New(rand.NewSource(seed))

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewAISystem(state, engine, rng, cfg.Simulation.AIInterval, log))
	runner.Register(system.NewMovementSystem(state, log))
	runner.Register(system.NewCombatSystem(state, log))
	var journal *system.JournalSystem
	if journalRepo != nil {
		journal = system.NewJournalSystem(bus, journalRepo, cfg.Journal.FlushInterval, cfg.Journal.WriteTimeout, log)
		runner.Register(journal)
	}
	runner.Register(system.NewCleanupSystem(state, log))

	spawned := spawnTanks(state, tanks, spawns, rng, log)
	rows, cols := gameMap.Dims()
	printStat("grid rows", rows)
	printStat("grid cols", cols)
	printStat("tanks spawned", spawned)

	// 7. Outputs
	quit := make(chan struct{}, 1)
	if cfg.Spectator.Enabled {
		hub := spectate.NewHub(cfg.Spectator.ClientQueue, log)
		runner.Register(system.NewSnapshotSystem(state, hub, cfg.Spectator.Interval))
		go func() {
			if err := hub.Serve(ctx, cfg.Spectator.BindAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("spectator server stopped", zap.Error(err))
			}
		}()
	}
	if cfg.Overview.Enabled {
		overview, err := tui.Open(log)
		if err != nil {
			return fmt.Errorf("open terminal overview: %w", err)
		}
		defer overview.Close()
		runner.Register(system.NewSnapshotSystem(state, system.SnapshotSinkFunc(overview.Render), cfg.Overview.Interval))
		go overview.PollQuit(func() {
			select {
			case quit <- struct{}{}:
			default:
			}
		})
	}

	// 8. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("ready")
	if cfg.Spectator.Enabled {
		printReady(fmt.Sprintf("spectators on ws://%s/ws", cfg.Spectator.BindAddress))
	}
	printReady(fmt.Sprintf("game loop running (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			last = now
			runner.Tick(now)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return shutdown(cancel, runner, journal, journalRepo, last, log)
		case <-quit:
			return shutdown(cancel, runner, journal, journalRepo, last, log)
		}
	}
}

// shutdown stops the outputs, delivers the events of the last tick and
// writes what the journal still holds.
func shutdown(cancel context.CancelFunc, runner *coresys.Runner, journal *system.JournalSystem, repo *persist.JournalRepo, now time.Time, log *zap.Logger) error {
	cancel()
	runner.TickPhase(coresys.PhaseInput, now)
	if journal != nil {
		runner.TickPhase(coresys.PhasePersist, now)
		ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := journal.Flush(ctx); err != nil {
			log.Error("final journal flush failed", zap.Error(err), zap.Int("lost", journal.Pending()))
		} else if n, err := repo.CountSince(ctx, 0); err == nil {
			log.Info("journal flushed", zap.Int64("rows", n))
		}
	}
	log.Info("server stopped", zap.Uint64("ticks", runner.Ticks()))
	return nil
}

// spawnTanks places the startup tanks, spreading each entry's count
// randomly within ±RandomX/±RandomY of its anchor.
func spawnTanks(state *world.State, tanks *data.TankTable, spawns []data.SpawnEntry, rng *rand.Rand, log *zap.Logger) int {
	total := 0
	for _, sp := range spawns {
		tpl := tanks.Get(sp.Tank)
		for i := 0; i < sp.Count; i++ {
			x := spread(sp.X, sp.RandomX, rng)
			y := spread(sp.Y, sp.RandomY, rng)
			if _, err := state.SpawnTank(tpl, x, y, sp.Controlled); err != nil {
				log.Warn("spawn failed", zap.String("tank", sp.Tank), zap.Error(err))
				continue
			}
			total++
		}
	}
	return total
}

// spread returns a value in [v-r, v+r], saturating at the uint32 range.
func spread(v, r uint32, rng *rand.Rand) uint32 {
	if r == 0 {
		return v
	}
	off := rng.Int63n(int64(r)*2+1) - int64(r)
	return uint32(min(max(int64(v)+off, 0), math.MaxUint32))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
