package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/driftsim/server/internal/config"
	"github.com/driftsim/server/internal/core/ecs"
	"github.com/driftsim/server/internal/core/event"
	coresys "github.com/driftsim/server/internal/core/system"
	"github.com/driftsim/server/internal/data"
	"github.com/driftsim/server/internal/persist"
	"github.com/driftsim/server/internal/scripting"
	"github.com/driftsim/server/internal/system"
	"github.com/driftsim/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            driftsim  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     grid-traversal simulation server      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
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
	if p := os.Getenv("DRIFTSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations (optional)
	var (
		entityRepo *persist.EntityRepo
		auditRepo  *persist.TraversalLogRepo
	)
	if cfg.Database.Enabled {
		printSection("database")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("migrations applied (schema v%d)", version))
		fmt.Println()

		entityRepo = persist.NewEntityRepo(db)
		auditRepo = persist.NewTraversalLogRepo(db)
	}

	// 4. Create ECS world, event bus, and spatial world state
	ecsWorld := ecs.NewWorld()
	bus := event.NewBus()
	worldState := world.NewState(ecsWorld, cfg.Simulation.CellSize, log)

	// 5. Load world data
	printSection("world data")

	mapTable, err := data.LoadMapTable(cfg.Simulation.MapData)
	if err != nil {
		return fmt.Errorf("load map table: %w", err)
	}
	if err := mapTable.Apply(worldState); err != nil {
		return fmt.Errorf("apply map table: %w", err)
	}
	printStat("maps", mapTable.Count())
	printStat("grids", mapTable.GridTotal())

	// 6. Create systems and register with runner. Subscribers must exist
	// before scenario scripts run: boot spawns publish Moved, and an
	// unsubscribed traversal system would never hear about them.
	runner := coresys.NewRunner()
	runner.Register(system.NewDispatchSystem(bus))
	runner.Register(system.NewMovementSystem(worldState, bus, log))
	runner.Register(system.NewTraversalSystem(worldState, bus, log))
	runner.Register(system.NewStatsSystem(worldState, bus, cfg.Simulation.StatsInterval, log))
	persistSys := system.NewPersistenceSystem(worldState, bus, entityRepo, auditRepo, cfg.Simulation.SnapshotInterval, log)
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(ecsWorld, bus))

	// 7. Initialize Lua scenario engine (spawns boot entities)
	luaEngine, err := scripting.NewEngine(cfg.Simulation.ScriptsDir, worldState, bus, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	runner.Register(system.NewScriptSystem(luaEngine))
	printOK("scenario scripts loaded")
	printStat("entities", ecsWorld.Pool().Count())
	printStat("systems", runner.Count())
	fmt.Println()

	// 8. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			persistSys.Flush()
			log.Info("server stopped")
			return nil
		}
	}
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
