// Package app assembles a runnable server from environment configuration:
// logging pipeline, persistence, bestiary, hub and HTTP surface.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"duskhaven/server/internal/bestiary"
	"duskhaven/server/internal/grid"
	"duskhaven/server/internal/hub"
	servernet "duskhaven/server/internal/net"
	"duskhaven/server/internal/net/stream"
	"duskhaven/server/internal/persist"
	"duskhaven/server/internal/sim"
	"duskhaven/server/internal/stats"
	"duskhaven/server/internal/telemetry"
	"duskhaven/server/internal/world"
	"duskhaven/server/logging"
	loggingSinks "duskhaven/server/logging/sinks"
)

// Config carries the few knobs not read from the environment.
type Config struct {
	Addr   string
	Logger telemetry.Logger
}

// Run wires the process and serves until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context, cfg Config) error {
	process := newProcessLogger()
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = process
	}

	router, err := newEventRouter(process)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	counters := telemetry.NewCounters()

	worldCfg := world.DefaultConfig()
	if seed := os.Getenv("WORLD_SEED"); seed != "" {
		worldCfg.Seed = seed
	}
	if ticks, ok := envUint(telemetryLogger, "FIRST_ATTACK_DELAY_TICKS"); ok {
		worldCfg.FirstAttackDelayTicks = ticks
	}

	loopCfg := sim.LoopConfig{TickInterval: sim.DefaultTickInterval}
	if ms, ok := envUint(telemetryLogger, "TICK_INTERVAL_MS"); ok && ms > 0 {
		loopCfg.TickInterval = time.Duration(ms) * time.Millisecond
	}

	hubCfg := hub.Config{
		SessionID:    uuid.NewString(),
		World:        worldCfg,
		Loop:         loopCfg,
		InitialMobs:  seedMobs(worldCfg),
		StarterItems: starterItems(),
	}
	if ticks, ok := envUint(telemetryLogger, "SNAPSHOT_INTERVAL_TICKS"); ok {
		hubCfg.SnapshotInterval = ticks
	}

	deps := hub.Deps{
		Publisher: router,
		Logger:    telemetryLogger,
		Metrics:   counters,
	}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		store, err := persist.NewPostgres(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		deps.Prefs = store
		deps.Snapshots = store
		telemetryLogger.Printf("preferences and snapshots persisted to postgres")
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		forwarder, err := stream.NewForwarder(ctx, natsURL, hubCfg.SessionID, telemetryLogger, counters)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer forwarder.Close()
		deps.Sink = forwarder
		telemetryLogger.Printf("tick frames forwarded to %s", stream.Subject)
	}

	session, err := hub.New(hubCfg, deps)
	if err != nil {
		return fmt.Errorf("construct hub: %w", err)
	}

	stop := make(chan struct{})
	go session.Run(stop)
	defer func() {
		close(stop)
		session.Close()
	}()

	handler := servernet.NewHTTPHandler(session, servernet.HTTPHandlerConfig{
		Logger:    telemetryLogger,
		Publisher: router,
		Catalog:   bestiary.Builtin(),
	})

	addr := cfg.Addr
	if addr == "" {
		addr = os.Getenv("ADDR")
	}
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("session %s listening on %s", session.SessionID(), addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// newProcessLogger builds the operational logger from LOG_LEVEL/LOG_FORMAT.
func newProcessLogger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// newEventRouter builds the gameplay event pipeline: console always, a
// JSON-lines file when LOG_JSON_PATH names one.
func newEventRouter(fallback *logrus.Logger) (*logging.Router, error) {
	logCfg := logging.DefaultConfig()
	sinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout, logCfg.Console)},
	}
	if path := os.Getenv("LOG_JSON_PATH"); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		logCfg.EnabledSinks = append(logCfg.EnabledSinks, "json")
		logCfg.JSON.FilePath = path
		sinks = append(sinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logCfg.JSON.FlushInterval),
		})
	}
	return logging.NewRouter(logging.SystemClock{}, logCfg, fallback, sinks)
}

// seedMobs places the starter population at fixed offsets from the player
// spawn so every session with the same seed opens identically.
func seedMobs(cfg world.Config) []world.MobSpec {
	catalog := bestiary.Builtin()
	origins := map[string][]grid.Tile{
		"rat": {
			{X: cfg.Spawn.X - 6, Z: cfg.Spawn.Z - 4},
			{X: cfg.Spawn.X + 5, Z: cfg.Spawn.Z - 6},
		},
		"goblin": {
			{X: cfg.Spawn.X + 10, Z: cfg.Spawn.Z + 8},
			{X: cfg.Spawn.X - 12, Z: cfg.Spawn.Z + 9},
		},
		"ghoul": {
			{X: cfg.Spawn.X + 20, Z: cfg.Spawn.Z - 18},
		},
		"bog-warden": {
			{X: cfg.Spawn.X - 28, Z: cfg.Spawn.Z - 26},
		},
		"bog-giant": {
			{X: cfg.Spawn.X + 26, Z: cfg.Spawn.Z + 24},
		},
	}

	var specs []world.MobSpec
	for _, id := range catalog.IDs() {
		archetype, ok := catalog.Get(id)
		if !ok {
			continue
		}
		for _, origin := range origins[id] {
			if origin.X < 0 || origin.Z < 0 || origin.X >= cfg.Width || origin.Z >= cfg.Height {
				continue
			}
			specs = append(specs, archetype.Spec(origin))
		}
	}
	return specs
}

// starterItems is the loadout every joining player gets.
func starterItems() []stats.Item {
	return []stats.Item{
		{
			ID:      "bronze-sword",
			Name:    "Bronze sword",
			Slot:    stats.SlotWeapon,
			Bonuses: stats.Bonuses{Attack: 4, Strength: 3},
			Speed:   5,
		},
	}
}

// envUint reads an unsigned integer environment variable, logging and
// ignoring malformed values.
func envUint(logger telemetry.Logger, name string) (uint64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", name, raw, err)
		return 0, false
	}
	return value, true
}
