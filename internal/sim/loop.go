package sim

import (
	"sync"
	"time"

	"duskhaven/server/internal/telemetry"
	"duskhaven/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to
	// per-actor queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is
	// saturated.
	CommandRejectQueueFull = "queue_full"
)

// DefaultTickInterval is the simulation step length when the config leaves
// it zero: 600 ms of game time per tick.
const DefaultTickInterval = 600 * time.Millisecond

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickInterval    time.Duration
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// Normalized fills zero fields with defaults.
func (c LoopConfig) Normalized() LoopConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.CommandCapacity <= 0 {
		c.CommandCapacity = 1024
	}
	if c.PerActorLimit <= 0 {
		c.PerActorLimit = 16
	}
	if c.WarningStep < 0 {
		c.WarningStep = 0
	}
	return c
}

// LoopHooks let the owner observe the loop without the loop importing it.
type LoopHooks struct {
	// NextTick supplies the tick number for the step about to run. The
	// loop counts from one on its own when nil.
	NextTick func() uint64
	// AfterStep runs after every completed step, outside the step itself.
	AfterStep func(StepResult)
	// OnCommandDrop fires for every command Enqueue refuses.
	OnCommandDrop func(reason string, cmd Command)
	// OnQueueWarning fires when the staged queue crosses a WarningStep
	// multiple.
	OnQueueWarning func(length int)
}

// StepResult summarizes one executed tick.
type StepResult struct {
	Tick     uint64
	Now      time.Time
	Commands int
	Duration time.Duration
	Budget   time.Duration
}

// Loop coordinates command ingestion and the fixed-timestep runner. All
// simulation work happens on the goroutine running Run; producers only
// touch the buffer.
type Loop struct {
	core    EngineCore
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64

	fallbackTick uint64
}

// NewLoop wraps the provided engine core with a ring-buffer queue and loop.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks, logger telemetry.Logger, metrics telemetry.Metrics) *Loop {
	if core == nil {
		return nil
	}
	cfg = cfg.Normalized()
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
		clock:         logging.SystemClock{},
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// SetClock overrides the wall clock, for tests.
func (l *Loop) SetClock(clock logging.Clock) {
	if l == nil || clock == nil {
		return
	}
	l.clock = clock
}

// Config returns the normalized loop configuration.
func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity
// limits. It returns false and a reject reason when the command is shed.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(tick uint64, now time.Time) StepResult {
	if l == nil {
		return StepResult{}
	}
	commands := l.drainCommands()
	start := l.clock.Now()
	l.core.AdvanceTick(tick, commands)
	return StepResult{
		Tick:     tick,
		Now:      now,
		Commands: len(commands),
		Duration: l.clock.Now().Sub(start),
		Budget:   l.config.TickInterval,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes. Each
// ticker fire advances exactly one tick; a late tick runs late rather than
// being skipped, keeping the tick sequence contiguous.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	ticker := time.NewTicker(l.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tick := l.nextTick()
			result := l.Advance(tick, l.clock.Now())
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) nextTick() uint64 {
	if l.hooks.NextTick != nil {
		return l.hooks.NextTick()
	}
	l.fallbackTick++
	return l.fallbackTick
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		if l.logger != nil {
			l.logger.Printf(
				"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
				cmd.ActorID,
				cmd.Type,
				reason,
				count,
				l.config.PerActorLimit,
			)
		}
	}
}
