package sim

import (
	"sync"

	"duskhaven/server/internal/telemetry"
)

const (
	commandBufferOccupancyMetricKey = "sim_command_buffer_occupancy"
	commandBufferOverflowMetricKey  = "sim_command_buffer_overflow_total"
)

// CommandBuffer holds intents staged for the next tick in a fixed-size
// ring. Producers are the connection handlers; the sole consumer is the
// loop's drain at the tick boundary, which observes FIFO order so replay
// sees commands in arrival order.
type CommandBuffer struct {
	mu      sync.Mutex
	ring    []Command
	head    int
	count   int
	metrics telemetry.Metrics
}

// NewCommandBuffer constructs a ring holding at most capacity commands.
func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		ring:    make([]Command, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of staged commands.
func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.ring)
}

// Push stages a command. A full ring sheds the command and counts the
// overflow; the caller decides what to tell the client.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.ring) {
		if b.metrics != nil {
			b.metrics.Add(commandBufferOverflowMetricKey, 1)
		}
		return false
	}
	b.ring[(b.head+b.count)%len(b.ring)] = cmd
	b.count++
	b.recordOccupancyLocked()
	return true
}

// Drain returns every staged command in arrival order and resets the
// ring. Slots are cleared so drained payload pointers are not retained.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	drained := make([]Command, b.count)
	for i := range drained {
		idx := (b.head + i) % len(b.ring)
		drained[i] = b.ring[idx]
		b.ring[idx] = Command{}
	}
	b.head = 0
	b.count = 0
	b.recordOccupancyLocked()
	return drained
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *CommandBuffer) recordOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.count))
}
