package hub

import (
	"encoding/json"

	"github.com/google/uuid"

	"duskhaven/server/internal/journal"
	"duskhaven/server/internal/net/proto"
)

// subscriberBuffer is how many tick frames a slow consumer may fall
// behind before frames are shed for it.
const subscriberBuffer = 32

// Subscriber is one attached event-stream consumer. Frames are complete
// JSON tick frames; a consumer that cannot keep up loses frames, never
// slows the tick.
type Subscriber struct {
	id       string
	playerID string
	frames   chan []byte
	done     chan struct{}
}

// Frames is the subscriber's outbound stream. The channel closes when the
// subscriber is detached.
func (s *Subscriber) Frames() <-chan []byte {
	return s.frames
}

// PlayerID reports which player this subscription belongs to.
func (s *Subscriber) PlayerID() string {
	return s.playerID
}

func (s *Subscriber) close() {
	select {
	case <-s.done:
	default:
		close(s.done)
		close(s.frames)
	}
}

// Subscribe attaches an event-stream consumer for a joined player.
func (h *Hub) Subscribe(playerID string) (*Subscriber, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	if !h.KnowsPlayer(playerID) {
		return nil, ErrUnknownPlayer
	}
	sub := &Subscriber{
		id:       uuid.NewString(),
		playerID: playerID,
		frames:   make(chan []byte, subscriberBuffer),
		done:     make(chan struct{}),
	}
	h.subMu.Lock()
	h.subscribers[sub.id] = sub
	h.subMu.Unlock()
	return sub, nil
}

// Unsubscribe detaches a consumer. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.subMu.Lock()
	if _, ok := h.subscribers[sub.id]; ok {
		delete(h.subscribers, sub.id)
		sub.close()
	}
	h.subMu.Unlock()
}

// SubscriberCount reports the number of attached consumers.
func (h *Hub) SubscriberCount() int {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	return len(h.subscribers)
}

// broadcast marshals the tick frame once and fans it out. Sends never
// block: a full subscriber buffer drops the frame for that subscriber.
func (h *Hub) broadcast(tick uint64, digest journal.TickDigest, events []journal.Event) {
	frame := proto.TickFrame{
		Ver:      proto.Version,
		Type:     proto.TypeTick,
		Tick:     tick,
		Digest:   digest.Digest,
		Checksum: digest.Checksum,
		Events:   events,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		h.logf("tick frame marshal at %d failed: %v", tick, err)
		return
	}

	h.subMu.Lock()
	for _, sub := range h.subscribers {
		select {
		case sub.frames <- data:
			h.addMetric(metricFramesSent, 1)
		default:
			h.addMetric(metricFramesDropped, 1)
		}
	}
	h.subMu.Unlock()

	if h.sink != nil {
		h.sink.PublishFrame(tick, data)
	}
}
