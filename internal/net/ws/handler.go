// Package ws runs the websocket side of a player connection: decode
// intents, stage them with the hub, pump tick frames back out.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"duskhaven/server/internal/hub"
	"duskhaven/server/internal/net/intake"
	"duskhaven/server/internal/net/proto"
	"duskhaven/server/internal/telemetry"
	"duskhaven/server/logging"
	"duskhaven/server/logging/network"
)

// Handler coordinates websocket sessions against one hub.
type Handler struct {
	hub       *hub.Hub
	logger    telemetry.Logger
	publisher logging.Publisher
}

// NewHandler constructs a websocket session handler.
func NewHandler(h *hub.Hub, logger telemetry.Logger, publisher logging.Publisher) *Handler {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Handler{hub: h, logger: logger, publisher: publisher}
}

// Serve owns the connection for a joined player until either side drops
// it. The player leaves the world when the socket dies.
func (h *Handler) Serve(playerID string, conn *websocket.Conn) {
	if h == nil || h.hub == nil || conn == nil {
		return
	}

	sess := newSession(conn)
	sub, err := h.hub.Subscribe(playerID)
	if err != nil {
		sess.writeClose(websocket.ClosePolicyViolation, "unknown player")
		sess.close()
		return
	}

	stopPump := make(chan struct{})
	go h.pumpFrames(sub, sess, stopPump)

	h.readLoop(playerID, sess)

	close(stopPump)
	h.teardown(playerID, sub, sess)
}

// pumpFrames copies tick frames and keepalive pings to the socket until
// the subscription or session ends.
func (h *Handler) pumpFrames(sub *hub.Subscriber, sess *session, stop <-chan struct{}) {
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()
	for {
		select {
		case <-stop:
			return
		case frame, ok := <-sub.Frames():
			if !ok {
				return
			}
			if err := sess.writeText(frame); err != nil {
				return
			}
		case <-pings.C:
			if err := sess.writePing(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(playerID string, sess *session) {
	for {
		_, payload, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.rejectIntent(playerID, sess, 0, "malformed_json")
			continue
		}

		if msg.Type == proto.TypeHeartbeat {
			h.answerHeartbeat(sess, msg)
			// Heartbeats still flow through the queue so connectivity
			// shows up in command accounting.
		}

		cmd, intakeErr := intake.Command(playerID, h.hub.Tick(), time.Now(), msg)
		if intakeErr != nil {
			h.rejectIntent(playerID, sess, msg.Seq, intakeErr.Reason)
			continue
		}

		if ok, reason := h.hub.Enqueue(cmd); !ok {
			h.writeJSON(sess, proto.RejectMessage{
				Ver: proto.Version, Type: proto.TypeReject,
				Seq: msg.Seq, Reason: reason, Tick: h.hub.Tick(),
			})
			continue
		}
		if msg.Seq > 0 {
			h.writeJSON(sess, proto.AckMessage{
				Ver: proto.Version, Type: proto.TypeAck,
				Seq: msg.Seq, Tick: h.hub.Tick(),
			})
		}
	}
}

func (h *Handler) answerHeartbeat(sess *session, msg proto.ClientMessage) {
	h.writeJSON(sess, proto.HeartbeatMessage{
		Ver:        proto.Version,
		Type:       proto.TypeHeartbeat,
		ServerTime: time.Now().UnixMilli(),
		ClientTime: msg.SentAt,
	})
}

func (h *Handler) rejectIntent(playerID string, sess *session, seq uint64, reason string) {
	network.IntentRejected(context.Background(), h.publisher, h.hub.Tick(),
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		network.IntentRejectedPayload{Reason: reason})
	h.writeJSON(sess, proto.RejectMessage{
		Ver: proto.Version, Type: proto.TypeReject,
		Seq: seq, Reason: reason, Tick: h.hub.Tick(),
	})
}

func (h *Handler) writeJSON(sess *session, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	sess.writeText(data)
}

func (h *Handler) teardown(playerID string, sub *hub.Subscriber, sess *session) {
	h.hub.Unsubscribe(sub)
	sess.close()
	if err := h.hub.Leave(context.Background(), playerID); err != nil && h.logger != nil {
		h.logger.Printf("leave for %s failed: %v", playerID, err)
	}
}
