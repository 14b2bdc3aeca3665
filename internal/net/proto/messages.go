// Package proto defines the JSON wire contract between the server and its
// clients. The simulation never sees these types; intake converts inbound
// messages into commands and the hub renders outbound frames from journal
// records.
package proto

import (
	"duskhaven/server/internal/journal"
)

// Version is the protocol revision stamped on every message.
const Version = 1

// Client message types.
const (
	TypeWalk          = "walk"
	TypeAttack        = "attack"
	TypeDisengage     = "disengage"
	TypeAutoRetaliate = "autoRetaliate"
	TypeStyle         = "style"
	TypeHeartbeat     = "heartbeat"
)

// Server message types.
const (
	TypeJoined = "joined"
	TypeTick   = "tick"
	TypeAck    = "ack"
	TypeReject = "reject"
)

// ClientMessage is the single inbound envelope. Type selects which fields
// matter; everything else is ignored.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`
	// Seq is the client's own command sequence, echoed in acks and
	// rejects so the client can reconcile.
	Seq uint64 `json:"seq,omitempty"`

	// Walk destination.
	X *int `json:"x,omitempty"`
	Z *int `json:"z,omitempty"`

	// Attack target.
	TargetID string `json:"targetId,omitempty"`

	// Auto-retaliate preference.
	Enabled *bool `json:"enabled,omitempty"`

	// Style name: accurate, aggressive, defensive, controlled.
	Style string `json:"style,omitempty"`

	// Heartbeat echo timestamp, unix milliseconds.
	SentAt int64 `json:"sentAt,omitempty"`
}

// TilePosition is a tile coordinate on the wire.
type TilePosition struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// JoinedMessage confirms a join and tells the client where it stands.
type JoinedMessage struct {
	Ver            int          `json:"ver"`
	Type           string       `json:"type"`
	ID             string       `json:"id"`
	Spawn          TilePosition `json:"spawn"`
	Tick           uint64       `json:"tick"`
	TickIntervalMS int64        `json:"tickIntervalMs"`
}

// TickFrame is the per-tick broadcast: every journal event sealed since
// the previous frame plus the tick's digest, the client's sole source of
// truth for combat outcomes.
type TickFrame struct {
	Ver      int             `json:"ver"`
	Type     string          `json:"type"`
	Tick     uint64          `json:"tick"`
	Digest   uint64          `json:"digest"`
	Checksum uint64          `json:"checksum"`
	Events   []journal.Event `json:"events,omitempty"`
}

// AckMessage confirms a command was staged for the next tick.
type AckMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick,omitempty"`
}

// RejectMessage reports a dropped command and why.
type RejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Tick   uint64 `json:"tick,omitempty"`
}

// HeartbeatMessage answers a client heartbeat.
type HeartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}
