// Package intake converts inbound protocol messages into simulation
// commands. Everything that can be checked without the world — shape,
// required fields, known names — is checked here, so malformed input
// never reaches the tick.
package intake

import (
	"fmt"
	"time"

	"duskhaven/server/internal/net/proto"
	"duskhaven/server/internal/sim"
	"duskhaven/server/internal/stats"
)

// Reject reasons for messages refused before they become commands.
const (
	ReasonUnknownType        = "unknown_type"
	ReasonMissingDestination = "missing_destination"
	ReasonMissingTarget      = "missing_target"
	ReasonMissingEnabled     = "missing_enabled"
	ReasonInvalidStyle       = "invalid_style"
)

// Error is a validation failure with a protocol-stable reason.
type Error struct {
	Reason string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("intake: %s", e.Reason)
	}
	return fmt.Sprintf("intake: %s: %s", e.Reason, e.Detail)
}

// Command validates msg and builds the staged command for actorID.
func Command(actorID string, tick uint64, now time.Time, msg proto.ClientMessage) (sim.Command, *Error) {
	cmd := sim.Command{
		OriginTick: tick,
		ActorID:    actorID,
		IssuedAt:   now,
	}

	switch msg.Type {
	case proto.TypeWalk:
		if msg.X == nil || msg.Z == nil {
			return sim.Command{}, &Error{Reason: ReasonMissingDestination}
		}
		cmd.Type = sim.CommandWalk
		cmd.Walk = &sim.WalkCommand{X: *msg.X, Z: *msg.Z}
	case proto.TypeAttack:
		if msg.TargetID == "" {
			return sim.Command{}, &Error{Reason: ReasonMissingTarget}
		}
		cmd.Type = sim.CommandAttack
		cmd.Attack = &sim.AttackCommand{TargetID: msg.TargetID}
	case proto.TypeDisengage:
		cmd.Type = sim.CommandDisengage
	case proto.TypeAutoRetaliate:
		if msg.Enabled == nil {
			return sim.Command{}, &Error{Reason: ReasonMissingEnabled}
		}
		cmd.Type = sim.CommandSetAutoRetaliate
		cmd.AutoRetaliate = &sim.AutoRetaliateCommand{Enabled: *msg.Enabled}
	case proto.TypeStyle:
		if _, err := stats.ParseStyle(msg.Style); err != nil {
			return sim.Command{}, &Error{Reason: ReasonInvalidStyle, Detail: msg.Style}
		}
		cmd.Type = sim.CommandSetStyle
		cmd.Style = &sim.StyleCommand{Style: msg.Style}
	case proto.TypeHeartbeat:
		cmd.Type = sim.CommandHeartbeat
		cmd.Heartbeat = &sim.HeartbeatCommand{
			ReceivedAt: now,
			ClientSent: msg.SentAt,
		}
	default:
		return sim.Command{}, &Error{Reason: ReasonUnknownType, Detail: msg.Type}
	}
	return cmd, nil
}
