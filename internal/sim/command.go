package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandWalk             CommandType = "Walk"
	CommandAttack           CommandType = "Attack"
	CommandDisengage        CommandType = "Disengage"
	CommandSetAutoRetaliate CommandType = "SetAutoRetaliate"
	CommandSetStyle         CommandType = "SetStyle"
	CommandHeartbeat        CommandType = "Heartbeat"
)

// WalkCommand carries the destination tile of a walk intent.
type WalkCommand struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// AttackCommand names the entity the actor wants to engage.
type AttackCommand struct {
	TargetID string `json:"targetId"`
}

// AutoRetaliateCommand flips the automatic counter-attack preference.
type AutoRetaliateCommand struct {
	Enabled bool `json:"enabled"`
}

// StyleCommand switches the actor's attack style by name.
type StyleCommand struct {
	Style string `json:"style"`
}

// HeartbeatCommand updates connectivity metadata for an actor.
type HeartbeatCommand struct {
	ReceivedAt time.Time     `json:"receivedAt"`
	ClientSent int64         `json:"clientSent"`
	RTT        time.Duration `json:"rtt"`
}

// Command represents an intent captured for processing on the next tick.
// Exactly one payload pointer matching Type is set.
type Command struct {
	OriginTick uint64      `json:"originTick"`
	ActorID    string      `json:"actorId"`
	Type       CommandType `json:"type"`
	IssuedAt   time.Time   `json:"issuedAt"`

	Walk          *WalkCommand          `json:"walk,omitempty"`
	Attack        *AttackCommand        `json:"attack,omitempty"`
	AutoRetaliate *AutoRetaliateCommand `json:"autoRetaliate,omitempty"`
	Style         *StyleCommand         `json:"style,omitempty"`
	Heartbeat     *HeartbeatCommand     `json:"heartbeat,omitempty"`
}
