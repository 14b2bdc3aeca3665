package combat

import (
	"context"

	"duskhaven/server/logging"
)

const (
	// EventDamage is emitted when a swing resolves against a target.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when a combatant drops to zero health.
	EventDefeat logging.EventType = "combat.defeat"
	// EventAggro is emitted when a mob acquires a target.
	EventAggro logging.EventType = "combat.aggro"
	// EventReject is emitted when a combat intent is refused at the boundary.
	EventReject logging.EventType = "combat.reject"
)

// DamagePayload captures the outcome of one resolved swing.
type DamagePayload struct {
	Hit          bool `json:"hit"`
	Damage       int  `json:"damage"`
	MaxHit       int  `json:"maxHit"`
	TargetHealth int  `json:"targetHealth"`
}

// DefeatPayload describes the fatal blow.
type DefeatPayload struct {
	RespawnTick uint64 `json:"respawnTick,omitempty"`
}

// AggroPayload records how a target was picked.
type AggroPayload struct {
	Eligible int `json:"eligible"`
}

// RejectPayload names the refused intent and why.
type RejectPayload struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

// Damage publishes a combat damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Defeat publishes a combat defeat event for the eliminated combatant.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DefeatPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Aggro publishes a target acquisition event.
func Aggro(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload AggroPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAggro,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Reject publishes a boundary rejection for an invalid combat intent.
func Reject(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RejectPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReject,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
