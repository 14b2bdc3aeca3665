package network

import (
	"context"

	"duskhaven/server/logging"
)

const (
	// EventIntentRejected is emitted when a websocket intent fails decoding
	// or validation before reaching the simulation.
	EventIntentRejected logging.EventType = "network.intent_rejected"
	// EventAckRegression is emitted when a client heartbeat reports an older
	// tick than previously acknowledged.
	EventAckRegression logging.EventType = "network.ack_regression"
)

// IntentRejectedPayload names the refused intent.
type IntentRejectedPayload struct {
	Intent string `json:"intent"`
	Reason string `json:"reason"`
}

// AckPayload captures acknowledgement progression details.
type AckPayload struct {
	Previous uint64 `json:"previous"`
	Ack      uint64 `json:"ack"`
}

// IntentRejected publishes a warning for a malformed or invalid client intent.
func IntentRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload IntentRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventIntentRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// AckRegression publishes a warning when a client acknowledgement regresses.
func AckRegression(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AckPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAckRegression,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
