package integrity

import (
	"context"

	"duskhaven/server/logging"
)

// EventIncident is emitted when journal verification flags an anomaly.
// Incidents are evidence for investigation, never a trigger for automatic
// state mutation.
const EventIncident logging.EventType = "integrity.incident"

// IncidentPayload carries the verifier's finding.
type IncidentPayload struct {
	Anomaly string `json:"anomaly"`
	Seq     uint64 `json:"seq,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Incident publishes one verification anomaly.
func Incident(ctx context.Context, pub logging.Publisher, tick uint64, subject logging.EntityRef, payload IncidentPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventIncident,
		Tick:     tick,
		Actor:    subject,
		Severity: logging.SeverityError,
		Category: logging.CategoryIntegrity,
		Payload:  payload,
	})
}
