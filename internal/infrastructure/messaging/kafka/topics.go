// Package kafka publishes and consumes the engine's domain events.
package kafka

import (
	"time"

	"github.com/planva/capline/pkg/types/common"
)

// Topic names.  Producers and consumers share these constants; renaming one
// is a wire-protocol change.
const (
	// TopicScoresRecalculated announces a completed recalculation pass.
	TopicScoresRecalculated = "planning.recalculated"

	// TopicScoresInvalidated asks the worker to run a recalculation pass.
	// Emitted by the surrounding CRUD application whenever criteria or
	// scores change.
	TopicScoresInvalidated = "scores.invalidated"

	// TopicForecastGenerated announces a completed forecast run.
	TopicForecastGenerated = "forecast.generated"
)

// EventEnvelope is the wire shape of every event the engine emits.
type EventEnvelope struct {
	EventID    common.ID   `json:"event_id"`
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// NewEnvelope stamps a payload with identity and time.
func NewEnvelope(eventType string, payload interface{}) EventEnvelope {
	return EventEnvelope{
		EventID:    common.NewID(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
