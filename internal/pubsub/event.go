package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// Event types
const (
	EventPredictionSubmitted = "prediction:submitted"
	EventPredictionsReset    = "predictions:reset"
	EventPredictionsSeeded   = "predictions:seeded"
)

// Event represents a pubsub event
type Event struct {
	Type    string                 `json:"type"`
	Time    time.Time              `json:"time"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewPredictionEvent announces an accepted submission
func NewPredictionEvent(ack models.Ack, input models.PredictionInput) Event {
	stored := models.StoredPrediction{
		ID:               ack.ID,
		Email:            input.Email,
		CreatedAt:        ack.ReceivedAt,
		PredictionRecord: input.Record(),
	}
	return Event{
		Type:    EventPredictionSubmitted,
		Time:    ack.ReceivedAt,
		Payload: toPayload(stored),
	}
}

// Prediction decodes the submission carried by a prediction:submitted event.
// The payload may come straight from NewPredictionEvent or from JSON off the wire.
func (e Event) Prediction() (models.StoredPrediction, error) {
	var p models.StoredPrediction
	if e.Type != EventPredictionSubmitted {
		return p, fmt.Errorf("event %q carries no prediction", e.Type)
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode prediction payload: %w", err)
	}
	return p, nil
}

// Public strips contact details before an event is pushed to browsers
func (e Event) Public() Event {
	if _, ok := e.Payload["email"]; !ok {
		return e
	}
	payload := make(map[string]interface{}, len(e.Payload))
	for k, v := range e.Payload {
		if k != "email" {
			payload[k] = v
		}
	}
	e.Payload = payload
	return e
}

func toPayload(v any) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
