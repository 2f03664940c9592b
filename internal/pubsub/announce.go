package pubsub

import (
	"context"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// Submitter sends a prediction to the store
type Submitter interface {
	SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error)
}

// Publisher accepts events
type Publisher interface {
	Publish(Event)
}

// Announcer publishes a prediction:submitted event for every submission the
// wrapped store accepts
type Announcer struct {
	next Submitter
	pub  Publisher
}

// Announce wraps next so accepted submissions are published to pub
func Announce(next Submitter, pub Publisher) *Announcer {
	return &Announcer{next: next, pub: pub}
}

func (a *Announcer) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	ack, err := a.next.SubmitPrediction(ctx, input)
	if err != nil {
		return ack, err
	}
	a.pub.Publish(NewPredictionEvent(ack, input))
	return ack, nil
}
