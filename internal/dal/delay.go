package dal

import (
	"context"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// DelayedDAL adds a fixed latency in front of every submission, mimicking a
// remote API round trip. Reads are not delayed.
type DelayedDAL struct {
	PredictionDAL
	delay time.Duration
}

// WithSubmitDelay wraps inner. A non-positive delay returns inner unchanged.
func WithSubmitDelay(inner PredictionDAL, delay time.Duration) PredictionDAL {
	if delay <= 0 {
		return inner
	}
	return &DelayedDAL{PredictionDAL: inner, delay: delay}
}

func (d *DelayedDAL) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return models.Ack{}, ctx.Err()
	case <-timer.C:
	}
	return d.PredictionDAL.SubmitPrediction(ctx, input)
}
