package dal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// newStoredPrediction validates a submission and stamps it with an id and time
func newStoredPrediction(input models.PredictionInput, now time.Time) (models.StoredPrediction, error) {
	if input.Name == "" || !input.Fighter.Valid() || !models.ValidRound(input.Round) {
		return models.StoredPrediction{}, fmt.Errorf("name=%q fighter=%q round=%q: %w",
			input.Name, input.Fighter, input.Round, ErrIncompletePrediction)
	}

	return models.StoredPrediction{
		ID:               uuid.NewString(),
		Email:            input.Email,
		CreatedAt:        now.UTC(),
		PredictionRecord: input.Record(),
	}, nil
}

// ackFor builds the acknowledgement of a stored prediction
func ackFor(p models.StoredPrediction) models.Ack {
	return models.Ack{ID: p.ID, ReceivedAt: p.CreatedAt}
}

// records strips storage fields off a list of predictions
func records(preds []models.StoredPrediction) []models.PredictionRecord {
	out := make([]models.PredictionRecord, len(preds))
	for i, p := range preds {
		out[i] = p.PredictionRecord
	}
	return out
}

// getDefaultPredictions returns the demo rows shown before anyone has submitted
func getDefaultPredictions() []models.StoredPrediction {
	base := time.Date(2024, time.May, 18, 20, 0, 0, 0, time.UTC)
	return []models.StoredPrediction{
		{
			ID:               "seed-john",
			CreatedAt:        base,
			PredictionRecord: models.PredictionRecord{Name: "John", Fighter: "Usyk", Round: "3", Timing: "early"},
		},
		{
			ID:               "seed-jane",
			CreatedAt:        base.Add(time.Minute),
			PredictionRecord: models.PredictionRecord{Name: "Jane", Fighter: "Fury", Round: "points"},
		},
	}
}
