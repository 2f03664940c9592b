package dal

import (
	"context"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// PredictionDAL defines the interface for the prediction data access layer.
// It satisfies both form.Submitter and results.Fetcher.
type PredictionDAL interface {
	SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error)
	FetchResults(ctx context.Context) ([]models.PredictionRecord, error)
	ListPredictions(ctx context.Context) ([]models.StoredPrediction, error)
	Count(ctx context.Context) (int, error)
	Seed(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}
