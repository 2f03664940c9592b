package dal

import (
	"context"
	"sync"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// MemoryDAL implements PredictionDAL using in-memory storage
type MemoryDAL struct {
	mu          sync.RWMutex
	predictions []models.StoredPrediction
	now         func() time.Time
}

// NewMemoryDAL creates a new in-memory data access layer seeded with the demo rows
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		predictions: getDefaultPredictions(),
		now:         time.Now,
	}
}

// NewEmptyMemoryDAL creates an in-memory store without demo rows
func NewEmptyMemoryDAL() *MemoryDAL {
	return &MemoryDAL{now: time.Now}
}

func (m *MemoryDAL) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	if err := ctx.Err(); err != nil {
		return models.Ack{}, err
	}

	p, err := newStoredPrediction(input, m.now())
	if err != nil {
		return models.Ack{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = append(m.predictions, p)

	return ackFor(p), nil
}

func (m *MemoryDAL) FetchResults(ctx context.Context) ([]models.PredictionRecord, error) {
	preds, err := m.ListPredictions(ctx)
	if err != nil {
		return nil, err
	}
	return records(preds), nil
}

func (m *MemoryDAL) ListPredictions(ctx context.Context) ([]models.StoredPrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Copy to avoid races with concurrent submissions
	out := make([]models.StoredPrediction, len(m.predictions))
	copy(out, m.predictions)
	return out, nil
}

func (m *MemoryDAL) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.predictions), nil
}

func (m *MemoryDAL) Seed(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.predictions) > 0 {
		return 0, nil
	}
	m.predictions = getDefaultPredictions()
	return len(m.predictions), nil
}

func (m *MemoryDAL) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = nil
	return nil
}

func (m *MemoryDAL) Close() error {
	return nil
}
