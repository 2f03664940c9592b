package mocks

import (
	"context"
	"sync"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// AnalyticsSink is an in-memory stand-in for the ClickHouse client. Like the
// ReplacingMergeTree table it ignores a prediction id it has already seen.
type AnalyticsSink struct {
	mu      sync.Mutex
	seen    map[string]bool
	records []models.StoredPrediction
	err     error
}

// NewAnalyticsSink creates an empty sink
func NewAnalyticsSink() *AnalyticsSink {
	logger.Info("Using MOCK analytics sink (ClickHouse disabled)")
	return &AnalyticsSink{seen: make(map[string]bool)}
}

// FailWith makes every subsequent RecordPrediction return err; nil restores it
func (m *AnalyticsSink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *AnalyticsSink) RecordPrediction(ctx context.Context, p models.StoredPrediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if m.seen[p.ID] {
		return nil
	}
	m.seen[p.ID] = true
	m.records = append(m.records, p)
	return nil
}

func (m *AnalyticsSink) FighterCounts(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, p := range m.records {
		counts[p.Fighter]++
	}
	return counts, nil
}

// Records returns a copy of what has been recorded
func (m *AnalyticsSink) Records() []models.StoredPrediction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StoredPrediction, len(m.records))
	copy(out, m.records)
	return out
}

// Close is a no-op for the mock sink
func (m *AnalyticsSink) Close() error {
	return nil
}
